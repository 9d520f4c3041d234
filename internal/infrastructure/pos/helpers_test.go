package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakePOS is an httptest server standing in for the remote POS.
type fakePOS struct {
	server    *httptest.Server
	mux       *http.ServeMux
	exchanges atomic.Int32
	expiresIn int64
	tokenSeq  atomic.Int32
}

func newFakePOS(t *testing.T) *fakePOS {
	return newFakePOSWithTokenHandler(t, nil)
}

// newFakePOSWithTokenHandler replaces the token endpoint; exchanges are still counted.
func newFakePOSWithTokenHandler(t *testing.T, tokenHandler http.HandlerFunc) *fakePOS {
	t.Helper()

	f := &fakePOS{mux: http.NewServeMux(), expiresIn: 3600}
	f.mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		f.exchanges.Add(1)
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}

		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID != "client" || req.ClientSecret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		n := f.tokenSeq.Add(1)
		writeJSON(w, tokenResponse{
			AccessToken: fmt.Sprintf("token-%d", n),
			ExpiresIn:   f.expiresIn,
			TokenType:   "Bearer",
		})
	})
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakePOS) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, h)
}

// sleepRecorder replaces the executor's sleep so tests never wait.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestClient(t *testing.T, baseURL string) (*Client, *sleepRecorder) {
	t.Helper()

	client := NewClient(Config{
		BaseURL:      baseURL,
		ClientID:     "client",
		ClientSecret: "secret",
		RestaurantID: "rest-1",
		LocationID:   "loc-1",
		Timeout:      2 * time.Second,
		Retry:        DefaultRetryConfig(),
	})
	rec := &sleepRecorder{}
	client.retry.sleep = rec.sleep

	return client, rec
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
