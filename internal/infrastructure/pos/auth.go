package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/storefront/backend/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenSafetyMargin is how long before the provider's expiry a token is
// treated as expired.
const DefaultTokenSafetyMargin = 300 * time.Second

const tokenPath = "/auth/token"

// Authenticator exchanges client credentials for bearer tokens and keeps the
// current one in a TokenCache. Concurrent callers share a single exchange.
type Authenticator struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	cache        *TokenCache
	margin       time.Duration
	now          func() time.Time
	flight       singleflight.Group
}

// NewAuthenticator creates an authenticator for the POS at baseURL
func NewAuthenticator(httpClient *http.Client, baseURL, clientID, clientSecret string, cache *TokenCache, margin time.Duration) *Authenticator {
	if cache == nil {
		cache = NewTokenCache()
	}
	if margin <= 0 {
		margin = DefaultTokenSafetyMargin
	}

	return &Authenticator{
		httpClient:   httpClient,
		tokenURL:     baseURL + tokenPath,
		clientID:     clientID,
		clientSecret: clientSecret,
		cache:        cache,
		margin:       margin,
		now:          time.Now,
	}
}

// Token returns a cached token or performs a credential exchange.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if err := a.checkCredentials(); err != nil {
		return "", err
	}

	if token, ok := a.cache.Get(a.now(), a.margin); ok {
		return token.Value, nil
	}

	v, err, shared := a.flight.Do("token", func() (interface{}, error) {
		// another caller may have refreshed while we waited for the flight
		if token, ok := a.cache.Get(a.now(), a.margin); ok {
			return token.Value, nil
		}

		// the exchange outlives a single caller's cancellation
		token, err := a.exchange(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		a.cache.Set(token)
		return token.Value, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Printf("[Auth] Shared in-flight token exchange")
	}

	return v.(string), nil
}

func (a *Authenticator) checkCredentials() error {
	if a.clientID == "" {
		return &domain.ConfigError{Setting: "STOREFRONT_POS_CLIENT_ID"}
	}
	if a.clientSecret == "" {
		return &domain.ConfigError{Setting: "STOREFRONT_POS_CLIENT_SECRET"}
	}
	return nil
}

// exchange posts the client credentials and returns a token with an absolute expiry
func (a *Authenticator) exchange(ctx context.Context) (domain.Token, error) {
	const op = "Authenticate"

	payload, err := json.Marshal(tokenRequest{ClientID: a.clientID, ClientSecret: a.clientSecret})
	if err != nil {
		return domain.Token{}, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return domain.Token{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	requestedAt := a.now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return domain.Token{}, &domain.APIError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrPOSUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Token{}, &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", domain.ErrPOSUnavailable, err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Auth] Token exchange failed - Status: %d", resp.StatusCode)
		// the token endpoint answers bad credentials with 400 as well
		if resp.StatusCode == http.StatusBadRequest {
			return domain.Token{}, &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: domain.ErrAuthentication}
		}
		return domain.Token{}, classifyStatus(op, resp, requestedAt)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.Token{}, &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: failed to decode response: %v", domain.ErrPOSUnavailable, err)}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return domain.Token{}, &domain.APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: token response missing access_token or expires_in", domain.ErrPOSUnavailable)}
	}

	token := domain.Token{
		Value:     tr.AccessToken,
		ExpiresAt: requestedAt.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	log.Printf("[Auth] Obtained %s token, expires at %s", tr.TokenType, token.ExpiresAt.Format(time.RFC3339))

	return token, nil
}
