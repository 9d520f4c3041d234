package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storefront/backend/internal/catalog"
	"github.com/storefront/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	ttls     map[string]time.Duration
	getError error
	setError error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalogLoader hands out numbered results and tracks overlap
type MockCatalogLoader struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	degraded bool

	// when set, a cycle whose context has ended degrades like the real loader
	respectCtx bool
}

func (m *MockCatalogLoader) Load(ctx context.Context) *domain.CatalogResult {
	n := m.calls.Add(1)
	if m.inFlight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.inFlight.Add(-1)

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.respectCtx && ctx.Err() != nil {
		return &domain.CatalogResult{
			CycleID: fmt.Sprintf("cycle-%d", n),
			State:   domain.StateDegraded,
			Catalog: catalog.Defaults(),
			Err:     ctx.Err(),
			Error:   ctx.Err().Error(),
		}
	}

	if m.degraded {
		err := domain.ErrPOSUnavailable
		return &domain.CatalogResult{
			CycleID: "cycle-degraded",
			State:   domain.StateDegraded,
			Catalog: catalog.Defaults(),
			Err:     err,
			Error:   err.Error(),
		}
	}

	open := true
	return &domain.CatalogResult{
		CycleID:     fmt.Sprintf("cycle-%d", n),
		State:       domain.StateReady,
		Catalog:     catalog.Defaults(),
		IsStoreOpen: &open,
		LoadedAt:    fixedNow,
	}
}

func TestNewRefresher_Defaults(t *testing.T) {
	r := NewRefresher(&MockCatalogLoader{}, NewMockCacheRepository(), RefresherConfig{})
	assert.Equal(t, 120*time.Second, r.interval)
	assert.Equal(t, time.Hour, r.ttl)
}

func TestRefresher_LatestBeforeAnyCycle(t *testing.T) {
	r := NewRefresher(&MockCatalogLoader{}, NewMockCacheRepository(), RefresherConfig{})

	_, err := r.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestRefresher_TriggerStoresSnapshot(t *testing.T) {
	cache := NewMockCacheRepository()
	r := NewRefresher(&MockCatalogLoader{}, cache, RefresherConfig{SnapshotTTL: 5 * time.Minute})
	ctx := context.Background()

	result := r.Trigger(ctx)
	require.NotNil(t, result)

	raw, err := cache.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cache.ttls[SnapshotKey])

	var stored domain.CatalogResult
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, result.CycleID, stored.CycleID)
	assert.Equal(t, domain.StateReady, stored.State)
	require.NotNil(t, stored.IsStoreOpen)
	assert.True(t, *stored.IsStoreOpen)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.CycleID, latest.CycleID)
	assert.Equal(t, result.Catalog, latest.Catalog)
	assert.True(t, latest.LoadedAt.Equal(fixedNow))
}

func TestRefresher_DegradedSnapshotKeepsError(t *testing.T) {
	r := NewRefresher(&MockCatalogLoader{degraded: true}, NewMockCacheRepository(), RefresherConfig{})
	ctx := context.Background()

	r.Trigger(ctx)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Degraded())
	assert.Nil(t, latest.IsStoreOpen)
	require.Error(t, latest.Err)
	assert.Equal(t, domain.ErrPOSUnavailable.Error(), latest.Err.Error())
}

func TestRefresher_CacheFailureFallsBackToMemory(t *testing.T) {
	cache := NewMockCacheRepository()
	cache.setError = domain.ErrCacheUnavailable
	cache.getError = domain.ErrCacheUnavailable
	r := NewRefresher(&MockCatalogLoader{}, cache, RefresherConfig{})
	ctx := context.Background()

	result := r.Trigger(ctx)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Same(t, result, latest)
}

func TestRefresher_UndecodableSnapshotFallsBack(t *testing.T) {
	cache := NewMockCacheRepository()
	r := NewRefresher(&MockCatalogLoader{}, cache, RefresherConfig{})
	ctx := context.Background()

	_, err := r.Latest(ctx)
	require.ErrorIs(t, err, domain.ErrNoSnapshot)

	require.NoError(t, cache.Set(ctx, SnapshotKey, []byte("not json"), time.Minute))
	_, err = r.Latest(ctx)
	assert.True(t, errors.Is(err, domain.ErrNoSnapshot))
}

func TestRefresher_TriggersAreSerialized(t *testing.T) {
	loader := &MockCatalogLoader{delay: 20 * time.Millisecond}
	r := NewRefresher(loader, NewMockCacheRepository(), RefresherConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trigger(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), loader.calls.Load())
	assert.False(t, loader.overlap.Load())
}

func TestRefresher_StartLoadsImmediatelyAndOnTick(t *testing.T) {
	loader := &MockCatalogLoader{}
	r := NewRefresher(loader, NewMockCacheRepository(), RefresherConfig{Interval: 20 * time.Millisecond})

	r.Start(context.Background())
	r.Start(context.Background())

	assert.Eventually(t, func() bool { return loader.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	stopped := loader.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, loader.calls.Load())

	_, err := r.Latest(context.Background())
	assert.NoError(t, err)
}

func TestRefresher_StopsWhenContextCancelled(t *testing.T) {
	loader := &MockCatalogLoader{}
	r := NewRefresher(loader, NewMockCacheRepository(), RefresherConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx)
	assert.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestRefresher_StopWithoutStart(t *testing.T) {
	r := NewRefresher(&MockCatalogLoader{}, NewMockCacheRepository(), RefresherConfig{})

	r.Stop()
	r.Stop()
}

func TestRefresher_LatestPrefersNewestCycleWhenStoreFails(t *testing.T) {
	cache := NewMockCacheRepository()
	r := NewRefresher(&MockCatalogLoader{}, cache, RefresherConfig{})
	ctx := context.Background()

	first := r.Trigger(ctx)
	cache.mu.Lock()
	cache.setError = domain.ErrCacheUnavailable
	cache.mu.Unlock()
	second := r.Trigger(ctx)
	require.NotEqual(t, first.CycleID, second.CycleID)

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.CycleID, latest.CycleID)
}

func TestRefresher_LatestFallsBackToStoredSnapshot(t *testing.T) {
	cache := NewMockCacheRepository()
	ctx := context.Background()

	earlier := NewRefresher(&MockCatalogLoader{}, cache, RefresherConfig{})
	stored := earlier.Trigger(ctx)

	// a new process sharing the cache before its first cycle
	loader := &MockCatalogLoader{}
	r := NewRefresher(loader, cache, RefresherConfig{})

	latest, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.CycleID, latest.CycleID)

	current, err := r.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored.CycleID, current.CycleID)
	assert.Zero(t, loader.calls.Load())
}

func TestRefresher_TriggerIgnoresCallerCancellation(t *testing.T) {
	cache := NewMockCacheRepository()
	loader := &MockCatalogLoader{respectCtx: true}
	r := NewRefresher(loader, cache, RefresherConfig{})

	ready := r.Trigger(context.Background())
	require.Equal(t, domain.StateReady, ready.State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := r.Trigger(ctx)

	require.NotNil(t, result)
	assert.Equal(t, domain.StateReady, result.State)

	latest, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateReady, latest.State)
	assert.Equal(t, "open", latest.StoreStatus())
}

func TestRefresher_TriggerIsBoundedByLoadTimeout(t *testing.T) {
	var sawDeadline atomic.Bool
	loader := &deadlineLoader{saw: &sawDeadline}
	r := NewRefresher(loader, NewMockCacheRepository(), RefresherConfig{LoadTimeout: 5 * time.Second})

	r.Trigger(context.Background())

	assert.True(t, sawDeadline.Load())
}

// deadlineLoader records whether its context carried a deadline
type deadlineLoader struct {
	saw *atomic.Bool
}

func (d *deadlineLoader) Load(ctx context.Context) *domain.CatalogResult {
	_, ok := ctx.Deadline()
	d.saw.Store(ok)
	return &domain.CatalogResult{CycleID: "cycle-deadline", State: domain.StateReady, Catalog: catalog.Defaults()}
}

func TestRefresher_InterruptedCycleKeepsSnapshot(t *testing.T) {
	cache := NewMockCacheRepository()
	loader := &MockCatalogLoader{respectCtx: true}
	r := NewRefresher(loader, cache, RefresherConfig{})

	ready := r.Trigger(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	interrupted := r.refresh(ctx)
	require.True(t, interrupted.Degraded())

	latest, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ready.CycleID, latest.CycleID)

	raw, err := cache.Get(context.Background(), SnapshotKey)
	require.NoError(t, err)
	var stored domain.CatalogResult
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, domain.StateReady, stored.State)
}

func TestRefresher_InterruptedFirstCycleIsPublished(t *testing.T) {
	r := NewRefresher(&MockCatalogLoader{respectCtx: true}, NewMockCacheRepository(), RefresherConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.refresh(ctx)

	// with nothing better to serve, the degraded defaults are kept
	latest, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, latest.Degraded())
}

func TestRefresher_CurrentSharesFirstLoad(t *testing.T) {
	loader := &MockCatalogLoader{delay: 30 * time.Millisecond}
	r := NewRefresher(loader, NewMockCacheRepository(), RefresherConfig{})

	const callers = 8
	results := make([]*domain.CatalogResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := r.Current(context.Background())
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for _, result := range results {
		require.NotNil(t, result)
		assert.Equal(t, results[0].CycleID, result.CycleID)
	}
}
