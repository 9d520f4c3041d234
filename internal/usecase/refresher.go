package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain"
)

// SnapshotKey is the cache key holding the latest catalog result
const SnapshotKey = "catalog:latest"

const (
	defaultRefreshInterval = 120 * time.Second
	defaultSnapshotTTL     = time.Hour
	defaultLoadTimeout     = 90 * time.Second
)

// RefresherConfig holds configuration for the background refresher
type RefresherConfig struct {
	Interval    time.Duration
	SnapshotTTL time.Duration

	// LoadTimeout bounds cycles started by Trigger and Current, which run
	// detached from the caller's cancellation.
	LoadTimeout time.Duration
}

// Refresher reloads the catalog on a fixed interval and on demand, and keeps
// the latest result in the cache. Refreshes never overlap.
type Refresher struct {
	loader   domain.CatalogLoader
	cache    domain.CacheRepository
	interval time.Duration
	ttl      time.Duration
	timeout  time.Duration

	refreshMu sync.Mutex

	latestMu sync.RWMutex
	latest   *domain.CatalogResult

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewRefresher creates a refresher; nothing runs until Start
func NewRefresher(loader domain.CatalogLoader, cache domain.CacheRepository, config RefresherConfig) *Refresher {
	interval := config.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	ttl := config.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	timeout := config.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}

	return &Refresher{
		loader:   loader,
		cache:    cache,
		interval: interval,
		ttl:      ttl,
		timeout:  timeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the catalog once right away and then on every tick until
// Stop is called or ctx is cancelled. Calling Start again is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go r.loop(ctx)
	})
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	log.Printf("[Refresher] started, interval %s", r.interval)
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stop:
			log.Println("[Refresher] stopped")
			return
		case <-ctx.Done():
			log.Println("[Refresher] context done, stopping")
			return
		}
	}
}

// Stop ends the refresh loop and waits for an in-flight refresh to finish.
// A refresher that was never started cannot be started afterwards.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.startOnce.Do(func() {
		close(r.done)
	})
	<-r.done
}

// Trigger runs one load cycle now and stores it as the latest snapshot.
// The cycle ignores ctx cancellation and is bounded by the load timeout.
func (r *Refresher) Trigger(ctx context.Context) *domain.CatalogResult {
	loadCtx, cancel := r.detach(ctx)
	defer cancel()

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	return r.refreshLocked(loadCtx)
}

// Current returns the latest snapshot, loading one first if none exists.
// Concurrent callers wait for that single first load.
func (r *Refresher) Current(ctx context.Context) (*domain.CatalogResult, error) {
	if result, err := r.Latest(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		return result, err
	}

	loadCtx, cancel := r.detach(ctx)
	defer cancel()

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// another caller may have loaded while we waited
	if result, err := r.Latest(ctx); !errors.Is(err, domain.ErrNoSnapshot) {
		return result, err
	}

	result := r.refreshLocked(loadCtx)
	if result == nil {
		return nil, domain.ErrNoSnapshot
	}
	return result, nil
}

// Latest returns the snapshot of the most recent cycle in this process. A
// process that has not completed a cycle yet falls back to the shared cache.
// ErrNoSnapshot means neither has one.
func (r *Refresher) Latest(ctx context.Context) (*domain.CatalogResult, error) {
	r.latestMu.RLock()
	latest := r.latest
	r.latestMu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	data, err := r.cache.Get(ctx, SnapshotKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[Refresher] snapshot cache read failed: %v", err)
		}
		return nil, domain.ErrNoSnapshot
	}

	var result domain.CatalogResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("[Refresher] discarding undecodable snapshot: %v", err)
		return nil, domain.ErrNoSnapshot
	}
	if result.Error != "" {
		result.Err = errors.New(result.Error)
	}
	return &result, nil
}

// refresh runs a cycle bound to ctx; used by the loop so shutdown stops it
func (r *Refresher) refresh(ctx context.Context) *domain.CatalogResult {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	return r.refreshLocked(ctx)
}

// refreshLocked runs one cycle and publishes it. A cycle that degraded
// because ctx ended does not replace an existing snapshot. Callers hold refreshMu.
func (r *Refresher) refreshLocked(ctx context.Context) *domain.CatalogResult {
	result := r.loader.Load(ctx)
	if result == nil {
		return nil
	}

	r.latestMu.Lock()
	if result.Degraded() && ctx.Err() != nil && r.latest != nil {
		kept := r.latest.CycleID
		r.latestMu.Unlock()
		log.Printf("[Refresher] cycle %s interrupted (%v), keeping snapshot %s", result.CycleID, ctx.Err(), kept)
		return result
	}
	r.latest = result
	r.latestMu.Unlock()

	if err := r.store(ctx, result); err != nil {
		log.Printf("[Refresher] failed to store snapshot %s: %v", result.CycleID, err)
	}

	return result
}

func (r *Refresher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
}

func (r *Refresher) store(ctx context.Context, result *domain.CatalogResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, SnapshotKey, data, r.ttl)
}
