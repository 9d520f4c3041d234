package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront/backend/config"
	httpDelivery "github.com/storefront/backend/internal/delivery/http"
	"github.com/storefront/backend/internal/domain"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/pos"
	"github.com/storefront/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Storefront Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	snapshotCache, closeCache := newCache(ctx, cfg.Cache)
	defer closeCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	posClient := pos.NewClient(pos.Config{
		BaseURL:           cfg.POS.BaseURL,
		ClientID:          cfg.POS.ClientID,
		ClientSecret:      cfg.POS.ClientSecret,
		RestaurantID:      cfg.POS.RestaurantID,
		LocationID:        cfg.POS.LocationID,
		Timeout:           cfg.POS.RequestTimeout,
		TokenSafetyMargin: cfg.POS.TokenSafetyMargin,
		RateLimit:         cfg.POS.RateLimit,
		RateBurst:         cfg.POS.RateBurst,
		MaxPages:          cfg.POS.MaxPages,
		Retry: pos.RetryConfig{
			MaxAttempts:     cfg.POS.MaxAttempts,
			BaseDelay:       cfg.POS.BaseDelay,
			HonorRetryAfter: cfg.POS.HonorRetryAfter,
			Jitter:          cfg.POS.Jitter,
		},
	})

	// Enable debug mode in development environment
	if cfg.POS.Debug || cfg.Server.Environment == "development" {
		posClient.SetDebug(true)
		log.Printf("POS client debug mode enabled")
	}

	if cfg.POS.HasCredentials() {
		log.Printf("POS API configured: %s (restaurant: %s, location: %s)",
			cfg.POS.BaseURL, cfg.POS.RestaurantID, cfg.POS.LocationID)
	} else {
		log.Printf("WARNING: POS credentials not configured (set %s_POS_CLIENT_ID and %s_POS_CLIENT_SECRET) - serving the default catalog",
			config.EnvPrefix, config.EnvPrefix)
	}

	// Initialize usecase layer
	catalogService := usecase.NewCatalogService(posClient, usecase.CatalogServiceConfig{})
	refresher := usecase.NewRefresher(catalogService, snapshotCache, usecase.RefresherConfig{
		Interval:    cfg.Refresh.Interval,
		SnapshotTTL: cfg.Cache.TTL,
	})
	refresher.Start(ctx)
	defer refresher.Stop()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(refresher)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Printf("Server stopped")
}

// newCache picks the snapshot store; an unreachable Redis falls back to memory
func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, func()) {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err == nil {
			return redisCache, func() { redisCache.Close() }
		}
		log.Printf("WARNING: %v - falling back to in-memory cache", err)
	}

	memoryCache := cache.NewMemoryCache()
	return memoryCache, func() { memoryCache.Close() }
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
