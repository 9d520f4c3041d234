package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TokenProvider hands out a bearer token that is valid for at least the safety margin
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// POSClient defines the read operations against the remote point of sale
type POSClient interface {
	Authenticate(ctx context.Context) error
	GetShiftStatus(ctx context.Context) (*ShiftStatus, error)
	GetInventory(ctx context.Context) ([]InventoryItem, error)
	GetProducts(ctx context.Context) ([]Product, error)
}

// CatalogLoader runs one load cycle; it never fails, degraded cycles carry Err
type CatalogLoader interface {
	Load(ctx context.Context) *CatalogResult
}
