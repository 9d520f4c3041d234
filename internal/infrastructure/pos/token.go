package pos

import (
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain"
)

// TokenCache is the process-wide slot for the POS bearer token.
// Token and expiry are always written together.
type TokenCache struct {
	mu    sync.RWMutex
	token domain.Token
}

// NewTokenCache creates an empty token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token if it stays valid for at least margin after now.
func (c *TokenCache) Get(now time.Time, margin time.Duration) (domain.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.token.ValidFor(now, margin) {
		return domain.Token{}, false
	}
	return c.token, true
}

// Set replaces the cached token
func (c *TokenCache) Set(token domain.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
