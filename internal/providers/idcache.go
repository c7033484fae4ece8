package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idKeyPrefix namespaces vendor id mappings in redis.
	// Format: consensus:providerid:{vendor}:{symbol}
	idKeyPrefix = "consensus:providerid"

	// idCacheTTL keeps vendor id mappings for a month; they essentially
	// never change, the TTL just bounds garbage.
	idCacheTTL = 30 * 24 * time.Hour
)

// IDCache memoizes symbol-to-vendor-id resolutions. Pure memoization: it
// is always safe to be empty or cold, and nothing ever invalidates it
// beyond the TTL. Redis is optional; without it the cache is in-memory
// with a one-process lifetime.
type IDCache struct {
	rdb   *redis.Client
	mu    sync.RWMutex
	local map[string]string
}

// NewIDCache creates an id cache. rdb may be nil for memory-only mode.
func NewIDCache(rdb *redis.Client) *IDCache {
	return &IDCache{
		rdb:   rdb,
		local: make(map[string]string),
	}
}

func idKey(vendor, symbol string) string {
	return fmt.Sprintf("%s:%s:%s", idKeyPrefix, vendor, symbol)
}

// Get returns the memoized vendor id for a symbol, if present.
func (c *IDCache) Get(ctx context.Context, vendor, symbol string) (string, bool) {
	key := idKey(vendor, symbol)

	c.mu.RLock()
	if id, ok := c.local[key]; ok {
		c.mu.RUnlock()
		return id, true
	}
	c.mu.RUnlock()

	if c.rdb == nil {
		return "", false
	}
	id, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	c.mu.Lock()
	c.local[key] = id
	c.mu.Unlock()
	return id, true
}

// Put stores a resolution, write-through to redis when available.
func (c *IDCache) Put(ctx context.Context, vendor, symbol, id string) {
	key := idKey(vendor, symbol)

	c.mu.Lock()
	c.local[key] = id
	c.mu.Unlock()

	if c.rdb != nil {
		// Best effort; losing the write just means a re-resolution later.
		c.rdb.Set(ctx, key, id, idCacheTTL)
	}
}
