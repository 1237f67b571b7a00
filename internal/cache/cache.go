/*

TTL cache abstraction for strategy lists and wallet balance lookups.

Entries are immutable snapshots once written. Expired entries are treated
as absent and evicted lazily on read; if two requests race to populate the
same key, last writer wins.

*/

package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/defipilot/pilot/internal/logger"
)

var cacheLogger = logger.GetForComponent("cache")

// Store is the cache contract injected into the pipeline. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Invalidate(key string)
}

// TTLCache is a Store backed by an in-memory map with per-entry TTL.
type TTLCache struct {
	name       string
	defaultTTL time.Duration
	backend    *gocache.Cache
}

// New creates a TTLCache with the given default TTL. The name is only
// used for log attribution.
func New(name string, defaultTTL time.Duration) *TTLCache {
	return &TTLCache{
		name:       name,
		defaultTTL: defaultTTL,
		backend:    gocache.New(defaultTTL, 2*defaultTTL),
	}
}

// Get returns the cached value for key, or absent if never set or expired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	value, found := c.backend.Get(key)
	if found {
		cacheLogger.Debug().Str("cache", c.name).Str("key", key).Msg("Cache hit")
	}
	return value, found
}

// Set stores value under key. A non-positive ttl falls back to the cache's
// default TTL.
func (c *TTLCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.backend.Set(key, value, ttl)
	cacheLogger.Debug().
		Str("cache", c.name).
		Str("key", key).
		Dur("ttl", ttl).
		Msg("Cache entry stored")
}

// Invalidate removes key from the cache. Removing an absent key is a no-op.
func (c *TTLCache) Invalidate(key string) {
	c.backend.Delete(key)
	cacheLogger.Debug().Str("cache", c.name).Str("key", key).Msg("Cache entry invalidated")
}
