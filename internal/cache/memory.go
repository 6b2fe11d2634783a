package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache with per-entry expiry.
type MemoryCache struct {
	c *gocache.Cache
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory cache. ttl of 0 means entries never expire.
func NewMemoryCache(ttl, cleanup time.Duration) *MemoryCache {
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	if cleanup == 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryCache{c: gocache.New(ttl, cleanup)}
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores value. ttl of 0 uses the cache default.
func (m *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.c.Delete(key)
	return nil
}

// Len reports the number of items, including expired ones not yet swept.
func (m *MemoryCache) Len() int { return m.c.ItemCount() }
