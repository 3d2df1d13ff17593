package library

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value   any
	addedAt time.Time
}

// queryCache memoizes read-heavy store queries for a bounded time. Expiry
// is checked lazily on get; a TTL of zero disables expiry so entries live
// until the next invalidateAll. Mutations clear the whole cache rather
// than tracking per-key dependencies.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *queryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.addedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return entry.value, true
}

func (c *queryCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, addedAt: c.now()}
}

func (c *queryCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
