package cipher

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a resolved program stays valid.
const DefaultCacheTTL = 10 * time.Minute

// Cache stores programs keyed by player script URL.
type Cache interface {
	Get(key string) (Program, bool)
	Set(key string, p Program)
}

type cacheEntry struct {
	program Program
	expAt   time.Time
}

// MemoryCache is an in-memory Cache whose entries expire after a TTL.
type MemoryCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]cacheEntry
	now  func() time.Time
}

// NewMemoryCache creates a cache. A non-positive ttl uses DefaultCacheTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, data: make(map[string]cacheEntry), now: time.Now}
}

// Get retrieves an unexpired program by key
func (c *MemoryCache) Get(key string) (Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expAt) {
		return nil, false
	}
	return e.program, true
}

// Set stores a program in the cache
func (c *MemoryCache) Set(key string, p Program) {
	c.mu.Lock()
	c.data[key] = cacheEntry{program: append(Program(nil), p...), expAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Prune drops expired entries and returns how many were removed.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.data {
		if !now.Before(e.expAt) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
