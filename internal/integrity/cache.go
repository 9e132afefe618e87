package integrity

import (
	"sync"
	"time"

	"github.com/roach88/staffsync/internal/domain"
)

// DefaultCacheTTL is how long pre-operation validation results are reused.
const DefaultCacheTTL = 30 * time.Second

type cacheKey struct {
	entityType domain.EntityType
	entityID   string
	operation  string
}

type cacheEntry struct {
	issues  []Issue
	expires time.Time
}

// cache memoizes pre-operation validation per (type, id, operation).
type cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{ttl: ttl, now: now, entries: make(map[cacheKey]cacheEntry)}
}

func (c *cache) get(k cacheKey) ([]Issue, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, k)
		return nil, false
	}
	return e.issues, true
}

func (c *cache) put(k cacheKey, issues []Issue) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = cacheEntry{issues: issues, expires: c.now().Add(c.ttl)}
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
