// Package riskcache stores the last classification seen for each URL.
//
// Entries are keyed by the exact URL string. Get never checks freshness: the
// caller decides whether an entry is still trustworthy, which lets priority
// callers ignore the cache while still sharing it. Expired entries are
// physically removed by Sweep, which is a courtesy and not a correctness
// requirement.
package riskcache

import (
	"sync"
	"time"
	"urlguard/pkg/domain"

	"k8s.io/utils/clock"
)

// DefaultTTL is the freshness window of a cached classification.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often expired entries are evicted.
const DefaultSweepInterval = 10 * time.Minute

// Cache is a process-wide URL -> classification store. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry

	ttl   time.Duration
	clock clock.PassiveClock
}

// New creates an empty cache. Zero ttl falls back to DefaultTTL and a nil
// clock to the wall clock.
func New(ttl time.Duration, clk clock.PassiveClock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Cache{
		entries: make(map[string]domain.CacheEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the stored entry for url regardless of its age.
func (c *Cache) Get(url string) (domain.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[url]

	return e, ok
}

// Fresh returns the cached result for url only if it is younger than the TTL.
func (c *Cache) Fresh(url string) (*domain.ClassificationResult, bool) {
	e, ok := c.Get(url)
	if !ok || !e.Fresh(c.clock.Now(), c.ttl) {
		return nil, false
	}
	res := e.Result

	return &res, true
}

// Put replaces the entry for url with result stamped at the current time.
func (c *Cache) Put(url string, result domain.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[url] = domain.CacheEntry{Result: result, Timestamp: c.clock.Now()}
}

// Sweep removes every entry older than the TTL at now and returns how many
// were removed.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, e := range c.entries {
		if now.Sub(e.Timestamp) > c.ttl {
			delete(c.entries, url)
			removed++
		}
	}

	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
