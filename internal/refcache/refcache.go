// Package refcache implements the bounded, time-windowed map from kind-1
// event ids to their creation timestamp (§4.8). It is the only structure
// shared by mutation across sessions; sessions reach it through a handle
// and never hold an entry past a single lookup.
package refcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is what a reference cache row carries: the kind is always 1, so
// only the timestamp and insertion time are stored.
type Entry struct {
	CreatedAt         int64
	InsertedMonotonic time.Time
}

// Cache is a capacity-bounded map guarded by an RWMutex, the same
// read-mostly pattern as a sliding-window rate limiter: lookups and
// inserts take the lock briefly, and a separate janitor call does the
// time-based sweep.
type Cache struct {
	mu    sync.RWMutex
	store *lru.Cache[string, Entry]
	ttl   time.Duration
	clock func() time.Time
}

// New builds a cache with the given capacity and TTL. A safe default per
// the open question in the filtering spec's design notes is capacity
// 10,000 and a TTL of 5 seconds.
func New(capacity int, ttl time.Duration) *Cache {
	store, _ := lru.New[string, Entry](capacity)
	return &Cache{store: store, ttl: ttl, clock: time.Now}
}

// Insert records a kind-1 event's id and creation timestamp. Capacity
// overflow evicts the least-recently-used entry; since Lookup does not
// refresh recency, that is the oldest insertion.
func (c *Cache) Insert(eventID string, createdAt int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(eventID, Entry{CreatedAt: createdAt, InsertedMonotonic: c.clock()})
}

// Lookup returns the cached creation timestamp for eventID. A miss,
// including one where the entry is logically expired but not yet swept
// by the janitor, returns (0, false) — callers must treat that as "pass
// through", never as an error.
func (c *Cache) Lookup(eventID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// Peek, not Get: a lookup must not refresh recency, so capacity
	// eviction keeps removing the oldest insertion.
	e, ok := c.store.Peek(eventID)
	if !ok || c.clock().Sub(e.InsertedMonotonic) > c.ttl {
		return 0, false
	}
	return e.CreatedAt, true
}

// EvictExpired removes every entry older than the configured TTL,
// measured against now. It is the janitor's sole touchpoint into the
// cache and returns the number of entries removed, for metrics.
func (c *Cache) EvictExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.store.Keys() {
		e, ok := c.store.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(e.InsertedMonotonic) > c.ttl {
			c.store.Remove(key)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, for the capacity invariant tests
// and metrics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}
