// Package memory provides the process-local limiter record cache.
//
// The cache is bounded and TTL-based with FIFO eviction: when full, the
// oldest inserted entry goes first. FIFO rather than LRU keeps the hot path
// to a map lookup and a slice append, which is the right cost tradeoff for a
// cache whose entries expire quickly anyway. State here is explicitly NOT
// shared across instances; the durable store is the only cross-instance
// coordination point.
package memory

import (
	"context"
	"sync"
	"time"

	"portalpay/internal/ratelimit/models"
)

type entry struct {
	record    *models.Record
	expiresAt time.Time
}

// Cache is a bounded TTL cache of limiter records.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	insertions []string // FIFO eviction order; may contain stale keys
	maxSize    int
	ttl        time.Duration

	evictions int64
}

// NewCache creates a bounded cache. Non-positive size or TTL fall back to
// safe defaults.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached record for a key, or nil on miss/expiry. The result
// is a deep copy: checks prune and append on it before writing back, and
// handing out shared state would let concurrent checks race on the slice.
func (c *Cache) Get(key string, now time.Time) *models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e.record.Clone()
}

// Put stores a record, evicting the oldest insertion when full.
func (c *Cache) Put(key string, record *models.Record, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxSize && len(c.insertions) > 0 {
			oldest := c.insertions[0]
			c.insertions = c.insertions[1:]
			if _, ok := c.entries[oldest]; ok {
				delete(c.entries, oldest)
				c.evictions++
			}
		}
		c.insertions = append(c.insertions, key)
	}
	c.entries[key] = &entry{record: record, expiresAt: now.Add(c.ttl)}
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops all in-memory state. Durable state is untouched; callers that
// need a full reset must also clear the durable store.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.insertions = nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evictions returns the total number of capacity evictions.
func (c *Cache) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

// StartCleanup purges expired entries at the given interval until ctx is
// cancelled.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RemoveExpiredAt(time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveExpiredAt removes all entries expired as of the given time.
// Exported for testability; background cleanup passes wall-clock time.
func (c *Cache) RemoveExpiredAt(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}

	// Compact the insertion queue so stale keys don't accumulate.
	live := c.insertions[:0]
	for _, key := range c.insertions {
		if _, ok := c.entries[key]; ok {
			live = append(live, key)
		}
	}
	c.insertions = live
}
