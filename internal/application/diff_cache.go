package application

import (
	"sync"
	"time"
)

// memoryDiffCache stores serialized diff results to avoid recomputing
// version comparisons for schedules that have not changed. Entries carry
// their own expiry so drafts and released schedules can use different TTLs.
type memoryDiffCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	maxEntries int
	entries    map[string]diffCacheEntry
}

type diffCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryDiffCache returns an in-process DiffCache holding at most
// maxEntries serialized results. A nil now falls back to time.Now.
func NewMemoryDiffCache(maxEntries int, now func() time.Time) DiffCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &memoryDiffCache{
		now:        now,
		maxEntries: maxEntries,
		entries:    make(map[string]diffCacheEntry),
	}
}

func (c *memoryDiffCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	cloned := make([]byte, len(entry.value))
	copy(cloned, entry.value)
	return cloned, true
}

func (c *memoryDiffCache) Set(key string, value []byte, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	cloned := make([]byte, len(value))
	copy(cloned, value)
	expiry := c.now().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = diffCacheEntry{value: cloned, expiresAt: expiry}
}

func (c *memoryDiffCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *memoryDiffCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *memoryDiffCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}
