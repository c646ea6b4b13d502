package application

import (
	"sync"
	"testing"
	"time"
)

// adjustableClock lets tests move time forward without sleeping.
type adjustableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *adjustableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *adjustableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryDiffCache_ExpiresEntries(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(8, clock.Now)

	cache.Set("a", []byte("payload"), time.Minute)

	if value, ok := cache.Get("a"); !ok || string(value) != "payload" {
		t.Fatalf("expected fresh entry, got %q, %v", value, ok)
	}

	clock.Advance(59 * time.Second)
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("expected entry to survive within its TTL")
	}

	clock.Advance(2 * time.Second)
	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected entry to expire after its TTL")
	}
}

func TestMemoryDiffCache_IgnoresNonPositiveTTL(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(8, clock.Now)

	cache.Set("a", []byte("payload"), 0)

	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected zero TTL writes to be dropped")
	}
}

func TestMemoryDiffCache_InvalidateRemovesEntry(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(8, clock.Now)

	cache.Set("a", []byte("payload"), time.Minute)
	cache.Invalidate("a")

	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected invalidated entry to be gone")
	}
}

func TestMemoryDiffCache_EvictsWhenFull(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(2, clock.Now)

	cache.Set("a", []byte("1"), time.Minute)
	cache.Set("b", []byte("2"), time.Minute)
	cache.Set("c", []byte("3"), time.Minute)

	present := 0
	for _, key := range []string{"a", "b", "c"} {
		if _, ok := cache.Get(key); ok {
			present++
		}
	}
	if present != 2 {
		t.Fatalf("expected the cache to hold its bound of 2 entries, got %d", present)
	}
}

func TestMemoryDiffCache_PrefersExpiredEntriesOnCleanup(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(2, clock.Now)

	cache.Set("short", []byte("1"), time.Second)
	cache.Set("long", []byte("2"), time.Hour)

	clock.Advance(time.Minute)
	cache.Set("new", []byte("3"), time.Hour)

	if _, ok := cache.Get("long"); !ok {
		t.Fatal("expected the live entry to survive cleanup")
	}
	if _, ok := cache.Get("new"); !ok {
		t.Fatal("expected the fresh entry to be stored")
	}
	if _, ok := cache.Get("short"); ok {
		t.Fatal("expected the expired entry to be gone")
	}
}

func TestMemoryDiffCache_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	clock := &adjustableClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewMemoryDiffCache(8, clock.Now)

	cache.Set("a", []byte("abc"), time.Minute)

	value, ok := cache.Get("a")
	if !ok {
		t.Fatal("expected entry")
	}
	value[0] = 'x'

	again, _ := cache.Get("a")
	if string(again) != "abc" {
		t.Fatalf("expected stored value untouched, got %q", again)
	}
}
