package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string](time.Minute)

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = (%q, %v, %v), want hit", got, ok, err)
	}
	if got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory[int](time.Minute)

	_, ok, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory[string](time.Minute, WithClock[string](clock.Now))

	_ = c.Set(ctx, "short", "x", 10*time.Second)

	clock.Advance(10 * time.Second)
	if _, ok, _ := c.Get(ctx, "short"); !ok {
		t.Error("entry should still be present exactly at expiry")
	}

	clock.Advance(time.Millisecond)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("entry should be gone after its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, Len = %d", c.Len())
	}
}

func TestMemory_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory[string](0, WithClock[string](clock.Now))

	_ = c.Set(ctx, "k", "v", 0)

	clock.Advance(DefaultTTL)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Error("entry should live for the default TTL")
	}
	clock.Advance(time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry should expire after the default TTL")
	}
}

func TestMemory_Overwrite(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory[string](time.Minute, WithClock[string](clock.Now))

	_ = c.Set(ctx, "k", "old", 5*time.Second)
	clock.Advance(4 * time.Second)
	_ = c.Set(ctx, "k", "new", 5*time.Second)
	clock.Advance(4 * time.Second)

	got, ok, _ := c.Get(ctx, "k")
	if !ok || got != "new" {
		t.Errorf("Get = (%q, %v), want (%q, true)", got, ok, "new")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestMemory_ClearExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory[int](time.Minute, WithClock[int](clock.Now))

	_ = c.Set(ctx, "a", 1, time.Second)
	_ = c.Set(ctx, "b", 2, time.Second)
	_ = c.Set(ctx, "c", 3, time.Hour)

	clock.Advance(2 * time.Second)

	if removed := c.ClearExpired(); removed != 2 {
		t.Errorf("ClearExpired() = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("unexpired entry should survive the sweep")
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](time.Minute, WithMaxEntries[int](2))

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	// Reading "a" makes "b" the least recently used.
	_, _, _ = c.Get(ctx, "a")
	_ = c.Set(ctx, "c", 3, 0)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Errorf("entry %q should be present", k)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](time.Minute)

	_ = c.Set(ctx, "k", 1, 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete of missing key = %v, want nil", err)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](time.Minute, WithMaxEntries[int](50))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				_ = c.Set(ctx, key, j, 0)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d exceeds bound", c.Len())
	}
}

func TestLookup_NeighbourOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string](time.Minute)

	_ = c.Set(ctx, "vid:11", "plus one", 0)
	_ = c.Set(ctx, "vid:9", "minus one", 0)

	got, key, ok := Lookup[string](ctx, c, "vid", 10.7)
	if !ok {
		t.Fatal("expected a neighbour hit")
	}
	if key != "vid:9" || got != "minus one" {
		t.Errorf("Lookup = (%q, %q), want (%q, %q)", got, key, "minus one", "vid:9")
	}
}

func TestLookup_ExactFirst(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string](time.Minute)

	_ = c.Set(ctx, "vid:10", "exact", 0)
	_ = c.Set(ctx, "vid:9", "minus one", 0)

	got, key, ok := Lookup[string](ctx, c, "vid", 10)
	if !ok || key != "vid:10" || got != "exact" {
		t.Errorf("Lookup = (%q, %q, %v), want exact hit", got, key, ok)
	}
}

func TestLookup_OutsideNeighbourhood(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string](time.Minute)

	_ = c.Set(ctx, "vid:13", "too far", 0)

	if _, _, ok := Lookup[string](ctx, c, "vid", 10); ok {
		t.Error("a key three seconds away should not match")
	}
}
