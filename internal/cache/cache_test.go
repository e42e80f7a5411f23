package cache

import (
	"sync"
	"testing"
)

func TestNewSharded(t *testing.T) {
	c := NewSharded[int, int](100, IntHasher)
	if c.Capacity() != 100 {
		t.Errorf("expected capacity 100, got %d", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
	if d := NewSharded[int, int](0, IntHasher); d.Capacity() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, d.Capacity())
	}
}

func TestShardedCacheGetSet(t *testing.T) {
	c := NewSharded[int, string](10, IntHasher)

	c.Set(1, "one")
	if v, ok := c.Get(1); !ok || v != "one" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	c.Set(1, "uno")
	if v, _ := c.Get(1); v != "uno" {
		t.Errorf("Get(1) after overwrite = %q", v)
	}
	if _, ok := c.Get(2); ok {
		t.Error("expected missing key to not exist")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestShardedCacheGetOrCreate(t *testing.T) {
	c := NewSharded[int, *int](10, IntHasher)
	created := 0
	create := func() *int {
		created++
		v := created
		return &v
	}

	a := c.GetOrCreate(7, create)
	b := c.GetOrCreate(7, create)
	if a != b {
		t.Error("GetOrCreate returned different values for one key")
	}
	if created != 1 {
		t.Errorf("create called %d times, want 1", created)
	}
}

// sameShardKeys returns n distinct keys that hash to one shard.
func sameShardKeys(n int) []int {
	want := IntHasher(0) & shardMask
	keys := []int{0}
	for k := 1; len(keys) < n; k++ {
		if IntHasher(k)&shardMask == want {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestShardedCacheEvictsOldest(t *testing.T) {
	c := NewSharded[int, int](2, IntHasher)
	k := sameShardKeys(3)

	c.Set(k[0], 0)
	c.Set(k[1], 1)
	c.Get(k[0]) // k[1] is now the oldest
	c.Set(k[2], 2)

	if _, ok := c.Get(k[1]); ok {
		t.Error("least recently used key survived eviction")
	}
	for _, key := range []int{k[0], k[2]} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("key %d was evicted", key)
		}
	}
	if ev := c.Stats().Evictions; ev != 1 {
		t.Errorf("Evictions = %d, want 1", ev)
	}
}

func TestShardedCacheStats(t *testing.T) {
	c := NewSharded[int, int](10, IntHasher)

	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1)  // hit
	c.Get(1)  // hit
	c.Get(99) // miss

	c.GetOrCreate(3, func() int { return 3 }) // miss

	stats := c.Stats()
	if stats.Len != 3 {
		t.Errorf("expected Len=3, got %d", stats.Len)
	}
	if stats.Hits != 2 {
		t.Errorf("expected Hits=2, got %d", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("expected Misses=2, got %d", stats.Misses)
	}
}

func TestShardedCacheConcurrent(t *testing.T) {
	c := NewSharded[int, *int](100, IntHasher)
	var wg sync.WaitGroup

	results := make([][]*int, 50)
	for g := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range 20 {
				results[g] = append(results[g], c.GetOrCreate(k, func() *int { v := k; return &v }))
			}
		}()
	}
	wg.Wait()

	for g := range results {
		for k, p := range results[g] {
			if p != results[0][k] {
				t.Fatalf("goroutine %d saw a different value for key %d", g, k)
			}
		}
	}
	if c.Len() != 20 {
		t.Errorf("Len = %d, want 20", c.Len())
	}
}

func TestIntHasher(t *testing.T) {
	if IntHasher(42) != IntHasher(42) {
		t.Error("IntHasher not deterministic")
	}
	if IntHasher(42) == IntHasher(43) {
		t.Error("IntHasher collision for different ints")
	}
}

// LRU list tests

func TestLRUList(t *testing.T) {
	l := newLRUList[string]()

	if l.Len() != 0 {
		t.Errorf("expected empty list, got %d", l.Len())
	}

	n1 := l.PushFront("a")
	n2 := l.PushFront("b")
	l.PushFront("c")

	if l.Len() != 3 {
		t.Errorf("expected 3 elements, got %d", l.Len())
	}

	// c is at front, a is oldest
	if oldest, ok := l.Oldest(); !ok || oldest != "a" {
		t.Errorf("expected oldest to be 'a', got %v", oldest)
	}

	l.MoveToFront(n1)
	if oldest, _ := l.Oldest(); oldest != "b" {
		t.Errorf("expected oldest to be 'b' after moving 'a', got %v", oldest)
	}

	l.Remove(n2)
	if l.Len() != 2 {
		t.Errorf("expected 2 elements after remove, got %d", l.Len())
	}

	if removed, ok := l.RemoveOldest(); !ok || removed != "c" {
		t.Errorf("expected to remove 'c', got %v", removed)
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 element, got %d", l.Len())
	}

	l.Clear()
	if l.Len() != 0 {
		t.Errorf("expected empty list after clear, got %d", l.Len())
	}
}

func TestLRUListEmptyOperations(t *testing.T) {
	l := newLRUList[int]()

	if _, ok := l.RemoveOldest(); ok {
		t.Error("expected RemoveOldest to return false on empty list")
	}
	if _, ok := l.Oldest(); ok {
		t.Error("expected Oldest to return false on empty list")
	}

	l.Remove(nil)      // Should not panic
	l.MoveToFront(nil) // Should not panic
}
