package cache

import (
	"testing"
	"time"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("get a = %d, %v", v, ok)
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive eviction")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expired entry should miss")
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d after expiry access", c.Size())
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry must survive cleanup")
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](10, time.Minute))
	m.StartCleanup(time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	m.Stop()
}

func TestCacheContract(t *testing.T) {
	// Callers hold the LRU through the Cache interface.
	var c Cache[string] = NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("get a = %q, %v", v, ok)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted entry should miss")
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d, want 0", c.Size())
	}
}

func TestOverwriteKeepsSingleEntry(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Fatalf("get = %d, %v, want 2", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}
