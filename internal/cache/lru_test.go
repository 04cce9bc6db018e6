package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("Get() on empty cache returned a value")
	}
	c.Set("a", 1)
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Fatalf("Get(a) = %v, %v, want 2, true", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", 3)

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Errorf("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 3 {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}

	clock.t = clock.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Errorf("CleanExpired() = %d, size %d", n, c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c, _ := newTestCache(0, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after delete", c.Size())
	}
}

func TestManagerCleanAll(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.t = clock.t.Add(time.Minute)

	m := NewManager()
	m.Register(c)
	if n := m.CleanAll(); n != 2 {
		t.Fatalf("CleanAll() = %d, want 2", n)
	}

	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	NewManager().Stop()
}

func TestLRUCacheReplacePolicy(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute, WithReplacePolicy(func(old, next int) bool { return next >= old }))
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.now

	c.Set("ana", 3)
	c.Set("ana", 2)
	if v, _ := c.Get("ana"); v != 3 {
		t.Errorf("Get(ana) = %d after stale Set, want 3", v)
	}
	c.Set("ana", 5)
	if v, _ := c.Get("ana"); v != 5 {
		t.Errorf("Get(ana) = %d after newer Set, want 5", v)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("ana", 1)
	if v, ok := c.Get("ana"); !ok || v != 1 {
		t.Errorf("Get(ana) = %d, %v, want expired entry replaced by 1", v, ok)
	}
	if got := c.Stats().Rejected; got != 1 {
		t.Errorf("Stats().Rejected = %d, want 1", got)
	}
}
