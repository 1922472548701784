package cache

import (
	"errors"
	"strconv"
	"sync"
	"testing"
)

func TestCache_Basic(t *testing.T) {
	c := New[string, int](10)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = true; want false")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
	if s := c.Stats(); s.Evicts != 1 {
		t.Errorf("Evicts = %d; want 1", s.Evicts)
	}
}

func TestCache_Update(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)
	c.Set("a", 2)

	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d; want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](10)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d; want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.75 {
		t.Errorf("HitRate = %f; want 0.75", s.HitRate)
	}
	if s.Size != 1 || s.Capacity != 10 {
		t.Errorf("Size/Capacity = %d/%d; want 1/10", s.Size, s.Capacity)
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[string, int](10)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := c.GetOrLoad("x", load)
	if err != nil || v != 42 || hit {
		t.Errorf("first GetOrLoad = %d, %v, %v; want 42, false, nil", v, hit, err)
	}
	v, hit, err = c.GetOrLoad("x", load)
	if err != nil || v != 42 || !hit {
		t.Errorf("second GetOrLoad = %d, %v, %v; want 42, true, nil", v, hit, err)
	}
	if calls != 1 {
		t.Errorf("load called %d times; want 1", calls)
	}
}

func TestCache_GetOrLoadError(t *testing.T) {
	c := New[string, int](10)
	boom := errors.New("boom")

	_, _, err := c.GetOrLoad("x", func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("GetOrLoad error = %v; want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d; errors must not be cached", c.Len())
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := New[string, int](0)
	if s := c.Stats(); s.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d; want %d", s.Capacity, DefaultCapacity)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[string, int](50)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := strconv.Itoa(i % 20)
			_, _, _ = c.GetOrLoad(key, func() (int, error) { return i, nil })
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() != 20 {
		t.Errorf("Len() = %d; want 20", c.Len())
	}
}

func BenchmarkCache_Get(b *testing.B) {
	c := New[string, int](100)
	c.Set("key", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}
