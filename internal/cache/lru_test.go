package cache

import (
	"slices"
	"sync"
	"testing"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v; want 1, true", v, ok)
	}
	if v, ok := c.Peek("b"); !ok || v != 2 {
		t.Errorf("Peek(b) = %v, %v; want 2, true", v, ok)
	}
	if !c.Contains("c") {
		t.Error("Contains(c) should be true")
	}
	if _, ok := c.Get("d"); ok {
		t.Error("Get(d) should return false for missing key")
	}
}

func TestLRU_Eviction(t *testing.T) {
	t.Run("get promotes", func(t *testing.T) {
		c := NewLRU[string, int](2)

		c.Put("a", 1)
		c.Put("b", 2)
		c.Get("a")

		if !c.Put("c", 3) {
			t.Error("Put(c) should report an eviction")
		}
		if c.Contains("b") {
			t.Error("b should have been evicted")
		}
		if !c.Contains("a") || !c.Contains("c") {
			t.Errorf("unexpected keys: %v", c.Keys())
		}
	})

	t.Run("contains does not promote", func(t *testing.T) {
		c := NewLRU[string, int](2)

		c.Put("a", 1)
		c.Put("b", 2)
		c.Contains("a")
		c.Peek("a")
		c.Put("c", 3)

		if c.Contains("a") {
			t.Error("a should have been evicted first")
		}
	})

	t.Run("evict callback sees evicted entries", func(t *testing.T) {
		var evicted []string
		c := NewLRU(1, WithEvictCallback(func(k string, _ int) {
			evicted = append(evicted, k)
		}))

		c.Put("a", 1)
		c.Put("b", 2)
		c.Delete("b")

		if !slices.Equal(evicted, []string{"a"}) {
			t.Errorf("evicted = %v; want [a]", evicted)
		}
	})
}

func TestLRU_Update(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	if c.Put("a", 2) {
		t.Error("updating an existing key should not evict")
	}

	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %v, %v; want 2, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestLRU_Delete(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)

	if !c.Delete("a") {
		t.Error("Delete(a) should return true")
	}
	if c.Delete("a") {
		t.Error("Delete(a) again should return false")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestLRU_KeysAndResize(t *testing.T) {
	c := NewLRU[int, struct{}](5)
	for i := 1; i <= 5; i++ {
		c.Put(i, struct{}{})
	}

	if got := c.Keys(); !slices.Equal(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Keys() = %v; want oldest first", got)
	}

	if n := c.Resize(2); n != 3 {
		t.Errorf("Resize(2) evicted %d; want 3", n)
	}
	if got := c.Keys(); !slices.Equal(got, []int{4, 5}) {
		t.Errorf("Keys() after resize = %v; want [4 5]", got)
	}
	if c.Cap() != 2 {
		t.Errorf("Cap() = %d; want 2", c.Cap())
	}
	if c.Stats().Evictions != 3 {
		t.Errorf("Evictions = %d; want 3", c.Stats().Evictions)
	}
}

func TestLRU_Clear(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear; want 0", c.Len())
	}
	if len(c.Keys()) != 0 {
		t.Error("Keys() should be empty after Clear")
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")
	c.Get("c")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 2 {
		t.Errorf("hits, misses = %d, %d; want 2, 2", s.Hits, s.Misses)
	}
	if s.HitRate() != 50 {
		t.Errorf("HitRate() = %f; want 50", s.HitRate())
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("empty stats should have a zero hit rate")
	}
}

func TestLRU_MinCapacity(t *testing.T) {
	c := NewLRU[string, int](0)

	c.Put("a", 1)
	c.Put("b", 2)

	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
	if c.Contains("a") {
		t.Error("a should have been evicted")
	}
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int, int](100)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(base*100+j, j)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(j)
				c.Contains(j)
			}
		}()
	}

	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d; want <= 100", c.Len())
	}
}

func BenchmarkLRU_Put(b *testing.B) {
	c := NewLRU[int, int](1000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c.Put(i%10000, i)
	}
}

func BenchmarkLRU_Contains(b *testing.B) {
	c := NewLRU[int, int](1000)
	for i := 0; i < 1000; i++ {
		c.Put(i, i)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c.Contains(i % 2000)
	}
}
