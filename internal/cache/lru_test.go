package cache

import (
	"sync"
	"testing"
)

func TestLRU_EvictsLeastRecent(t *testing.T) {
	c := New[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)

	// touch a so b becomes LRU
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestLRU_UpdateAndRemove(t *testing.T) {
	c := New[string, string](4)
	c.Add("k", "old")
	c.Add("k", "new")
	if v, _ := c.Get("k"); v != "new" {
		t.Fatalf("Get(k) = %q, want new", v)
	}
	c.Remove("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("k still present after Remove")
	}
}

func TestLRU_ConcurrentUse(t *testing.T) {
	c := New[int, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Add(g*1000+i, i)
				c.Get(g*1000 + i)
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}

func TestNew_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New[string, int](0)
}
