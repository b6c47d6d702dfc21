package vm

import (
	"sync"
	"testing"
)

func TestFunctionCacheEmpty(t *testing.T) {
	var c FunctionCache
	if c.State() != CacheEmpty {
		t.Errorf("state = %v, want empty", c.State())
	}
	if fn := c.Lookup(); fn != nil {
		t.Error("Expected nil from empty cache")
	}
	if _, misses := c.Stats(); misses != 1 {
		t.Errorf("Expected 1 miss, got %d", misses)
	}
}

func TestFunctionCacheResolved(t *testing.T) {
	var c FunctionCache
	r := NewFunctionRegistry()
	fn := r.Lookup("f", true)
	other := r.Lookup("g", true)

	c.Update(fn)
	if c.State() != CacheResolved {
		t.Errorf("state = %v, want resolved", c.State())
	}
	// The first resolution sticks.
	c.Update(other)
	if got := c.Lookup(); got != fn {
		t.Errorf("Lookup = %v, want f", got)
	}
	if hits, _ := c.Stats(); hits != 1 {
		t.Errorf("Expected 1 hit, got %d", hits)
	}
	if rate := c.HitRate(); rate != 100 {
		t.Errorf("hit rate = %v", rate)
	}
}

func TestFunctionCacheDisable(t *testing.T) {
	var c FunctionCache
	fn := NewFunctionRegistry().Lookup("f", true)
	c.Update(fn)
	c.Disable()

	if c.State() != CacheDisabled {
		t.Errorf("state = %v, want disabled", c.State())
	}
	if c.Lookup() != nil {
		t.Error("disabled cache returned a function")
	}
	c.Update(fn)
	if c.Lookup() != nil {
		t.Error("disabled cache accepted an update")
	}
}

func TestFunctionCacheConcurrentUpdate(t *testing.T) {
	var c FunctionCache
	r := NewFunctionRegistry()
	fns := []*Function{r.Lookup("a", true), r.Lookup("b", true), r.Lookup("c", true)}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Update(fns[i%len(fns)])
			c.Lookup()
		}(i)
	}
	wg.Wait()

	got := c.Lookup()
	if got == nil {
		t.Fatal("cache empty after concurrent updates")
	}
	for i := 0; i < 10; i++ {
		if c.Lookup() != got {
			t.Fatal("cached function changed")
		}
	}
}
