package vm

import "sync/atomic"

// Function literal caching
//
// A function literal resolves its name through the world's registry.
// While the engine runs a single world the resolved Function is cached
// at the literal, since the registry keeps Function identity across
// redefinition. Once a second world exists the cache is dropped and
// every evaluation looks the name up in the executing world.

// CacheState represents the current state of a function cache.
type CacheState uint32

const (
	CacheEmpty    CacheState = iota // No cached lookup yet
	CacheResolved                   // Function cached
	CacheDisabled                   // Multiple worlds, always look up
)

func (s CacheState) String() string {
	switch s {
	case CacheResolved:
		return "resolved"
	case CacheDisabled:
		return "disabled"
	default:
		return "empty"
	}
}

// FunctionCache holds the cached lookup for one function literal.
type FunctionCache struct {
	fn       atomic.Pointer[Function]
	disabled atomic.Bool

	// Statistics for profiling
	hits   atomic.Uint64
	misses atomic.Uint64
}

// State returns the current cache state.
func (c *FunctionCache) State() CacheState {
	switch {
	case c.disabled.Load():
		return CacheDisabled
	case c.fn.Load() != nil:
		return CacheResolved
	default:
		return CacheEmpty
	}
}

// Lookup returns the cached function, or nil on a miss.
func (c *FunctionCache) Lookup() *Function {
	if fn := c.fn.Load(); fn != nil {
		c.hits.Add(1)
		return fn
	}
	c.misses.Add(1)
	return nil
}

// Update caches fn unless the cache has been disabled.
func (c *FunctionCache) Update(fn *Function) {
	if fn == nil || c.disabled.Load() {
		return
	}
	c.fn.CompareAndSwap(nil, fn)
}

// Disable clears the cache and stops further caching.
func (c *FunctionCache) Disable() {
	if c.disabled.Swap(true) {
		return
	}
	c.fn.Store(nil)
}

// Stats returns hit and miss counts.
func (c *FunctionCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (c *FunctionCache) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) * 100 / float64(total)
}
