package server

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/chazu/lama/compiler"
	"github.com/chazu/lama/vm"
)

// ProgramCache holds compiled programs keyed by the SHA-256 of their
// source. Cached trees are shared by every world that runs them.
type ProgramCache struct {
	engine *vm.Engine

	mu       sync.RWMutex
	programs map[string]*vm.Program

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewProgramCache creates an empty cache compiling against engine.
func NewProgramCache(engine *vm.Engine) *ProgramCache {
	return &ProgramCache{
		engine:   engine,
		programs: make(map[string]*vm.Program),
	}
}

// SourceHash returns the hex SHA-256 of source.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the compiled program for source, parsing it on first use.
// Sources that fail to parse are not cached.
func (c *ProgramCache) Get(source string) (*vm.Program, string, error) {
	hash := SourceHash(source)

	c.mu.RLock()
	prog, ok := c.programs[hash]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return prog, hash, nil
	}

	c.misses.Add(1)
	prog, err := compiler.Parse(c.engine, source)
	if err != nil {
		return nil, hash, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another request may have compiled the same source meanwhile.
	if existing, ok := c.programs[hash]; ok {
		return existing, hash, nil
	}
	c.programs[hash] = prog
	return prog, hash, nil
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// Stats returns the hit and miss counts.
func (c *ProgramCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
