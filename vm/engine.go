package vm

import (
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lama.vm")

// WorldMode tells the engine how many worlds to expect.
type WorldMode uint8

const (
	// SingleWorldMode assumes one world until a second is created.
	SingleWorldMode WorldMode = iota
	// MultiWorldMode never assumes a single world.
	MultiWorldMode
)

func (m WorldMode) String() string {
	if m == MultiWorldMode {
		return "multi"
	}
	return "single"
}

// DefaultMaxCallDepth bounds guest recursion when Options leaves it unset.
const DefaultMaxCallDepth = 4096

// Options configure an Engine.
type Options struct {
	Arithmetic        ArithmeticPolicy
	CrossKindEquality EqualityPolicy
	Worlds            WorldMode
	MaxCallDepth      int
}

// DefaultOptions returns bignum arithmetic, false cross-kind equality,
// single-world mode and the default call depth.
func DefaultOptions() Options {
	return Options{MaxCallDepth: DefaultMaxCallDepth}
}

// Engine owns the policies that are fixed when trees are built and
// tracks how many worlds share those trees.
type Engine struct {
	opts        Options
	singleWorld atomic.Bool
	worlds      atomic.Int64
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	e := &Engine{opts: opts}
	e.singleWorld.Store(opts.Worlds == SingleWorldMode)
	return e
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// SingleWorld reports whether at most one world has ever been created
// in single-world mode. Once false it stays false.
func (e *Engine) SingleWorld() bool { return e.singleWorld.Load() }

// WorldCount returns the number of worlds created so far.
func (e *Engine) WorldCount() int64 { return e.worlds.Load() }

func (e *Engine) worldCreated() {
	if e.worlds.Add(1) > 1 && e.singleWorld.CompareAndSwap(true, false) {
		log.Notice("second world created; function literal caching disabled")
	}
}
