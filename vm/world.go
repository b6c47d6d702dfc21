package vm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Program is the result of parsing one source text: a main body plus
// the functions it declares.
type Program struct {
	Main      *RootNode
	Functions []*RootNode
}

// ErrWorldClosed is returned when a closed world is used.
var ErrWorldClosed = errors.New("world is closed")

// World is one isolated execution context: its own function registry,
// I/O and call depth. Trees are shared between worlds of an engine;
// everything a node needs at run time is reached through the world.
// A world runs on one goroutine at a time.
type World struct {
	id       uuid.UUID
	engine   *Engine
	registry *FunctionRegistry
	in       Input
	out      Output
	depth    int
	closed   bool
}

// NewWorld creates a world with the read and write built-ins installed.
func (e *Engine) NewWorld(in Input, out Output) *World {
	w := &World{
		id:       uuid.New(),
		engine:   e,
		registry: NewFunctionRegistry(),
		in:       in,
		out:      out,
	}
	installBuiltins(w.registry)
	e.worldCreated()
	log.Debugf("world %s created", w.id)
	return w
}

// ID returns the world's unique identifier.
func (w *World) ID() string { return w.id.String() }

func (w *World) Engine() *Engine             { return w.engine }
func (w *World) Registry() *FunctionRegistry { return w.registry }

// Load registers the program's functions without running its main body.
func (w *World) Load(p *Program) error {
	if w.closed {
		return ErrWorldClosed
	}
	w.registry.RegisterAll(p.Functions)
	return nil
}

// Run loads p and executes its main body, returning the value of the
// last top-level statement.
func (w *World) Run(p *Program) (Value, error) {
	if err := w.Load(p); err != nil {
		return nil, err
	}
	if p.Main == nil {
		return Null, nil
	}
	w.depth = 0
	return p.Main.Execute(w, nil)
}

// Call invokes the function registered under name.
func (w *World) Call(name string, args ...Value) (Value, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	fn := w.registry.Lookup(name, false)
	if fn == nil {
		return nil, &Fault{Kind: UndefinedName, Message: fmt.Sprintf("undefined function %q", name)}
	}
	return w.invoke(nil, fn, args)
}

// Close releases the world. Further use fails with ErrWorldClosed.
func (w *World) Close() {
	if !w.closed {
		w.closed = true
		log.Debugf("world %s closed", w.id)
	}
}
