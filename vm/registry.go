package vm

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Functions and roots
// ---------------------------------------------------------------------------

// BuiltinFunc implements a function in Go.
type BuiltinFunc func(w *World, args []Value) (Value, error)

// RootNode is the executable body of a function: either a tree built by
// the compiler or a Go built-in.
type RootNode struct {
	Name       string
	Arity      int
	Descriptor *FrameDescriptor
	Body       Node
	Section    *SourceSection

	builtin BuiltinFunc
}

// NewRootNode wraps a compiled body.
func NewRootNode(name string, arity int, desc *FrameDescriptor, body Node) *RootNode {
	body.AddTag(RootTag)
	return &RootNode{Name: name, Arity: arity, Descriptor: desc, Body: body}
}

// NewBuiltinRoot wraps a Go function.
func NewBuiltinRoot(name string, arity int, fn BuiltinFunc) *RootNode {
	return &RootNode{Name: name, Arity: arity, builtin: fn}
}

// IsBuiltin reports whether the root is implemented in Go.
func (r *RootNode) IsBuiltin() bool { return r.builtin != nil }

// Execute runs the root with a fresh frame.
func (r *RootNode) Execute(w *World, args []Value) (Value, error) {
	if r.builtin != nil {
		return r.builtin(w, args)
	}
	return r.Body.ExecuteGeneric(w, NewFrame(r.Descriptor, args))
}

// Function is a named, callable entry in a world's registry. Its
// identity survives redefinition: only the root it points to changes.
type Function struct {
	name string
	root atomic.Pointer[RootNode]
}

func (*Function) Kind() Kind { return KindFunction }
func (*Function) value()     {}

// Name returns the function name.
func (fn *Function) Name() string { return fn.name }

// Root returns the current definition, or nil for an undefined stub.
func (fn *Function) Root() *RootNode { return fn.root.Load() }

// IsDefined reports whether the function has a body.
func (fn *Function) IsDefined() bool { return fn.root.Load() != nil }

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// FunctionRegistry maps names to functions within one world.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]*Function
}

// NewFunctionRegistry creates an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]*Function)}
}

// Lookup returns the function registered under name. When create is
// true a missing name gets an undefined stub, so that references made
// before a definition resolve to the same function afterwards.
func (r *FunctionRegistry) Lookup(name string, create bool) *Function {
	// Fast path: read lock
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn != nil || !create {
		return fn
	}

	// Slow path: write lock, double-check
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn = r.functions[name]; fn == nil {
		fn = &Function{name: name}
		r.functions[name] = fn
	}
	return fn
}

// Register installs root under name, replacing any previous definition
// while keeping the Function identity.
func (r *FunctionRegistry) Register(name string, root *RootNode) *Function {
	fn := r.Lookup(name, true)
	if old := fn.root.Swap(root); old != nil {
		log.Debugf("function %q redefined", name)
	}
	return fn
}

// RegisterAll installs every root under its own name.
func (r *FunctionRegistry) RegisterAll(roots []*RootNode) {
	for _, root := range roots {
		r.Register(root.Name, root)
	}
}

// Functions returns all entries sorted by name, stubs included.
func (r *FunctionRegistry) Functions() []*Function {
	r.mu.RLock()
	out := make([]*Function, 0, len(r.functions))
	for _, fn := range r.functions {
		out = append(out, fn)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Len returns the number of entries.
func (r *FunctionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}
