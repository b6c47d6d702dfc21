package vm

import "fmt"

// ---------------------------------------------------------------------------
// Function literals and invocation
// ---------------------------------------------------------------------------

// FunctionLiteral evaluates to the Function registered under a name in
// the executing world. An unknown name yields an undefined stub.
type FunctionLiteral struct {
	nodeBase
	name  string
	cache FunctionCache
}

func NewFunctionLiteral(name string) *FunctionLiteral { return &FunctionLiteral{name: name} }

func (n *FunctionLiteral) Name() string { return n.name }

// Cache exposes the literal's lookup cache.
func (n *FunctionLiteral) Cache() *FunctionCache { return &n.cache }

func (n *FunctionLiteral) ShortName() string { return n.name }

func (n *FunctionLiteral) ExecuteGeneric(w *World, _ *Frame) (Value, error) {
	return n.resolve(w), nil
}

func (n *FunctionLiteral) ExecuteVoid(*World, *Frame) error { return nil }

func (n *FunctionLiteral) resolve(w *World) *Function {
	if !w.engine.SingleWorld() {
		n.cache.Disable()
		return w.registry.Lookup(n.name, true)
	}
	if fn := n.cache.Lookup(); fn != nil {
		return fn
	}
	fn := w.registry.Lookup(n.name, true)
	n.cache.Update(fn)
	return fn
}

// Invoke evaluates a callee and its arguments, left to right, and calls it.
type Invoke struct {
	nodeBase
	callee Node
	args   []Node
}

func NewInvoke(callee Node, args []Node) *Invoke {
	n := &Invoke{callee: callee, args: args}
	n.AddTag(CallTag)
	return n
}

func (n *Invoke) ShortName() string { return "invoke" }

func (n *Invoke) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	callee, err := n.callee.ExecuteGeneric(w, f)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		if args[i], err = a.ExecuteGeneric(w, f); err != nil {
			return nil, err
		}
	}
	return w.invoke(n, callee, args)
}

func (n *Invoke) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}

// invoke performs a call on behalf of site, which may be nil for calls
// made by the embedder.
func (w *World) invoke(site Node, callee Value, args []Value) (Value, error) {
	fn, ok := callee.(*Function)
	if !ok || fn == nil {
		return nil, newFault(CallError, site, "value is not callable", callee)
	}
	root := fn.Root()
	if root == nil {
		return nil, newFault(UndefinedName, site, fmt.Sprintf("undefined function %q", fn.name))
	}
	if len(args) != root.Arity {
		return nil, newFault(CallError, site,
			fmt.Sprintf("%s expects %d argument(s), got %d", fn.name, root.Arity, len(args)))
	}
	for i, a := range args {
		if !isValid(a) {
			return nil, newFault(CallError, site, fmt.Sprintf("argument %d of %s rejected", i+1, fn.name))
		}
	}
	if w.depth >= w.engine.opts.MaxCallDepth {
		return nil, newFault(StackOverflow, site,
			fmt.Sprintf("call depth limit %d exceeded calling %s", w.engine.opts.MaxCallDepth, fn.name))
	}
	w.depth++
	defer func() { w.depth-- }()
	return root.Execute(w, args)
}
