package vm

import "testing"

// newTestWorld creates a single world on a fresh engine.
func newTestWorld(t *testing.T, opts Options, input ...string) (*World, *LineBuffer) {
	t.Helper()
	out := &LineBuffer{}
	w := NewEngine(opts).NewWorld(NewLinesInput(input), out)
	t.Cleanup(w.Close)
	return w, out
}

func lit(v int64) Node        { return NewLongLiteral(v) }
func str(s string) Node       { return NewStringLiteral(s) }
func boolean(b bool) Node     { return NewBooleanLiteral(b) }
func add(a, b Node) Node      { return NewArithmetic(OpAdd, ArbitraryPrecision, a, b) }
func call(name string, args ...Node) Node {
	return NewInvoke(NewFunctionLiteral(name), args)
}

// eval runs n in a throwaway frame.
func eval(t *testing.T, w *World, n Node) (Value, error) {
	t.Helper()
	return n.ExecuteGeneric(w, NewFrame(NewFrameDescriptor(), nil))
}

func mustEval(t *testing.T, w *World, n Node) Value {
	t.Helper()
	v, err := eval(t, w, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func expectFault(t *testing.T, err error, kind FaultKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s fault, got nil", kind)
	}
	if !IsFault(err, kind) {
		t.Fatalf("expected %s fault, got %v", kind, err)
	}
}

// counter is a node that counts how often it ran.
type counter struct {
	nodeBase
	result Value
	runs   int
}

func (c *counter) ShortName() string { return "counter" }

func (c *counter) ExecuteGeneric(*World, *Frame) (Value, error) {
	c.runs++
	return c.result, nil
}

func (c *counter) ExecuteVoid(w *World, f *Frame) error {
	_, err := c.ExecuteGeneric(w, f)
	return err
}
