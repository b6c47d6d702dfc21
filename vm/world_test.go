package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Registry, invocation and multi-world tests
// ---------------------------------------------------------------------------

// squareRoot builds "fun square(n) { n * n }" by hand.
func squareRoot() *RootNode {
	d := NewFrameDescriptor()
	n, _ := d.FindOrAddSlot("n")
	body := NewBlock([]Node{
		NewWriteLocal(n, NewReadArgument(0), true),
		NewArithmetic(OpMul, ArbitraryPrecision, NewReadLocal(n), NewReadLocal(n)),
	})
	return NewRootNode("square", 1, d, body)
}

func constRoot(name string, v int64) *RootNode {
	return NewRootNode(name, 0, NewFrameDescriptor(), lit(v))
}

func TestRegistryLookupCreatesStub(t *testing.T) {
	r := NewFunctionRegistry()
	if fn := r.Lookup("f", false); fn != nil {
		t.Fatal("lookup without create returned a function")
	}
	stub := r.Lookup("f", true)
	if stub == nil || stub.IsDefined() {
		t.Fatal("expected an undefined stub")
	}
	def := r.Register("f", constRoot("f", 1))
	if def != stub {
		t.Error("registering must keep the stub's identity")
	}
	redef := r.Register("f", constRoot("f", 2))
	if redef != stub || stub.Root().Body.(*LongLiteral).value != 2 {
		t.Error("redefinition must keep identity and replace the root")
	}
	if r.Len() != 1 || r.Functions()[0] != stub {
		t.Errorf("registry holds %d entries", r.Len())
	}
}

func TestInvoke(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	w.Registry().Register("square", squareRoot())

	if v := mustEval(t, w, call("square", lit(12))); v != Long(144) {
		t.Errorf("square(12) = %v", v)
	}
	v, err := w.Call("square", Long(3))
	if err != nil || v != Long(9) {
		t.Errorf("Call(square, 3) = %v, %v", v, err)
	}
}

func TestInvokeFaults(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	w.Registry().Register("square", squareRoot())

	_, err := eval(t, w, call("square"))
	expectFault(t, err, CallError)

	_, err = eval(t, w, call("missing", lit(1)))
	expectFault(t, err, UndefinedName)

	_, err = eval(t, w, NewInvoke(lit(3), nil))
	expectFault(t, err, CallError)

	_, err = w.Call("square", nil)
	expectFault(t, err, CallError)

	_, err = w.Call("nothing")
	expectFault(t, err, UndefinedName)
}

func TestInvokeEvaluatesLeftToRight(t *testing.T) {
	w, out := newTestWorld(t, DefaultOptions())
	d := NewFrameDescriptor()
	body := NewArithmetic(OpSub, ArbitraryPrecision, NewReadArgument(0), NewReadArgument(1))
	w.Registry().Register("sub", NewRootNode("sub", 2, d, body))

	v := mustEval(t, w, call("sub", call("write", lit(10)), call("write", lit(4))))
	if v != Long(6) {
		t.Errorf("sub = %v", v)
	}
	if got := strings.Join(out.Lines(), ","); got != "10,4" {
		t.Errorf("argument order = %s", got)
	}
}

func TestStackOverflow(t *testing.T) {
	w, _ := newTestWorld(t, Options{MaxCallDepth: 50})
	// fun loop() { loop() }
	w.Registry().Register("loop", NewRootNode("loop", 0, NewFrameDescriptor(), call("loop")))
	_, err := w.Call("loop")
	expectFault(t, err, StackOverflow)

	// The depth counter unwinds with the fault.
	w.Registry().Register("one", constRoot("one", 1))
	if v, err := w.Call("one"); err != nil || v != Long(1) {
		t.Errorf("call after overflow = %v, %v", v, err)
	}
}

func TestReadWriteBuiltins(t *testing.T) {
	w, out := newTestWorld(t, DefaultOptions(), "first", "second")
	for _, want := range []string{"first", "second", ""} {
		v := mustEval(t, w, call("read"))
		if v != String(want) {
			t.Errorf("read = %q, want %q", Display(v), want)
		}
	}
	v := mustEval(t, w, call("write", NewArrayLiteral([]Node{lit(1), NewNullLiteral()})))
	if _, ok := v.(*Array); !ok {
		t.Errorf("write returned %s, want its argument", TypeName(v))
	}
	if lines := out.Lines(); len(lines) != 1 || lines[0] != "[1, NULL]" {
		t.Errorf("output = %q", lines)
	}
}

func TestReaderInput(t *testing.T) {
	in := NewReaderInput(strings.NewReader("a\r\nb\nc"))
	for _, want := range []string{"a", "b", "c"} {
		line, err := in.ReadLine()
		if err != nil || line != want {
			t.Errorf("ReadLine = %q, %v; want %q", line, err, want)
		}
	}
	if _, err := in.ReadLine(); err == nil {
		t.Error("expected EOF")
	}
}

func TestWorldRunProgram(t *testing.T) {
	w, out := newTestWorld(t, DefaultOptions())
	p := &Program{
		Main: NewRootNode("main", 0, NewFrameDescriptor(), NewBlock([]Node{
			call("write", call("square", lit(5))),
			lit(99),
		})),
		Functions: []*RootNode{squareRoot()},
	}
	v, err := w.Run(p)
	if err != nil || v != Long(99) {
		t.Fatalf("Run = %v, %v", v, err)
	}
	if lines := out.Lines(); len(lines) != 1 || lines[0] != "25" {
		t.Errorf("output = %q", lines)
	}

	w.Close()
	if _, err := w.Run(p); err != ErrWorldClosed {
		t.Errorf("Run on closed world = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Multi-world tests
//
// Trees are shared between worlds of one engine. Function literals may
// only cache while a single world exists.
// ---------------------------------------------------------------------------

func TestSingleWorldCachesFunctionLiteral(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	w.Registry().Register("one", constRoot("one", 1))

	lit := NewFunctionLiteral("one")
	f := NewFrame(NewFrameDescriptor(), nil)
	for i := 0; i < 3; i++ {
		if _, err := lit.ExecuteGeneric(w, f); err != nil {
			t.Fatal(err)
		}
	}
	if lit.Cache().State() != CacheResolved {
		t.Fatalf("cache state = %s, want resolved", lit.Cache().State())
	}
	hits, misses := lit.Cache().Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", hits, misses)
	}

	// Redefinition is visible through the cached function.
	w.Registry().Register("one", constRoot("one", 11))
	if v := mustEval(t, w, NewInvoke(lit, nil)); v != Long(11) {
		t.Errorf("call after redefinition = %v", v)
	}
}

func TestMultiWorld_SharedTreeResolvesPerWorld(t *testing.T) {
	e := NewEngine(DefaultOptions())
	w1 := e.NewWorld(NewLinesInput(nil), &LineBuffer{})
	defer w1.Close()
	w1.Registry().Register("answer", constRoot("answer", 1))

	shared := NewInvoke(NewFunctionLiteral("answer"), nil)
	f := NewFrame(NewFrameDescriptor(), nil)
	if v, _ := shared.ExecuteGeneric(w1, f); v != Long(1) {
		t.Fatalf("w1 answer = %v", v)
	}
	if !e.SingleWorld() {
		t.Fatal("engine should still be single-world")
	}

	w2 := e.NewWorld(NewLinesInput(nil), &LineBuffer{})
	defer w2.Close()
	w2.Registry().Register("answer", constRoot("answer", 2))
	if e.SingleWorld() {
		t.Fatal("second world must invalidate the single-world assumption")
	}

	// The tree cached w1's function; each world must now see its own.
	if v, _ := shared.ExecuteGeneric(w2, f); v != Long(2) {
		t.Errorf("w2 answer = %v, want 2", v)
	}
	if v, _ := shared.ExecuteGeneric(w1, f); v != Long(1) {
		t.Errorf("w1 answer = %v, want 1", v)
	}
	lit := shared.callee.(*FunctionLiteral)
	if lit.Cache().State() != CacheDisabled {
		t.Errorf("cache state = %s, want disabled", lit.Cache().State())
	}
}

func TestMultiWorld_ModeNeverCaches(t *testing.T) {
	e := NewEngine(Options{Worlds: MultiWorldMode})
	w := e.NewWorld(NewLinesInput(nil), &LineBuffer{})
	defer w.Close()
	if e.SingleWorld() {
		t.Fatal("multi-world engine reports single world")
	}
	lit := NewFunctionLiteral("write")
	if _, err := lit.ExecuteGeneric(w, NewFrame(NewFrameDescriptor(), nil)); err != nil {
		t.Fatal(err)
	}
	if hits, misses := lit.Cache().Stats(); hits != 0 || misses != 0 {
		t.Errorf("cache consulted in multi-world mode: %d/%d", hits, misses)
	}
}

func TestMultiWorld_IndependentOutput(t *testing.T) {
	e := NewEngine(DefaultOptions())
	out1, out2 := &LineBuffer{}, &LineBuffer{}
	w1 := e.NewWorld(NewLinesInput([]string{"one"}), out1)
	w2 := e.NewWorld(NewLinesInput([]string{"two"}), out2)
	defer w1.Close()
	defer w2.Close()

	echo := call("write", call("read"))
	f := NewFrame(NewFrameDescriptor(), nil)
	if _, err := echo.ExecuteGeneric(w1, f); err != nil {
		t.Fatal(err)
	}
	if _, err := echo.ExecuteGeneric(w2, f); err != nil {
		t.Fatal(err)
	}
	if got := out1.Lines(); len(got) != 1 || got[0] != "one" {
		t.Errorf("w1 output = %q", got)
	}
	if got := out2.Lines(); len(got) != 1 || got[0] != "two" {
		t.Errorf("w2 output = %q", got)
	}
	if w1.ID() == w2.ID() {
		t.Error("worlds share an ID")
	}
}
