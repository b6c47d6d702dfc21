package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/lama/vm"
)

func mustParse(t *testing.T, src string) *vm.Program {
	t.Helper()
	prog, err := Parse(vm.NewEngine(vm.DefaultOptions()), src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return prog
}

func mainStatements(t *testing.T, prog *vm.Program) []vm.Node {
	t.Helper()
	block, ok := prog.Main.Body.(*vm.Block)
	if !ok {
		t.Fatalf("main body is %T, want *vm.Block", prog.Main.Body)
	}
	return block.Statements()
}

func TestParseFunctions(t *testing.T) {
	prog := mustParse(t, `
fun add(a, b) { a + b }
fun zero() { 0 }
add(1, 2)
`)
	if len(prog.Functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(prog.Functions))
	}
	add := prog.Functions[0]
	if add.Name != "add" || add.Arity != 2 {
		t.Errorf("first function = %s/%d", add.Name, add.Arity)
	}
	// Parameters are copied into slots by a prologue of declarations.
	stmts := add.Body.(*vm.Block).Statements()
	if len(stmts) != 3 {
		t.Fatalf("add body has %d statements, want 3", len(stmts))
	}
	for i, s := range stmts[:2] {
		w, ok := s.(*vm.WriteLocal)
		if !ok || !w.IsDeclaration() || w.Slot().Index != i {
			t.Errorf("prologue[%d] = %T", i, s)
		}
		if vm.HasTag(s, vm.StatementTag) {
			t.Errorf("prologue[%d] must not be tagged as a statement", i)
		}
	}
	if add.Section == nil || !strings.HasPrefix(add.Section.String(), "[1,") {
		t.Errorf("add section = %v", add.Section)
	}
	if zero := prog.Functions[1]; zero.Arity != 0 {
		t.Errorf("zero arity = %d", zero.Arity)
	}
}

func TestParseBlockScoping(t *testing.T) {
	prog := mustParse(t, "x := 1\n{ y := 2 }\ny\nx")
	stmts := mainStatements(t, prog)
	if len(stmts) != 4 {
		t.Fatalf("nested block not flattened: %d statements", len(stmts))
	}
	if _, ok := stmts[2].(*vm.FunctionLiteral); !ok {
		t.Errorf("y outside its block resolved to %T, want function literal", stmts[2])
	}
	if _, ok := stmts[3].(*vm.ReadLocal); !ok {
		t.Errorf("x resolved to %T, want local read", stmts[3])
	}
}

func TestParseSiblingBlocksShareSlot(t *testing.T) {
	prog := mustParse(t, "{ a := 1 } { a := \"s\" } { b := 3 }")
	if n := prog.Main.Descriptor.Size(); n != 2 {
		t.Errorf("descriptor size = %d, want 2", n)
	}
	stmts := mainStatements(t, prog)
	first := stmts[0].(*vm.WriteLocal)
	second := stmts[1].(*vm.WriteLocal)
	if first.Slot() != second.Slot() {
		t.Error("sibling blocks should reuse the slot for a")
	}
	if !first.IsDeclaration() || !second.IsDeclaration() {
		t.Error("each sibling assignment declares a new variable")
	}
}

func TestParseReassignmentMutatesOuterSlot(t *testing.T) {
	prog := mustParse(t, "x := 1\nif true { x := 2 }")
	stmts := mainStatements(t, prog)
	outer := stmts[0].(*vm.WriteLocal)
	if !outer.IsDeclaration() {
		t.Error("first assignment should declare x")
	}
	if prog.Main.Descriptor.Size() != 1 {
		t.Errorf("descriptor size = %d, want 1", prog.Main.Descriptor.Size())
	}
}

func TestParseFunctionsDoNotSeeMainLocals(t *testing.T) {
	prog := mustParse(t, "x := 1\nfun f() { x }")
	body := prog.Functions[0].Body.(*vm.Block).Statements()
	if _, ok := body[0].(*vm.FunctionLiteral); !ok {
		t.Errorf("x inside f resolved to %T, want function literal", body[0])
	}
}

func TestParseSourceSectionsAndTags(t *testing.T) {
	src := "write(1 + 2)"
	stmts := mainStatements(t, mustParse(t, src))
	call := stmts[0]
	s, ok := call.SourceSection()
	if !ok || s.CharIndex != 0 || s.Length != len(src) {
		t.Errorf("call section = %v", s)
	}
	if !vm.HasTag(call, vm.StatementTag) || !vm.HasTag(call, vm.CallTag) || !vm.HasTag(call, vm.ExpressionTag) {
		t.Errorf("call tags = %b", call.Tags())
	}
	if !vm.HasTag(mustParse(t, src).Main.Body, vm.RootTag) {
		t.Error("main body should carry the root tag")
	}
}

func TestParseDerivedComparisons(t *testing.T) {
	for _, src := range []string{"1 > 2", "1 >= 2", "1 != 2"} {
		stmts := mainStatements(t, mustParse(t, src))
		not, ok := stmts[0].(*vm.Not)
		if !ok {
			t.Errorf("%s parsed as %T, want negation", src, stmts[0])
			continue
		}
		if s, _ := not.SourceSection(); s.Length != len(src) {
			t.Errorf("%s: section %v", src, s)
		}
	}
}

func TestParseBigIntegerLiteral(t *testing.T) {
	stmts := mainStatements(t, mustParse(t, "123456789012345678901234567890"))
	if _, ok := stmts[0].(*vm.BigNumberLiteral); !ok {
		t.Errorf("parsed as %T, want BigNumber literal", stmts[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x := ", "unexpected EOF"},
		{"fun (a) { a }", "expected function name"},
		{"fun f(a, a) { a }", "duplicate parameter a"},
		{"if true { 1 ", "expected }"},
		{"write(1", "expected )"},
		{"{ fun g() { 1 } }", "functions must be declared at top level"},
		{`"open`, "unterminated string"},
		{"1 +", "unexpected EOF"},
		{"}", "unexpected }"},
	}
	for _, tc := range tests {
		_, err := Parse(vm.NewEngine(vm.DefaultOptions()), tc.src)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.src)
			continue
		}
		se, ok := err.(*SyntaxError)
		if !ok {
			t.Errorf("Parse(%q): error %T, want *SyntaxError", tc.src, err)
			continue
		}
		if !strings.Contains(se.Error(), tc.want) {
			t.Errorf("Parse(%q) = %v, want mention of %q", tc.src, se, tc.want)
		}
	}
}

func TestCheckReportsPositions(t *testing.T) {
	errs := Check("x := 1\ny := )")
	if len(errs) == 0 {
		t.Fatal("expected errors")
	}
	if errs[0].Pos.Line != 2 || errs[0].Pos.Column != 6 {
		t.Errorf("error at %s, want 2:6", errs[0].Pos)
	}
	if errs := Check("fun ok(a) { a * 2 }\nok(3)"); len(errs) != 0 {
		t.Errorf("valid source reported %v", errs)
	}
}

func TestParseRecoversAfterError(t *testing.T) {
	errs := Check("x := +;\ny := 2\nz := *")
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestNodeAt(t *testing.T) {
	src := "x := 1 + 23"
	tests := []struct {
		offset int
		want   string
	}{
		{10, "*vm.LongLiteral"},
		{7, "*vm.Arithmetic"},
		{0, "*vm.WriteLocal"},
	}
	for _, tc := range tests {
		n, ok := NodeAt(src, tc.offset)
		if !ok {
			t.Errorf("NodeAt(%d): no node", tc.offset)
			continue
		}
		if got := fmt.Sprintf("%T", n); got != tc.want {
			t.Errorf("NodeAt(%d) = %s, want %s", tc.offset, got, tc.want)
		}
	}
	if _, ok := NodeAt(src, 100); ok {
		t.Error("NodeAt past the end found a node")
	}
}
