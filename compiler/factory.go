package compiler

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/chazu/lama/vm"
)

// ---------------------------------------------------------------------------
// NodeFactory: tree construction for the parser
//
// Every Create method returns nil when one of its inputs is nil, so a
// parse error in a subexpression propagates as a missing node instead
// of panicking. The parser reports the error itself.
// ---------------------------------------------------------------------------

// LexicalScope holds the local names visible in one block. A child
// scope starts as a copy of its parent, so names declared inside a
// block are invisible after it ends.
type LexicalScope struct {
	outer  *LexicalScope
	locals map[string]*vm.FrameSlot
}

func newLexicalScope(outer *LexicalScope) *LexicalScope {
	s := &LexicalScope{outer: outer, locals: make(map[string]*vm.FrameSlot)}
	if outer != nil {
		for name, slot := range outer.locals {
			s.locals[name] = slot
		}
	}
	return s
}

// Lookup returns the slot bound to name in this scope.
func (s *LexicalScope) Lookup(name string) (*vm.FrameSlot, bool) {
	slot, ok := s.locals[name]
	return slot, ok
}

// functionState is the construction state of the function being built.
type functionState struct {
	name           string
	start          int // offset of the "fun" keyword
	bodyStart      int
	parameterCount int
	descriptor     *vm.FrameDescriptor
	prologue       []vm.Node
	scope          *LexicalScope
}

// NodeFactory builds vm trees for one source text.
type NodeFactory struct {
	engine    *vm.Engine
	source    string
	cur       *functionState
	saved     []*functionState
	functions []*vm.RootNode
	main      *vm.RootNode
	located   []vm.Node // every node given a section, in creation order
}

// NewNodeFactory creates a factory whose nodes follow the engine's
// arithmetic and equality policies.
func NewNodeFactory(engine *vm.Engine, source string) *NodeFactory {
	return &NodeFactory{engine: engine, source: source}
}

// Program returns the functions built so far and the main body.
func (nf *NodeFactory) Program() *vm.Program {
	return &vm.Program{Main: nf.main, Functions: nf.functions}
}

// ---------------------------------------------------------------------------
// Functions and blocks
// ---------------------------------------------------------------------------

// StartFunction begins a function. Any function under construction is
// suspended until the new one finishes.
func (nf *NodeFactory) StartFunction(name string, start, bodyStart int) {
	if nf.cur != nil {
		nf.saved = append(nf.saved, nf.cur)
	}
	nf.cur = &functionState{
		name:       name,
		start:      start,
		bodyStart:  bodyStart,
		descriptor: vm.NewFrameDescriptor(),
	}
	nf.StartBlock()
}

// AddFormalParameter declares the next parameter. The function prologue
// copies the argument into its slot.
func (nf *NodeFactory) AddFormalParameter(nameTok Token) {
	idx := nf.cur.parameterCount
	arg := vm.NewReadArgument(idx)
	nf.srcFromToken(arg, nameTok)
	slot, _ := nf.resolveAssignment(nameTok.Literal)
	write := vm.NewWriteLocal(slot, arg, true)
	nf.setSection(write, nameTok.Pos.Offset, nameTok.Length())
	nf.cur.prologue = append(nf.cur.prologue, write)
	nf.cur.parameterCount++
}

// FinishFunction completes the current function with body. A nil body
// discards the function.
func (nf *NodeFactory) FinishFunction(body vm.Node, end int) *vm.RootNode {
	st := nf.cur
	nf.endScope()
	nf.restore()
	if body == nil {
		return nil
	}
	stmts := append(append([]vm.Node(nil), st.prologue...), body)
	block := vm.NewBlock(flatten(stmts))
	nf.setSection(block, st.bodyStart, end-st.bodyStart)

	root := vm.NewRootNode(st.name, st.parameterCount, st.descriptor, block)
	root.Section = &vm.SourceSection{CharIndex: st.start, Length: end - st.start}
	nf.functions = append(nf.functions, root)
	return root
}

// StartMain begins the top-level body of the program.
func (nf *NodeFactory) StartMain() {
	nf.StartFunction("main", 0, 0)
}

// FinishMain completes the top-level body.
func (nf *NodeFactory) FinishMain(stmts []vm.Node, end int) {
	st := nf.cur
	nf.endScope()
	nf.restore()
	if containsNil(stmts) {
		return
	}
	block := vm.NewBlock(nf.tagStatements(flatten(stmts)))
	nf.setSection(block, 0, end)
	nf.main = vm.NewRootNode(st.name, 0, st.descriptor, block)
	nf.main.Section = &vm.SourceSection{CharIndex: 0, Length: end}
}

func (nf *NodeFactory) restore() {
	nf.cur = nil
	if n := len(nf.saved); n > 0 {
		nf.cur = nf.saved[n-1]
		nf.saved = nf.saved[:n-1]
	}
}

// StartBlock opens a nested lexical scope.
func (nf *NodeFactory) StartBlock() {
	nf.cur.scope = newLexicalScope(nf.cur.scope)
}

func (nf *NodeFactory) endScope() {
	nf.cur.scope = nf.cur.scope.outer
}

// FinishBlock closes the innermost scope and builds a block spanning
// [start, end). Nested blocks are flattened into the statement list
// without changing the block's value, and each statement with a source
// section is tagged as a statement.
func (nf *NodeFactory) FinishBlock(stmts []vm.Node, start, end int) vm.Node {
	nf.endScope()
	if containsNil(stmts) {
		return nil
	}
	block := vm.NewBlock(nf.tagStatements(flatten(stmts)))
	nf.setSection(block, start, end-start)
	return block
}

func (nf *NodeFactory) tagStatements(stmts []vm.Node) []vm.Node {
	for _, s := range stmts {
		if _, ok := s.SourceSection(); ok {
			s.AddTag(vm.StatementTag)
		}
	}
	return stmts
}

// flatten splices the statements of nested blocks into one list. An
// empty block in final position is kept so the list still yields Null.
func flatten(stmts []vm.Node) []vm.Node {
	out := make([]vm.Node, 0, len(stmts))
	for i, s := range stmts {
		b, ok := s.(*vm.Block)
		if !ok {
			out = append(out, s)
			continue
		}
		inner := flatten(b.Statements())
		if len(inner) == 0 && i == len(stmts)-1 {
			out = append(out, b)
			continue
		}
		out = append(out, inner...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Name resolution
// ---------------------------------------------------------------------------

// resolveAssignment binds name to a slot. A name already visible in the
// current scope keeps its slot; otherwise the descriptor slot for the
// name is reused or created and bound in the current scope. The second
// result reports whether the assignment declares a new variable.
func (nf *NodeFactory) resolveAssignment(name string) (*vm.FrameSlot, bool) {
	if slot, ok := nf.cur.scope.locals[name]; ok {
		return slot, false
	}
	slot, _ := nf.cur.descriptor.FindOrAddSlot(name)
	nf.cur.scope.locals[name] = slot
	return slot, true
}

// resolveRead returns the slot visible under name, if any.
func (nf *NodeFactory) resolveRead(name string) (*vm.FrameSlot, bool) {
	return nf.cur.scope.Lookup(name)
}

// CreateAssignment builds name := value.
func (nf *NodeFactory) CreateAssignment(nameTok Token, value vm.Node) vm.Node {
	if value == nil {
		return nil
	}
	slot, declared := nf.resolveAssignment(nameTok.Literal)
	n := vm.NewWriteLocal(slot, value, declared)
	if vs, ok := value.SourceSection(); ok {
		nf.setSection(n, nameTok.Pos.Offset, vs.End()-nameTok.Pos.Offset)
	}
	return n
}

// CreateRead builds a local read when name is a visible variable and a
// function literal otherwise. Functions are the only global names.
func (nf *NodeFactory) CreateRead(nameTok Token) vm.Node {
	var n vm.Node
	if slot, ok := nf.resolveRead(nameTok.Literal); ok {
		n = vm.NewReadLocal(slot)
	} else {
		n = vm.NewFunctionLiteral(nameTok.Literal)
	}
	nf.srcFromToken(n, nameTok)
	return n
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// CreateIntegerLiteral builds a long literal, or a BigNumber literal for
// values outside the int64 range.
func (nf *NodeFactory) CreateIntegerLiteral(tok Token) (vm.Node, error) {
	var n vm.Node
	if v, err := strconv.ParseInt(tok.Literal, 10, 64); err == nil {
		n = vm.NewLongLiteral(v)
	} else {
		b, ok := new(big.Int).SetString(tok.Literal, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer literal %q", tok.Literal)
		}
		n = vm.NewBigNumberLiteral(b)
	}
	nf.srcFromToken(n, tok)
	return n, nil
}

func (nf *NodeFactory) CreateStringLiteral(tok Token) vm.Node {
	n := vm.NewStringLiteral(tok.Literal)
	nf.srcFromToken(n, tok)
	return n
}

func (nf *NodeFactory) CreateBooleanLiteral(tok Token) vm.Node {
	n := vm.NewBooleanLiteral(tok.Type == TokenTrue)
	nf.srcFromToken(n, tok)
	return n
}

func (nf *NodeFactory) CreateNullLiteral(tok Token) vm.Node {
	n := vm.NewNullLiteral()
	nf.srcFromToken(n, tok)
	return n
}

// CreateArrayLiteral builds [e1, e2, ...].
func (nf *NodeFactory) CreateArrayLiteral(open Token, elems []vm.Node, closeTok Token) vm.Node {
	if containsNil(elems) {
		return nil
	}
	n := vm.NewArrayLiteral(elems)
	nf.setSection(n, open.Pos.Offset, closeTok.End-open.Pos.Offset)
	return n
}

// CreateElement builds object[index].
func (nf *NodeFactory) CreateElement(object, index vm.Node, closeTok Token) vm.Node {
	if object == nil || index == nil {
		return nil
	}
	n := vm.NewElement(object, index)
	nf.spanTo(n, object, closeTok.End)
	return n
}

// ---------------------------------------------------------------------------
// Operators, control flow and calls
// ---------------------------------------------------------------------------

// CreateBinary builds a binary operator node. >, >= and != are built as
// the negation of <=, < and ==.
func (nf *NodeFactory) CreateBinary(op Token, left, right vm.Node) vm.Node {
	if left == nil || right == nil {
		return nil
	}
	opts := nf.engine.Options()
	var n vm.Node
	switch op.Type {
	case TokenPlus:
		n = vm.NewArithmetic(vm.OpAdd, opts.Arithmetic, left, right)
	case TokenMinus:
		n = vm.NewArithmetic(vm.OpSub, opts.Arithmetic, left, right)
	case TokenStar:
		n = vm.NewArithmetic(vm.OpMul, opts.Arithmetic, left, right)
	case TokenSlash:
		n = vm.NewDiv(left, right)
	case TokenLess:
		n = vm.NewCompare(vm.OpLess, left, right)
	case TokenLessEq:
		n = vm.NewCompare(vm.OpLessOrEqual, left, right)
	case TokenGreater:
		n = vm.NewNot(vm.NewCompare(vm.OpLessOrEqual, left, right))
	case TokenGreaterEq:
		n = vm.NewNot(vm.NewCompare(vm.OpLess, left, right))
	case TokenEqual:
		n = vm.NewEqual(opts.CrossKindEquality, left, right)
	case TokenNotEqual:
		n = vm.NewNot(vm.NewEqual(opts.CrossKindEquality, left, right))
	case TokenAnd:
		n = vm.NewShortCircuit(vm.OpAnd, left, right)
	case TokenOr:
		n = vm.NewShortCircuit(vm.OpOr, left, right)
	default:
		panic(fmt.Sprintf("compiler: unexpected binary operator %s", op.Type))
	}
	ls, _ := left.SourceSection()
	rs, _ := right.SourceSection()
	nf.setSection(n, ls.CharIndex, rs.End()-ls.CharIndex)
	return n
}

// CreateUnary builds !operand or -operand.
func (nf *NodeFactory) CreateUnary(op Token, operand vm.Node) vm.Node {
	if operand == nil {
		return nil
	}
	var n vm.Node
	switch op.Type {
	case TokenBang:
		n = vm.NewNot(operand)
	case TokenMinus:
		n = vm.NewNegate(nf.engine.Options().Arithmetic, operand)
	default:
		panic(fmt.Sprintf("compiler: unexpected unary operator %s", op.Type))
	}
	nf.spanFrom(n, op.Pos.Offset, operand)
	return n
}

// CreateIf builds if cond then else. elsePart may be nil.
func (nf *NodeFactory) CreateIf(ifTok Token, cond, thenPart, elsePart vm.Node) vm.Node {
	if cond == nil || thenPart == nil {
		return nil
	}
	cond.AddTag(vm.StatementTag)
	last := thenPart
	if elsePart != nil {
		last = elsePart
	}
	n := vm.NewIf(cond, thenPart, elsePart)
	nf.spanFrom(n, ifTok.Pos.Offset, last)
	return n
}

// CreateWhile builds while cond body.
func (nf *NodeFactory) CreateWhile(whileTok Token, cond, body vm.Node) vm.Node {
	if cond == nil || body == nil {
		return nil
	}
	cond.AddTag(vm.StatementTag)
	n := vm.NewWhile(cond, body)
	nf.spanFrom(n, whileTok.Pos.Offset, body)
	return n
}

// CreateCall builds fn(args...).
func (nf *NodeFactory) CreateCall(fn vm.Node, args []vm.Node, closeTok Token) vm.Node {
	if fn == nil || containsNil(args) {
		return nil
	}
	n := vm.NewInvoke(fn, args)
	nf.spanTo(n, fn, closeTok.End)
	return n
}

// ---------------------------------------------------------------------------
// Source sections
// ---------------------------------------------------------------------------

func (nf *NodeFactory) setSection(n vm.Node, start, length int) {
	if err := n.SetSourceSection(start, length); err != nil {
		panic(fmt.Sprintf("compiler: %s: %v", n.ShortName(), err))
	}
	nf.located = append(nf.located, n)
}

// NodeAt returns the innermost node built so far whose section contains
// offset. Among nodes with the same section the first built wins.
func (nf *NodeFactory) NodeAt(offset int) (vm.Node, bool) {
	var best vm.Node
	bestLen := -1
	for _, n := range nf.located {
		s, ok := n.SourceSection()
		if !ok || !s.Contains(offset) {
			continue
		}
		if bestLen < 0 || s.Length < bestLen {
			best, bestLen = n, s.Length
		}
	}
	return best, best != nil
}

func (nf *NodeFactory) srcFromToken(n vm.Node, tok Token) {
	nf.setSection(n, tok.Pos.Offset, tok.Length())
}

// spanFrom sets n's section from start to the end of last.
func (nf *NodeFactory) spanFrom(n vm.Node, start int, last vm.Node) {
	ls, _ := last.SourceSection()
	nf.setSection(n, start, ls.End()-start)
}

// spanTo sets n's section from the start of first to end.
func (nf *NodeFactory) spanTo(n vm.Node, first vm.Node, end int) {
	fs, _ := first.SourceSection()
	nf.setSection(n, fs.CharIndex, end-fs.CharIndex)
}

func containsNil(nodes []vm.Node) bool {
	for _, n := range nodes {
		if n == nil {
			return true
		}
	}
	return false
}
