package vm

import "sync/atomic"

// LogicalOp is a short-circuit operator.
type LogicalOp uint8

const (
	OpAnd LogicalOp = iota // &&
	OpOr                   // !!
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "!!"
	}
	return "&&"
}

// ShortCircuit is && or !!. Both operands must be booleans. The right
// operand runs only when the left one does not decide the result; a
// skipped right operand counts as false.
type ShortCircuit struct {
	nodeBase
	op    LogicalOp
	left  Node
	right Node

	// Profile counters. They are a scheduling hint only.
	evaluated atomic.Uint64
	skipped   atomic.Uint64
}

func NewShortCircuit(op LogicalOp, left, right Node) *ShortCircuit {
	return &ShortCircuit{op: op, left: left, right: right}
}

func (n *ShortCircuit) ShortName() string { return n.op.String() }

// Profile returns how often the right operand was evaluated and skipped.
func (n *ShortCircuit) Profile() (evaluated, skipped uint64) {
	return n.evaluated.Load(), n.skipped.Load()
}

func (n *ShortCircuit) evaluateRight(left bool) bool {
	if n.op == OpAnd {
		return left
	}
	return !left
}

func (n *ShortCircuit) combine(left, right bool) bool {
	if n.op == OpAnd {
		return left && right
	}
	return left || right
}

func (n *ShortCircuit) ExecuteBoolean(w *World, f *Frame) (bool, *Unexpected, error) {
	l, u, err := ExecuteBoolean(n.left, w, f)
	if err != nil {
		return false, nil, err
	}
	if u != nil {
		return false, nil, typeError(n, u.Result, Null)
	}
	r := false
	if n.evaluateRight(l) {
		n.evaluated.Add(1)
		r, u, err = ExecuteBoolean(n.right, w, f)
		if err != nil {
			return false, nil, err
		}
		if u != nil {
			return false, nil, typeError(n, Boolean(l), u.Result)
		}
	} else {
		n.skipped.Add(1)
	}
	return n.combine(l, r), nil, nil
}

func (n *ShortCircuit) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	r, _, err := n.ExecuteBoolean(w, f)
	if err != nil {
		return nil, err
	}
	return Boolean(r), nil
}

func (n *ShortCircuit) ExecuteVoid(w *World, f *Frame) error {
	_, _, err := n.ExecuteBoolean(w, f)
	return err
}
