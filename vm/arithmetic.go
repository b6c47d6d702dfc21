package vm

import (
	"math"
	"math/big"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Arithmetic
//
// Add, Sub and Mul start in the fast state, computing on int64 with
// exact overflow detection. The first overflow either raises
// ArithmeticOverflow (checked policy) or promotes the node for good, so
// it computes in arbitrary precision from then on. Results that fit in
// a long are always normalized back to Long.
// ---------------------------------------------------------------------------

// ArithmeticPolicy selects what happens when long arithmetic overflows.
type ArithmeticPolicy uint8

const (
	// ArbitraryPrecision promotes overflowing operations to BigNumber.
	ArbitraryPrecision ArithmeticPolicy = iota
	// CheckedOverflow raises ArithmeticOverflow instead.
	CheckedOverflow
)

func (p ArithmeticPolicy) String() string {
	if p == CheckedOverflow {
		return "checked"
	}
	return "bignum"
}

// ArithState is the specialization state of an arithmetic node.
type ArithState uint32

const (
	ArithFast ArithState = iota
	ArithPromoted
)

func (s ArithState) String() string {
	if s == ArithPromoted {
		return "promoted"
	}
	return "fast"
}

// Operator names a binary arithmetic operation.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSub
	OpMul
)

func (op Operator) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	default:
		return "*"
	}
}

func (op Operator) exact(a, b int64) (int64, bool) {
	switch op {
	case OpAdd:
		r := a + b
		return r, (a^r)&(b^r) >= 0
	case OpSub:
		r := a - b
		return r, (a^b)&(a^r) >= 0
	default:
		if a == 0 || b == 0 {
			return 0, true
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return r, false
		}
		return r, true
	}
}

func (op Operator) big(a, b *big.Int) *big.Int {
	z := new(big.Int)
	switch op {
	case OpAdd:
		return z.Add(a, b)
	case OpSub:
		return z.Sub(a, b)
	default:
		return z.Mul(a, b)
	}
}

// Arithmetic is a self-promoting +, - or * node.
type Arithmetic struct {
	nodeBase
	op     Operator
	policy ArithmeticPolicy
	state  atomic.Uint32
	left   Node
	right  Node
}

func NewArithmetic(op Operator, policy ArithmeticPolicy, left, right Node) *Arithmetic {
	return &Arithmetic{op: op, policy: policy, left: left, right: right}
}

func (n *Arithmetic) ShortName() string { return n.op.String() }

// State returns the current specialization state.
func (n *Arithmetic) State() ArithState { return ArithState(n.state.Load()) }

func (n *Arithmetic) promote() {
	if n.state.CompareAndSwap(uint32(ArithFast), uint32(ArithPromoted)) {
		log.Debugf("arithmetic %q promoted to arbitrary precision", n.op)
	}
}

func (n *Arithmetic) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	a, b, err := evalOperands(n.left, n.right, w, f)
	if err != nil {
		return nil, err
	}
	return n.apply(a, b)
}

func (n *Arithmetic) apply(a, b Value) (Value, error) {
	if n.State() == ArithFast {
		if x, ok := a.(Long); ok {
			if y, ok := b.(Long); ok {
				r, ok := n.op.exact(int64(x), int64(y))
				if ok {
					return Long(r), nil
				}
				if n.policy == CheckedOverflow {
					return nil, overflowFault(n, a, b)
				}
				n.promote()
			}
		}
	}
	x, okx := toBig(a)
	y, oky := toBig(b)
	if !okx || !oky {
		return nil, typeError(n, a, b)
	}
	return normalizeBig(n.op.big(x, y)), nil
}

func (n *Arithmetic) ExecuteLong(w *World, f *Frame) (int64, *Unexpected, error) {
	v, err := n.ExecuteGeneric(w, f)
	if err != nil {
		return 0, nil, err
	}
	l, u := expectLong(v)
	return l, u, nil
}

func (n *Arithmetic) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}

// Div is truncating integer division. Dividing the minimum long by -1
// always raises ArithmeticOverflow and a zero divisor raises
// DivisionByZero.
type Div struct {
	nodeBase
	left  Node
	right Node
}

func NewDiv(left, right Node) *Div { return &Div{left: left, right: right} }

func (n *Div) ShortName() string { return "/" }

func (n *Div) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	a, b, err := evalOperands(n.left, n.right, w, f)
	if err != nil {
		return nil, err
	}
	if x, ok := a.(Long); ok {
		if y, ok := b.(Long); ok {
			switch {
			case y == 0:
				return nil, newFault(DivisionByZero, n, "division by zero", a, b)
			case x == math.MinInt64 && y == -1:
				return nil, overflowFault(n, a, b)
			}
			return x / y, nil
		}
	}
	x, okx := toBig(a)
	y, oky := toBig(b)
	if !okx || !oky {
		return nil, typeError(n, a, b)
	}
	if y.Sign() == 0 {
		return nil, newFault(DivisionByZero, n, "division by zero", a, b)
	}
	return normalizeBig(new(big.Int).Quo(x, y)), nil
}

func (n *Div) ExecuteLong(w *World, f *Frame) (int64, *Unexpected, error) {
	v, err := n.ExecuteGeneric(w, f)
	if err != nil {
		return 0, nil, err
	}
	l, u := expectLong(v)
	return l, u, nil
}

func (n *Div) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}

// Negate is unary minus.
type Negate struct {
	nodeBase
	policy  ArithmeticPolicy
	operand Node
}

func NewNegate(policy ArithmeticPolicy, operand Node) *Negate {
	return &Negate{policy: policy, operand: operand}
}

func (n *Negate) ShortName() string { return "-" }

func (n *Negate) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	v, err := executeSpeculatingLong(n.operand, w, f)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case Long:
		if x != math.MinInt64 {
			return -x, nil
		}
		if n.policy == CheckedOverflow {
			return nil, overflowFault(n, v)
		}
		return normalizeBig(new(big.Int).Neg(big.NewInt(int64(x)))), nil
	case *BigNumber:
		return normalizeBig(new(big.Int).Neg(x.v)), nil
	}
	return nil, typeError(n, v)
}

func (n *Negate) ExecuteLong(w *World, f *Frame) (int64, *Unexpected, error) {
	v, err := n.ExecuteGeneric(w, f)
	if err != nil {
		return 0, nil, err
	}
	l, u := expectLong(v)
	return l, u, nil
}

func (n *Negate) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}

// evalOperands evaluates left then right, speculating that both are longs.
func evalOperands(left, right Node, w *World, f *Frame) (Value, Value, error) {
	a, err := executeSpeculatingLong(left, w, f)
	if err != nil {
		return nil, nil, err
	}
	b, err := executeSpeculatingLong(right, w, f)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
