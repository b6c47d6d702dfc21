package vm

// ---------------------------------------------------------------------------
// Comparison, equality and logic
// ---------------------------------------------------------------------------

// EqualityPolicy selects how == treats operands of different kinds.
type EqualityPolicy uint8

const (
	// CrossKindFalse makes mismatched kinds compare unequal.
	CrossKindFalse EqualityPolicy = iota
	// CrossKindError raises TypeError for mismatched kinds.
	CrossKindError
)

func (p EqualityPolicy) String() string {
	if p == CrossKindError {
		return "error"
	}
	return "false"
}

// CompareOp is an ordering comparison.
type CompareOp uint8

const (
	OpLess CompareOp = iota
	OpLessOrEqual
)

func (op CompareOp) String() string {
	if op == OpLessOrEqual {
		return "<="
	}
	return "<"
}

// Compare is < or <= over numbers.
type Compare struct {
	nodeBase
	op    CompareOp
	left  Node
	right Node
}

func NewCompare(op CompareOp, left, right Node) *Compare {
	return &Compare{op: op, left: left, right: right}
}

func (n *Compare) ShortName() string { return n.op.String() }

func (n *Compare) ExecuteBoolean(w *World, f *Frame) (bool, *Unexpected, error) {
	a, b, err := evalOperands(n.left, n.right, w, f)
	if err != nil {
		return false, nil, err
	}
	var c int
	x, xl := a.(Long)
	y, yl := b.(Long)
	switch {
	case xl && yl:
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	case isNumeric(a) && isNumeric(b):
		bx, _ := toBig(a)
		by, _ := toBig(b)
		c = bx.Cmp(by)
	default:
		return false, nil, typeError(n, a, b)
	}
	if n.op == OpLessOrEqual {
		return c <= 0, nil, nil
	}
	return c < 0, nil, nil
}

func (n *Compare) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	r, _, err := n.ExecuteBoolean(w, f)
	if err != nil {
		return nil, err
	}
	return Boolean(r), nil
}

func (n *Compare) ExecuteVoid(w *World, f *Frame) error {
	_, _, err := n.ExecuteBoolean(w, f)
	return err
}

// Equal is ==. Same-kind operands compare by value, except functions
// and arrays which compare by identity. Mixed kinds follow the policy,
// with Long and BigNumber counting as one numeric kind.
type Equal struct {
	nodeBase
	policy EqualityPolicy
	left   Node
	right  Node
}

func NewEqual(policy EqualityPolicy, left, right Node) *Equal {
	return &Equal{policy: policy, left: left, right: right}
}

func (n *Equal) ShortName() string { return "==" }

func (n *Equal) ExecuteBoolean(w *World, f *Frame) (bool, *Unexpected, error) {
	a, err := n.left.ExecuteGeneric(w, f)
	if err != nil {
		return false, nil, err
	}
	b, err := n.right.ExecuteGeneric(w, f)
	if err != nil {
		return false, nil, err
	}
	eq, ok := Equals(a, b)
	if !ok && n.policy == CrossKindError {
		return false, nil, typeError(n, a, b)
	}
	return eq, nil, nil
}

func (n *Equal) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	r, _, err := n.ExecuteBoolean(w, f)
	if err != nil {
		return nil, err
	}
	return Boolean(r), nil
}

func (n *Equal) ExecuteVoid(w *World, f *Frame) error {
	_, _, err := n.ExecuteBoolean(w, f)
	return err
}

// Equals compares two values. The second result is false when the kinds
// are not comparable, in which case the values are reported unequal.
func Equals(a, b Value) (bool, bool) {
	switch x := a.(type) {
	case Long:
		switch y := b.(type) {
		case Long:
			return x == y, true
		case *BigNumber:
			return false, true
		}
	case *BigNumber:
		switch y := b.(type) {
		case *BigNumber:
			return x.v.Cmp(y.v) == 0, true
		case Long:
			return false, true
		}
	case Boolean:
		if y, ok := b.(Boolean); ok {
			return x == y, true
		}
	case String:
		if y, ok := b.(String); ok {
			return x == y, true
		}
	case *NullValue:
		if _, ok := b.(*NullValue); ok {
			return true, true
		}
	case *Function:
		if y, ok := b.(*Function); ok {
			return x == y, true
		}
	case *Array:
		if y, ok := b.(*Array); ok {
			return x == y, true
		}
	}
	return false, false
}

// Not is logical negation of a boolean.
type Not struct {
	nodeBase
	operand Node
}

func NewNot(operand Node) *Not { return &Not{operand: operand} }

func (n *Not) ShortName() string { return "!" }

func (n *Not) ExecuteBoolean(w *World, f *Frame) (bool, *Unexpected, error) {
	b, u, err := ExecuteBoolean(n.operand, w, f)
	if err != nil {
		return false, nil, err
	}
	if u != nil {
		return false, nil, typeError(n, u.Result)
	}
	return !b, nil, nil
}

func (n *Not) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	r, _, err := n.ExecuteBoolean(w, f)
	if err != nil {
		return nil, err
	}
	return Boolean(r), nil
}

func (n *Not) ExecuteVoid(w *World, f *Frame) error {
	_, _, err := n.ExecuteBoolean(w, f)
	return err
}
