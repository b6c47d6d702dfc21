package vm

import "math/big"

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// LongLiteral evaluates to a constant long.
type LongLiteral struct {
	nodeBase
	value int64
}

func NewLongLiteral(v int64) *LongLiteral { return &LongLiteral{value: v} }

func (n *LongLiteral) ShortName() string { return "const" }

func (n *LongLiteral) ExecuteLong(*World, *Frame) (int64, *Unexpected, error) {
	return n.value, nil, nil
}

func (n *LongLiteral) ExecuteGeneric(*World, *Frame) (Value, error) { return Long(n.value), nil }
func (n *LongLiteral) ExecuteVoid(*World, *Frame) error              { return nil }

// BigNumberLiteral evaluates to an integer constant outside the long range.
type BigNumberLiteral struct {
	nodeBase
	value Value
}

func NewBigNumberLiteral(v *big.Int) *BigNumberLiteral {
	return &BigNumberLiteral{value: NewBigNumber(v)}
}

func (n *BigNumberLiteral) ShortName() string { return "const" }

func (n *BigNumberLiteral) ExecuteGeneric(*World, *Frame) (Value, error) { return n.value, nil }
func (n *BigNumberLiteral) ExecuteVoid(*World, *Frame) error              { return nil }

// BooleanLiteral evaluates to true or false.
type BooleanLiteral struct {
	nodeBase
	value bool
}

func NewBooleanLiteral(v bool) *BooleanLiteral { return &BooleanLiteral{value: v} }

func (n *BooleanLiteral) ShortName() string { return "const" }

func (n *BooleanLiteral) ExecuteBoolean(*World, *Frame) (bool, *Unexpected, error) {
	return n.value, nil, nil
}

func (n *BooleanLiteral) ExecuteGeneric(*World, *Frame) (Value, error) { return Boolean(n.value), nil }
func (n *BooleanLiteral) ExecuteVoid(*World, *Frame) error              { return nil }

// StringLiteral evaluates to a constant string.
type StringLiteral struct {
	nodeBase
	value String
}

func NewStringLiteral(s string) *StringLiteral { return &StringLiteral{value: String(s)} }

func (n *StringLiteral) ShortName() string { return "const" }

func (n *StringLiteral) ExecuteGeneric(*World, *Frame) (Value, error) { return n.value, nil }
func (n *StringLiteral) ExecuteVoid(*World, *Frame) error              { return nil }

// NullLiteral evaluates to Null.
type NullLiteral struct {
	nodeBase
}

func NewNullLiteral() *NullLiteral { return &NullLiteral{} }

func (n *NullLiteral) ShortName() string { return "const" }

func (n *NullLiteral) ExecuteGeneric(*World, *Frame) (Value, error) { return Null, nil }
func (n *NullLiteral) ExecuteVoid(*World, *Frame) error              { return nil }

// ArrayLiteral builds a fresh array from its element expressions,
// evaluated left to right.
type ArrayLiteral struct {
	nodeBase
	elems []Node
}

func NewArrayLiteral(elems []Node) *ArrayLiteral { return &ArrayLiteral{elems: elems} }

func (n *ArrayLiteral) ShortName() string { return "[]" }

func (n *ArrayLiteral) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	vals := make([]Value, len(n.elems))
	for i, e := range n.elems {
		v, err := e.ExecuteGeneric(w, f)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return NewArray(vals), nil
}

func (n *ArrayLiteral) ExecuteVoid(w *World, f *Frame) error {
	for _, e := range n.elems {
		if err := e.ExecuteVoid(w, f); err != nil {
			return err
		}
	}
	return nil
}

// Element reads object[index]. Arrays yield their element, strings the
// character code at the byte offset.
type Element struct {
	nodeBase
	object Node
	index  Node
}

func NewElement(object, index Node) *Element { return &Element{object: object, index: index} }

func (n *Element) ShortName() string { return "[]" }

func (n *Element) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	obj, err := n.object.ExecuteGeneric(w, f)
	if err != nil {
		return nil, err
	}
	idx, err := executeSpeculatingLong(n.index, w, f)
	if err != nil {
		return nil, err
	}
	i, ok := idx.(Long)
	if !ok {
		return nil, typeError(n, obj, idx)
	}
	switch o := obj.(type) {
	case *Array:
		if v, ok := o.At(int64(i)); ok {
			return v, nil
		}
	case String:
		if i >= 0 && int64(i) < int64(len(o)) {
			return Long(o[i]), nil
		}
	default:
		return nil, typeError(n, obj, idx)
	}
	return nil, newFault(TypeError, n, "index out of bounds", obj, idx)
}

func (n *Element) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}
