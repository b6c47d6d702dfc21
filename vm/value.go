package vm

import (
	"math/big"
)

// ---------------------------------------------------------------------------
// Value model
// ---------------------------------------------------------------------------

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindLong Kind = iota
	KindBoolean
	KindString
	KindNull
	KindFunction
	KindArray
	KindBigNumber
)

func (k Kind) String() string {
	switch k {
	case KindLong:
		return "Long"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindNull:
		return "Null"
	case KindFunction:
		return "Function"
	case KindArray:
		return "Array"
	case KindBigNumber:
		return "BigNumber"
	default:
		return "Unknown"
	}
}

// Value is a Lama runtime value. The set of variants is closed: Long,
// Boolean, String, *NullValue, *Function, *Array and *BigNumber.
type Value interface {
	Kind() Kind
	value()
}

// Long is a 64-bit signed integer.
type Long int64

func (Long) Kind() Kind { return KindLong }
func (Long) value()     {}

// Boolean is true or false.
type Boolean bool

func (Boolean) Kind() Kind { return KindBoolean }
func (Boolean) value()     {}

// String is an immutable string value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// NullValue is the type of the Null singleton.
type NullValue struct{}

func (*NullValue) Kind() Kind { return KindNull }
func (*NullValue) value()     {}

// Null is the only instance of NullValue.
var Null = &NullValue{}

// Array is a fixed-length, mutable sequence of values. Arrays compare
// by identity.
type Array struct {
	elems []Value
}

// NewArray creates an array holding elems. The slice is retained.
func NewArray(elems []Value) *Array {
	return &Array{elems: elems}
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) value()     {}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.elems) }

// At returns the element at i, or false if i is out of range.
func (a *Array) At(i int64) (Value, bool) {
	if i < 0 || i >= int64(len(a.elems)) {
		return nil, false
	}
	return a.elems[i], true
}

// Elements returns a copy of the array contents.
func (a *Array) Elements() []Value {
	out := make([]Value, len(a.elems))
	copy(out, a.elems)
	return out
}

// BigNumber is an arbitrary-precision integer. Values produced by the
// interpreter are always outside the int64 range; smaller results are
// normalized back to Long.
type BigNumber struct {
	v *big.Int
}

func (*BigNumber) Kind() Kind { return KindBigNumber }
func (*BigNumber) value()     {}

// NewBigNumber wraps a copy of i, normalizing to Long when it fits.
func NewBigNumber(i *big.Int) Value {
	return normalizeBig(new(big.Int).Set(i))
}

// Int returns a copy of the underlying integer.
func (b *BigNumber) Int() *big.Int {
	return new(big.Int).Set(b.v)
}

// normalizeBig takes ownership of i.
func normalizeBig(i *big.Int) Value {
	if i.IsInt64() {
		return Long(i.Int64())
	}
	return &BigNumber{v: i}
}

// toBig widens a numeric value. The returned integer must not be mutated.
func toBig(v Value) (*big.Int, bool) {
	switch n := v.(type) {
	case Long:
		return big.NewInt(int64(n)), true
	case *BigNumber:
		return n.v, true
	}
	return nil, false
}

// isNumeric reports whether v is a Long or a BigNumber.
func isNumeric(v Value) bool {
	switch v.(type) {
	case Long, *BigNumber:
		return true
	}
	return false
}

// isValid reports whether v is a non-nil member of the closed variant set.
func isValid(v Value) bool {
	switch x := v.(type) {
	case Long, Boolean, String:
		return true
	case *NullValue:
		return x != nil
	case *Function:
		return x != nil
	case *Array:
		return x != nil
	case *BigNumber:
		return x != nil && x.v != nil
	}
	return false
}

// TypeName returns the kind name of v, or "nil" for a missing value.
func TypeName(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
