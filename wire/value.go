package wire

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/chazu/lama/vm"
)

// Value is the serialized form of a vm.Value. Kind holds the vm.Kind name.
// Text carries string content, the decimal digits of a BigNumber or the
// name of a Function.
type Value struct {
	Kind    string  `cbor:"1,keyasint" json:"kind"`
	Long    int64   `cbor:"2,keyasint,omitempty" json:"long,omitempty"`
	Boolean bool    `cbor:"3,keyasint,omitempty" json:"boolean,omitempty"`
	Text    string  `cbor:"4,keyasint,omitempty" json:"text,omitempty"`
	Elems   []Value `cbor:"5,keyasint,omitempty" json:"elems,omitempty"`
}

// ErrUnknownKind is returned when a wire value names no vm kind.
var ErrUnknownKind = errors.New("wire: unknown value kind")

// FromVM converts a runtime value to its wire form. A nil value encodes
// as Null.
func FromVM(v vm.Value) Value {
	if v == nil {
		return Value{Kind: vm.KindNull.String()}
	}
	out := Value{Kind: v.Kind().String()}
	switch t := v.(type) {
	case vm.Long:
		out.Long = int64(t)
	case vm.Boolean:
		out.Boolean = bool(t)
	case vm.String:
		out.Text = string(t)
	case *vm.BigNumber:
		out.Text = t.Int().String()
	case *vm.Function:
		out.Text = t.Name()
	case *vm.Array:
		elems := t.Elements()
		out.Elems = make([]Value, len(elems))
		for i, e := range elems {
			out.Elems[i] = FromVM(e)
		}
	}
	return out
}

// ToVM converts a wire value back to a runtime value. Functions are
// resolved by name in reg and must already exist there.
func ToVM(v Value, reg *vm.FunctionRegistry) (vm.Value, error) {
	switch v.Kind {
	case vm.KindLong.String():
		return vm.Long(v.Long), nil
	case vm.KindBoolean.String():
		return vm.Boolean(v.Boolean), nil
	case vm.KindString.String():
		return vm.String(v.Text), nil
	case vm.KindNull.String(), "":
		return vm.Null, nil
	case vm.KindBigNumber.String():
		i, ok := new(big.Int).SetString(v.Text, 10)
		if !ok {
			return nil, fmt.Errorf("wire: malformed big number %q", v.Text)
		}
		return vm.NewBigNumber(i), nil
	case vm.KindFunction.String():
		if reg == nil {
			return nil, fmt.Errorf("wire: function %q without a registry", v.Text)
		}
		fn := reg.Lookup(v.Text, false)
		if fn == nil {
			return nil, fmt.Errorf("wire: unknown function %q", v.Text)
		}
		return fn, nil
	case vm.KindArray.String():
		elems := make([]vm.Value, len(v.Elems))
		for i, e := range v.Elems {
			ev, err := ToVM(e, reg)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return vm.NewArray(elems), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, v.Kind)
	}
}

// Display renders the value the way the write built-in would.
func (v Value) Display() string {
	switch v.Kind {
	case vm.KindFunction.String():
		return v.Text
	case vm.KindArray.String():
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.Display()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	rv, err := ToVM(v, nil)
	if err != nil {
		return "<" + v.Kind + ">"
	}
	return vm.Display(rv)
}
