package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Faults
// ---------------------------------------------------------------------------

// FaultKind classifies a guest-language fault.
type FaultKind uint8

const (
	TypeError FaultKind = iota + 1
	ArithmeticOverflow
	DivisionByZero
	UndefinedName
	CallError
	StackOverflow
	IOError
)

func (k FaultKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case ArithmeticOverflow:
		return "ArithmeticOverflow"
	case DivisionByZero:
		return "DivisionByZero"
	case UndefinedName:
		return "UndefinedName"
	case CallError:
		return "CallError"
	case StackOverflow:
		return "StackOverflow"
	case IOError:
		return "IOError"
	default:
		return "Fault"
	}
}

// Fault is a guest-language error raised during execution. It unwinds
// every enclosing node up to the embedder as an ordinary Go error.
type Fault struct {
	Kind      FaultKind
	Operation string         // short name of the raising node, if any
	Section   *SourceSection // location of the raising node, if known
	Values    []Value        // offending operands
	Message   string
	Cause     error
}

func (f *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Kind.String())
	if f.Section != nil {
		fmt.Fprintf(&sb, " at %s", f.Section)
	}
	if f.Operation != "" {
		fmt.Fprintf(&sb, " operation %q", f.Operation)
	}
	sb.WriteString(": ")
	sb.WriteString(f.Message)
	if len(f.Values) > 0 {
		sb.WriteString(" (")
		for i, v := range f.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(Describe(v))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (f *Fault) Unwrap() error { return f.Cause }

// IsFault reports whether err is, or wraps, a Fault of the given kind.
func IsFault(err error, kind FaultKind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}

// AsFault extracts the Fault in err's chain, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func newFault(kind FaultKind, n Node, msg string, values ...Value) *Fault {
	f := &Fault{Kind: kind, Message: msg, Values: values}
	if n != nil {
		f.Operation = n.ShortName()
		if s, ok := n.SourceSection(); ok {
			f.Section = &s
		}
	}
	return f
}

// typeError reports that the operation of n is not defined for values.
func typeError(n Node, values ...Value) *Fault {
	return newFault(TypeError, n, "operation not defined for operands", values...)
}

func overflowFault(n Node, values ...Value) *Fault {
	return newFault(ArithmeticOverflow, n, "result does not fit in a 64-bit integer", values...)
}
