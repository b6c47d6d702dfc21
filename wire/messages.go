package wire

import (
	"github.com/chazu/lama/compiler"
	"github.com/chazu/lama/vm"
)

// Range is a half-open character range [CharIndex, CharIndex+Length).
type Range struct {
	CharIndex int `cbor:"1,keyasint" json:"charIndex"`
	Length    int `cbor:"2,keyasint" json:"length"`
}

// Fault is the serialized form of a vm.Fault. Errors that are not faults
// travel with Kind "Error".
type Fault struct {
	Kind      string  `cbor:"1,keyasint" json:"kind"`
	Message   string  `cbor:"2,keyasint" json:"message"`
	Operation string  `cbor:"3,keyasint,omitempty" json:"operation,omitempty"`
	Section   *Range  `cbor:"4,keyasint,omitempty" json:"section,omitempty"`
	Values    []Value `cbor:"5,keyasint,omitempty" json:"values,omitempty"`
}

// FaultFromError converts err to its wire form; nil maps to nil.
func FaultFromError(err error) *Fault {
	if err == nil {
		return nil
	}
	f, ok := vm.AsFault(err)
	if !ok {
		return &Fault{Kind: "Error", Message: err.Error()}
	}
	out := &Fault{
		Kind:      f.Kind.String(),
		Message:   f.Message,
		Operation: f.Operation,
	}
	if f.Section != nil {
		out.Section = &Range{CharIndex: f.Section.CharIndex, Length: f.Section.Length}
	}
	for _, v := range f.Values {
		out.Values = append(out.Values, FromVM(v))
	}
	return out
}

// Diagnostic is a parse error with its location. Line and Column are
// 1-based; Offset and End are byte offsets.
type Diagnostic struct {
	Message string `cbor:"1,keyasint" json:"message"`
	Line    int    `cbor:"2,keyasint" json:"line"`
	Column  int    `cbor:"3,keyasint" json:"column"`
	Offset  int    `cbor:"4,keyasint" json:"offset"`
	End     int    `cbor:"5,keyasint" json:"end"`
}

// Diagnostics converts parser errors to their wire form.
func Diagnostics(errs []compiler.ParseError) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs))
	for _, e := range errs {
		out = append(out, Diagnostic{
			Message: e.Message,
			Line:    e.Pos.Line,
			Column:  e.Pos.Column,
			Offset:  e.Pos.Offset,
			End:     e.End,
		})
	}
	return out
}

// EvaluateRequest runs Source in a fresh world. Input supplies the lines
// returned by read. If Entry is set, the named function is then called
// with Args and its result is reported instead of the main body's.
type EvaluateRequest struct {
	Source string   `cbor:"1,keyasint" json:"source"`
	Input  []string `cbor:"2,keyasint,omitempty" json:"input,omitempty"`
	Entry  string   `cbor:"3,keyasint,omitempty" json:"entry,omitempty"`
	Args   []Value  `cbor:"4,keyasint,omitempty" json:"args,omitempty"`
}

// EvaluateResponse reports one world's run. Exactly one of Result and
// Fault is meaningful; Diagnostics is set when the source did not parse.
type EvaluateResponse struct {
	WorldID     string       `cbor:"1,keyasint" json:"worldId"`
	Output      []string     `cbor:"2,keyasint,omitempty" json:"output,omitempty"`
	Result      *Value       `cbor:"3,keyasint,omitempty" json:"result,omitempty"`
	Fault       *Fault       `cbor:"4,keyasint,omitempty" json:"fault,omitempty"`
	Diagnostics []Diagnostic `cbor:"5,keyasint,omitempty" json:"diagnostics,omitempty"`
}

// CheckSyntaxRequest parses Source without running it.
type CheckSyntaxRequest struct {
	Source string `cbor:"1,keyasint" json:"source"`
}

// CheckSyntaxResponse lists the parse errors found, if any.
type CheckSyntaxResponse struct {
	Valid       bool         `cbor:"1,keyasint" json:"valid"`
	Diagnostics []Diagnostic `cbor:"2,keyasint,omitempty" json:"diagnostics,omitempty"`
}
