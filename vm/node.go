package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Execution protocol
//
// Every node evaluates through ExecuteGeneric (boxed result) and
// ExecuteVoid (result discarded). Nodes that can produce a primitive
// without boxing also implement LongNode and/or BooleanNode. A
// specialized entry that cannot produce its primitive returns the value
// it did compute inside an *Unexpected; the caller must fall back to
// generic handling of that value and must not re-evaluate the node.
// ---------------------------------------------------------------------------

// Unexpected carries a result whose kind did not match the specialized
// entry that produced it. It is a control signal, not an error.
type Unexpected struct {
	Result Value
}

// Node is an executable AST node.
type Node interface {
	ExecuteVoid(w *World, f *Frame) error
	ExecuteGeneric(w *World, f *Frame) (Value, error)

	// ShortName identifies the operation in diagnostics.
	ShortName() string
	SourceSection() (SourceSection, bool)
	SetSourceSection(charIndex, length int) error
	Tags() Tag
	AddTag(t Tag)

	node()
}

// LongNode is implemented by nodes with an unboxed long entry.
type LongNode interface {
	Node
	ExecuteLong(w *World, f *Frame) (int64, *Unexpected, error)
}

// BooleanNode is implemented by nodes with an unboxed boolean entry.
type BooleanNode interface {
	Node
	ExecuteBoolean(w *World, f *Frame) (bool, *Unexpected, error)
}

// ExecuteLong evaluates n through its long entry when it has one and
// narrows the generic result otherwise.
func ExecuteLong(n Node, w *World, f *Frame) (int64, *Unexpected, error) {
	if ln, ok := n.(LongNode); ok {
		return ln.ExecuteLong(w, f)
	}
	v, err := n.ExecuteGeneric(w, f)
	if err != nil {
		return 0, nil, err
	}
	l, u := expectLong(v)
	return l, u, nil
}

// ExecuteBoolean evaluates n through its boolean entry when it has one
// and narrows the generic result otherwise.
func ExecuteBoolean(n Node, w *World, f *Frame) (bool, *Unexpected, error) {
	if bn, ok := n.(BooleanNode); ok {
		return bn.ExecuteBoolean(w, f)
	}
	v, err := n.ExecuteGeneric(w, f)
	if err != nil {
		return false, nil, err
	}
	b, u := expectBoolean(v)
	return b, u, nil
}

func expectLong(v Value) (int64, *Unexpected) {
	if l, ok := v.(Long); ok {
		return int64(l), nil
	}
	return 0, &Unexpected{Result: v}
}

func expectBoolean(v Value) (bool, *Unexpected) {
	if b, ok := v.(Boolean); ok {
		return bool(b), nil
	}
	return false, &Unexpected{Result: v}
}

// executeSpeculatingLong evaluates n through its long entry and boxes
// whichever result comes back.
func executeSpeculatingLong(n Node, w *World, f *Frame) (Value, error) {
	l, u, err := ExecuteLong(n, w, f)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u.Result, nil
	}
	return Long(l), nil
}

// ---------------------------------------------------------------------------
// Source sections and tags
// ---------------------------------------------------------------------------

// SourceSection is a character range in the program text.
type SourceSection struct {
	CharIndex int
	Length    int
}

// End returns the offset one past the last character.
func (s SourceSection) End() int { return s.CharIndex + s.Length }

// Contains reports whether offset falls inside the section.
func (s SourceSection) Contains(offset int) bool {
	return offset >= s.CharIndex && offset < s.End()
}

func (s SourceSection) String() string {
	return fmt.Sprintf("[%d,%d)", s.CharIndex, s.End())
}

// ErrSourceSectionSet is returned when a node's source section is
// assigned twice.
var ErrSourceSectionSet = errors.New("source section already set")

// Tag marks a node for tools.
type Tag uint8

const (
	StatementTag Tag = 1 << iota
	ExpressionTag
	CallTag
	RootTag
)

// nodeBase holds the bookkeeping shared by all node kinds.
type nodeBase struct {
	section    SourceSection
	hasSection bool
	tags       Tag
}

func (b *nodeBase) SourceSection() (SourceSection, bool) {
	return b.section, b.hasSection
}

// SetSourceSection records where the node came from. It may be called
// once; both arguments must be non-negative.
func (b *nodeBase) SetSourceSection(charIndex, length int) error {
	if b.hasSection {
		return ErrSourceSectionSet
	}
	if charIndex < 0 || length < 0 {
		return fmt.Errorf("invalid source section [%d,+%d)", charIndex, length)
	}
	b.section = SourceSection{CharIndex: charIndex, Length: length}
	b.hasSection = true
	return nil
}

// Tags returns the tags attached to the node. A node with a source
// section is always an expression.
func (b *nodeBase) Tags() Tag {
	if b.hasSection {
		return b.tags | ExpressionTag
	}
	return b.tags
}

func (b *nodeBase) AddTag(t Tag) { b.tags |= t }

func (b *nodeBase) node() {}

// HasTag reports whether n carries t.
func HasTag(n Node, t Tag) bool { return n.Tags()&t != 0 }
