package vm

import (
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Frame descriptors and slots
// ---------------------------------------------------------------------------

// SlotKind is the storage kind recorded for a frame slot. Kinds only
// generalize: Uninitialized moves to a concrete kind, and any
// disagreement after that moves to Generic for good.
type SlotKind uint32

const (
	SlotUninitialized SlotKind = iota
	SlotLong
	SlotBoolean
	SlotString
	SlotGeneric
)

func (k SlotKind) String() string {
	switch k {
	case SlotUninitialized:
		return "uninitialized"
	case SlotLong:
		return "long"
	case SlotBoolean:
		return "boolean"
	case SlotString:
		return "string"
	default:
		return "generic"
	}
}

// FrameSlot is a named storage location in a function's frame layout.
// Its kind is shared by every frame built from the same descriptor, so
// concurrent worlds may race to generalize it; the transition is a CAS.
type FrameSlot struct {
	Index int
	Name  string
	kind  atomic.Uint32
}

// Kind returns the current storage kind.
func (s *FrameSlot) Kind() SlotKind { return SlotKind(s.kind.Load()) }

// generalize joins the slot kind with to and returns the result.
func (s *FrameSlot) generalize(to SlotKind) SlotKind {
	for {
		cur := SlotKind(s.kind.Load())
		next := joinSlotKind(cur, to)
		if next == cur {
			return cur
		}
		if s.kind.CompareAndSwap(uint32(cur), uint32(next)) {
			if next == SlotGeneric {
				log.Debugf("slot %q generalized from %s", s.Name, cur)
			}
			return next
		}
	}
}

func joinSlotKind(cur, to SlotKind) SlotKind {
	switch {
	case cur == to:
		return cur
	case cur == SlotUninitialized:
		return to
	default:
		return SlotGeneric
	}
}

func slotKindOf(v Value) SlotKind {
	switch v.(type) {
	case Long:
		return SlotLong
	case Boolean:
		return SlotBoolean
	case String:
		return SlotString
	default:
		return SlotGeneric
	}
}

// FrameDescriptor is the slot layout of one function. It is built while
// the function is constructed and is read-only afterwards.
type FrameDescriptor struct {
	slots  []*FrameSlot
	byName map[string]*FrameSlot
}

// NewFrameDescriptor creates an empty layout.
func NewFrameDescriptor() *FrameDescriptor {
	return &FrameDescriptor{byName: make(map[string]*FrameSlot)}
}

// FindOrAddSlot returns the slot for name, creating it if absent. The
// second result reports whether a slot was created.
func (d *FrameDescriptor) FindOrAddSlot(name string) (*FrameSlot, bool) {
	if s, ok := d.byName[name]; ok {
		return s, false
	}
	s := &FrameSlot{Index: len(d.slots), Name: name}
	d.slots = append(d.slots, s)
	d.byName[name] = s
	return s, true
}

// FindSlot looks up an existing slot.
func (d *FrameDescriptor) FindSlot(name string) (*FrameSlot, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// Size returns the number of slots.
func (d *FrameDescriptor) Size() int { return len(d.slots) }

// Slots returns the slots in index order.
func (d *FrameDescriptor) Slots() []*FrameSlot {
	out := make([]*FrameSlot, len(d.slots))
	copy(out, d.slots)
	return out
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// Frame is the per-activation storage of a function: its arguments plus
// one tagged cell per descriptor slot. Longs and booleans are stored
// unboxed.
type Frame struct {
	desc    *FrameDescriptor
	args    []Value
	tags    []SlotKind
	longs   []int64
	bools   []bool
	objects []Value
}

// NewFrame allocates a frame for desc holding args.
func NewFrame(desc *FrameDescriptor, args []Value) *Frame {
	n := desc.Size()
	return &Frame{
		desc:    desc,
		args:    args,
		tags:    make([]SlotKind, n),
		longs:   make([]int64, n),
		bools:   make([]bool, n),
		objects: make([]Value, n),
	}
}

// Descriptor returns the layout the frame was built from.
func (f *Frame) Descriptor() *FrameDescriptor { return f.desc }

// Arguments returns the call arguments.
func (f *Frame) Arguments() []Value { return f.args }

func (f *Frame) setLong(i int, v int64) {
	f.tags[i] = SlotLong
	f.longs[i] = v
	f.objects[i] = nil
}

func (f *Frame) setBoolean(i int, v bool) {
	f.tags[i] = SlotBoolean
	f.bools[i] = v
	f.objects[i] = nil
}

func (f *Frame) setObject(i int, v Value) {
	f.tags[i] = SlotGeneric
	f.objects[i] = v
}

// get returns the boxed content of slot i. Unwritten slots read as Null.
func (f *Frame) get(i int) Value {
	switch f.tags[i] {
	case SlotLong:
		return Long(f.longs[i])
	case SlotBoolean:
		return Boolean(f.bools[i])
	case SlotUninitialized:
		return Null
	default:
		return f.objects[i]
	}
}

// Get returns the value stored in slot.
func (f *Frame) Get(slot *FrameSlot) Value { return f.get(slot.Index) }
