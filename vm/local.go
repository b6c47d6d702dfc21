package vm

// ---------------------------------------------------------------------------
// Local variables and arguments
// ---------------------------------------------------------------------------

// ReadLocal reads a frame slot.
type ReadLocal struct {
	nodeBase
	slot *FrameSlot
}

func NewReadLocal(slot *FrameSlot) *ReadLocal { return &ReadLocal{slot: slot} }

// Slot returns the slot read by the node.
func (n *ReadLocal) Slot() *FrameSlot { return n.slot }

func (n *ReadLocal) ShortName() string { return n.slot.Name }

func (n *ReadLocal) ExecuteLong(_ *World, f *Frame) (int64, *Unexpected, error) {
	i := n.slot.Index
	if f.tags[i] == SlotLong {
		return f.longs[i], nil, nil
	}
	l, u := expectLong(f.get(i))
	return l, u, nil
}

func (n *ReadLocal) ExecuteBoolean(_ *World, f *Frame) (bool, *Unexpected, error) {
	i := n.slot.Index
	if f.tags[i] == SlotBoolean {
		return f.bools[i], nil, nil
	}
	b, u := expectBoolean(f.get(i))
	return b, u, nil
}

func (n *ReadLocal) ExecuteGeneric(_ *World, f *Frame) (Value, error) {
	return f.get(n.slot.Index), nil
}

func (n *ReadLocal) ExecuteVoid(*World, *Frame) error { return nil }

// WriteLocal evaluates its value, stores it in a slot and yields it.
// While the slot kind is still long or boolean the value is evaluated
// through the matching specialized entry.
type WriteLocal struct {
	nodeBase
	slot        *FrameSlot
	value       Node
	declaration bool
}

// NewWriteLocal creates an assignment. declaration marks the write that
// introduced the variable.
func NewWriteLocal(slot *FrameSlot, value Node, declaration bool) *WriteLocal {
	return &WriteLocal{slot: slot, value: value, declaration: declaration}
}

func (n *WriteLocal) Slot() *FrameSlot    { return n.slot }
func (n *WriteLocal) IsDeclaration() bool { return n.declaration }
func (n *WriteLocal) ShortName() string   { return ":=" }

func (n *WriteLocal) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	var v Value
	switch n.slot.Kind() {
	case SlotUninitialized, SlotLong:
		l, u, err := ExecuteLong(n.value, w, f)
		if err != nil {
			return nil, err
		}
		if u == nil {
			v = Long(l)
		} else {
			v = u.Result
		}
	case SlotBoolean:
		b, u, err := ExecuteBoolean(n.value, w, f)
		if err != nil {
			return nil, err
		}
		if u == nil {
			v = Boolean(b)
		} else {
			v = u.Result
		}
	default:
		var err error
		if v, err = n.value.ExecuteGeneric(w, f); err != nil {
			return nil, err
		}
	}
	n.store(f, v)
	return v, nil
}

func (n *WriteLocal) ExecuteVoid(w *World, f *Frame) error {
	_, err := n.ExecuteGeneric(w, f)
	return err
}

func (n *WriteLocal) store(f *Frame, v Value) {
	i := n.slot.Index
	switch n.slot.generalize(slotKindOf(v)) {
	case SlotLong:
		if l, ok := v.(Long); ok {
			f.setLong(i, int64(l))
			return
		}
	case SlotBoolean:
		if b, ok := v.(Boolean); ok {
			f.setBoolean(i, bool(b))
			return
		}
	}
	f.setObject(i, v)
}

// ReadArgument yields the call argument at a fixed index, or Null when
// the call supplied fewer arguments.
type ReadArgument struct {
	nodeBase
	index int
}

func NewReadArgument(index int) *ReadArgument { return &ReadArgument{index: index} }

func (n *ReadArgument) ShortName() string { return "arg" }

func (n *ReadArgument) ExecuteGeneric(_ *World, f *Frame) (Value, error) {
	if n.index < len(f.args) {
		return f.args[n.index], nil
	}
	return Null, nil
}

func (n *ReadArgument) ExecuteVoid(*World, *Frame) error { return nil }
