package vm

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// Block runs a statement list in order.
type Block struct {
	nodeBase
	stmts []Node
}

func NewBlock(stmts []Node) *Block { return &Block{stmts: stmts} }

// Statements returns the statements of the block.
func (n *Block) Statements() []Node { return n.stmts }

func (n *Block) ShortName() string { return "block" }

func (n *Block) ExecuteVoid(w *World, f *Frame) error {
	for _, s := range n.stmts {
		if err := s.ExecuteVoid(w, f); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteGeneric yields the value of the last statement, or Null for an
// empty block.
func (n *Block) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	if len(n.stmts) == 0 {
		return Null, nil
	}
	last := len(n.stmts) - 1
	for _, s := range n.stmts[:last] {
		if err := s.ExecuteVoid(w, f); err != nil {
			return nil, err
		}
	}
	return n.stmts[last].ExecuteGeneric(w, f)
}

// If evaluates a strictly boolean condition and runs one branch. A
// missing else branch yields Null.
type If struct {
	nodeBase
	cond     Node
	thenPart Node
	elsePart Node
}

func NewIf(cond, thenPart, elsePart Node) *If {
	return &If{cond: cond, thenPart: thenPart, elsePart: elsePart}
}

func (n *If) ShortName() string { return "if" }

func (n *If) branch(w *World, f *Frame) (Node, error) {
	c, u, err := ExecuteBoolean(n.cond, w, f)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return nil, typeError(n, u.Result)
	}
	if c {
		return n.thenPart, nil
	}
	return n.elsePart, nil
}

func (n *If) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	b, err := n.branch(w, f)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return Null, nil
	}
	return b.ExecuteGeneric(w, f)
}

func (n *If) ExecuteVoid(w *World, f *Frame) error {
	b, err := n.branch(w, f)
	if err != nil || b == nil {
		return err
	}
	return b.ExecuteVoid(w, f)
}

// While repeats its body while the condition holds. The condition may
// be a boolean or a long, where any nonzero long counts as true.
type While struct {
	nodeBase
	cond Node
	body Node
}

func NewWhile(cond, body Node) *While { return &While{cond: cond, body: body} }

func (n *While) ShortName() string { return "while" }

func (n *While) test(w *World, f *Frame) (bool, error) {
	var v Value
	if bn, ok := n.cond.(BooleanNode); ok {
		b, u, err := bn.ExecuteBoolean(w, f)
		if err != nil {
			return false, err
		}
		if u == nil {
			return b, nil
		}
		v = u.Result
	} else {
		l, u, err := ExecuteLong(n.cond, w, f)
		if err != nil {
			return false, err
		}
		if u == nil {
			return l != 0, nil
		}
		v = u.Result
	}
	switch c := v.(type) {
	case Boolean:
		return bool(c), nil
	case Long:
		return c != 0, nil
	case *BigNumber:
		return c.v.Sign() != 0, nil
	}
	return false, typeError(n, v)
}

func (n *While) ExecuteVoid(w *World, f *Frame) error {
	for {
		ok, err := n.test(w, f)
		if err != nil || !ok {
			return err
		}
		if err := n.body.ExecuteVoid(w, f); err != nil {
			return err
		}
	}
}

// ExecuteGeneric runs the loop and yields Null.
func (n *While) ExecuteGeneric(w *World, f *Frame) (Value, error) {
	if err := n.ExecuteVoid(w, f); err != nil {
		return nil, err
	}
	return Null, nil
}
