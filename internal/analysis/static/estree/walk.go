package estree

// Handlers registers callbacks per node kind. Nil callbacks are skipped.
type Handlers struct {
	CallExpression     func(*CallExpression)
	VariableDeclarator func(*VariableDeclarator)
}

// Walk performs a single pre-order pass over root in document order. At each
// node, every handler set is offered the node in the order given.
func Walk(root Node, sets ...Handlers) {
	Inspect(root, func(n Node) bool {
		switch v := n.(type) {
		case *CallExpression:
			for _, hs := range sets {
				if hs.CallExpression != nil {
					hs.CallExpression(v)
				}
			}
		case *VariableDeclarator:
			for _, hs := range sets {
				if hs.VariableDeclarator != nil {
					hs.VariableDeclarator(v)
				}
			}
		}
		return true
	})
}

// Inspect traverses the tree in depth-first pre-order, calling fn for each
// node. If fn returns false, the children of that node are skipped.
func Inspect(root Node, fn func(Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, child := range root.Children() {
		Inspect(child, fn)
	}
}

// PropertyName returns the static name accessed by m: the identifier of a
// non-computed access, or the string literal of a computed one.
func PropertyName(m *MemberExpression) (string, bool) {
	if m == nil || m.Property == nil {
		return "", false
	}
	switch p := m.Property.(type) {
	case *Identifier:
		if !m.Computed {
			return p.Name, true
		}
	case *Literal:
		if s, ok := p.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Argument returns the i-th call argument or nil.
func Argument(c *CallExpression, i int) Node {
	if c == nil || i < 0 || i >= len(c.Arguments) {
		return nil
	}
	return c.Arguments[i]
}
