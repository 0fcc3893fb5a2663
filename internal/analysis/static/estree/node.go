// Package estree is the syntax tree consumed by the rules. It mirrors the
// subset of ESTree the detectors inspect; every other construct is kept as a
// Generic container so traversal still reaches nested calls and declarations.
//
// The variant set is closed: Node can only be implemented inside this package.
package estree

import "fmt"

// Position is a 1-based line and 0-based column, matching tree-sitter and ESTree loc.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span locates a node in its source unit.
type Span struct {
	Start     Position `json:"start"`
	End       Position `json:"end"`
	StartByte int      `json:"start_byte"`
	EndByte   int      `json:"end_byte"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
}

// Node is implemented by every syntax variant.
type Node interface {
	Span() Span
	// Children returns the direct child nodes in document order.
	Children() []Node
	node()
}

type base struct {
	Loc Span
}

func (b *base) Span() Span { return b.Loc }
func (*base) node()        {}

// Program is the root of one analyzed unit.
type Program struct {
	base
	Body []Node
}

func (p *Program) Children() []Node { return p.Body }

// Identifier is a plain name reference or binding.
type Identifier struct {
	base
	Name string
}

func (*Identifier) Children() []Node { return nil }

// Literal is a string, number, boolean, null or regex literal. Value is a
// string, float64, bool or nil.
type Literal struct {
	base
	Value any
	Raw   string
}

func (*Literal) Children() []Node { return nil }

// TemplateLiteral is a backtick string. Quasis are the cooked static parts.
type TemplateLiteral struct {
	base
	Quasis      []string
	Expressions []Node
}

func (t *TemplateLiteral) Children() []Node { return t.Expressions }

// BinaryExpression covers binary and logical operators.
type BinaryExpression struct {
	base
	Operator string
	Left     Node
	Right    Node
}

func (b *BinaryExpression) Children() []Node { return nonNil(b.Left, b.Right) }

// MemberExpression is obj.prop or obj[expr].
type MemberExpression struct {
	base
	Object   Node
	Property Node
	Computed bool
}

func (m *MemberExpression) Children() []Node { return nonNil(m.Object, m.Property) }

// CallExpression is callee(args...). New marks a `new` expression.
type CallExpression struct {
	base
	Callee    Node
	Arguments []Node
	New       bool
}

func (c *CallExpression) Children() []Node {
	out := make([]Node, 0, len(c.Arguments)+1)
	out = append(out, nonNil(c.Callee)...)
	return append(out, nonNil(c.Arguments...)...)
}

// Property is one key/value entry of an object literal.
type Property struct {
	base
	Key       Node
	Value     Node
	Computed  bool
	Shorthand bool
}

func (p *Property) Children() []Node {
	if p.Shorthand {
		return nonNil(p.Value)
	}
	return nonNil(p.Key, p.Value)
}

// ObjectExpression is an object literal. Spread elements appear as Generic entries.
type ObjectExpression struct {
	base
	Properties []Node
}

func (o *ObjectExpression) Children() []Node { return o.Properties }

// FunctionExpression covers declarations, expressions, arrows and methods.
type FunctionExpression struct {
	base
	ID     *Identifier
	Params []Node
	Body   Node
	Arrow  bool
}

func (f *FunctionExpression) Children() []Node {
	out := make([]Node, 0, len(f.Params)+2)
	if f.ID != nil {
		out = append(out, f.ID)
	}
	out = append(out, nonNil(f.Params...)...)
	return append(out, nonNil(f.Body)...)
}

// VariableDeclarator is one binding of a var/let/const declaration.
type VariableDeclarator struct {
	base
	ID   Node
	Init Node
}

func (v *VariableDeclarator) Children() []Node { return nonNil(v.ID, v.Init) }

// Generic holds any construct the rules do not inspect directly.
type Generic struct {
	base
	Type  string
	Items []Node
}

func (g *Generic) Children() []Node { return g.Items }

func nonNil(nodes ...Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// At sets the span of a freshly built node and returns it, so front ends can
// write estree.At(&estree.Identifier{Name: "x"}, span).
func At[N interface {
	Node
	setSpan(Span)
}](n N, s Span) N {
	n.setSpan(s)
	return n
}

func (b *base) setSpan(s Span) { b.Loc = s }
