// Package typesys models the inferred static types attached to ESTree nodes.
// Types are treated as opaque descriptors by the rules: they are introspected
// through the helpers in this package and in the classify package, never built
// by the matchers themselves.
package typesys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the concrete variants of Type.
type Kind int

const (
	KindAny Kind = iota
	KindNominative
	KindLiteral
	KindPrimitive
	KindObject
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindNominative:
		return "nominative"
	case KindLiteral:
		return "literal"
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	default:
		return "any"
	}
}

// Type is a sealed interface over the type variants below.
type Type interface {
	Kind() Kind
	String() string
	isType()
}

// QualifiedName is the nominal identity of a declared type: the package that
// declares it and its exported name.
type QualifiedName struct {
	Package string `json:"package"`
	Name    string `json:"name"`
}

func (q QualifiedName) String() string {
	if q.Package == "" {
		return q.Name
	}
	return q.Package + "." + q.Name
}

// Nominative is a named type declared by some package. Underlying optionally
// carries its structural shape (properties, call signatures).
type Nominative struct {
	Name       QualifiedName
	Underlying Type
}

func (*Nominative) isType()          {}
func (*Nominative) Kind() Kind       { return KindNominative }
func (n *Nominative) String() string { return n.Name.String() }

// Literal is a type inhabited by exactly one constant: a string, a float64 or a bool.
type Literal struct {
	Value any
}

func (*Literal) isType()    {}
func (*Literal) Kind() Kind { return KindLiteral }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Base returns the primitive that widens this literal.
func (l *Literal) Base() PrimitiveName {
	switch l.Value.(type) {
	case string:
		return PrimitiveString
	case bool:
		return PrimitiveBoolean
	default:
		return PrimitiveNumber
	}
}

// PrimitiveName names the primitive types the analysis distinguishes.
type PrimitiveName string

const (
	PrimitiveString  PrimitiveName = "string"
	PrimitiveNumber  PrimitiveName = "number"
	PrimitiveBoolean PrimitiveName = "boolean"
)

// Primitive is a bare primitive whose value is only known at runtime.
type Primitive struct {
	Name PrimitiveName
}

func (*Primitive) isType()          {}
func (*Primitive) Kind() Kind       { return KindPrimitive }
func (p *Primitive) String() string { return string(p.Name) }

// Param is one formal parameter of a call signature.
type Param struct {
	Name string
	Type Type
}

// Signature is one call signature of a callable object.
type Signature struct {
	Params []Param
	Return Type
}

// Object is a structural record type. Callable objects (functions) carry one
// or more Signatures.
type Object struct {
	Properties map[string]Type
	Signatures []Signature
}

func (*Object) isType()    {}
func (*Object) Kind() Kind { return KindObject }

// PropertyNames returns the declared property names in sorted order.
func (o *Object) PropertyNames() []string {
	names := make([]string, 0, len(o.Properties))
	for name := range o.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *Object) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, name := range o.PropertyNames() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		if t := o.Properties[name]; t != nil {
			b.WriteString(": ")
			b.WriteString(t.String())
		}
	}
	for i, sig := range o.Signatures {
		if i > 0 || len(o.Properties) > 0 {
			b.WriteString("; ")
		}
		b.WriteString("(")
		for j, p := range sig.Params {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			if p.Type != nil {
				b.WriteString(": " + p.Type.String())
			}
		}
		b.WriteString(")")
	}
	b.WriteString("}")
	return b.String()
}

// Union is a type that may hold any one of its members.
type Union struct {
	Members []Type
}

func (*Union) isType()    {}
func (*Union) Kind() Kind { return KindUnion }

func (u *Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

// AnyType is the type of an expression whose shape could not be determined.
type AnyType struct{}

func (AnyType) isType()        {}
func (AnyType) Kind() Kind     { return KindAny }
func (AnyType) String() string { return "any" }

// Any is the shared instance of AnyType.
var Any Type = AnyType{}

// NewUnion flattens nested unions. A union of a single member collapses to it.
func NewUnion(members ...Type) Type {
	flat := make([]Type, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		if u, ok := m.(*Union); ok {
			flat = append(flat, u.Members...)
			continue
		}
		flat = append(flat, m)
	}
	switch len(flat) {
	case 0:
		return Any
	case 1:
		return flat[0]
	}
	return &Union{Members: flat}
}

// PossibleTypes expands t into the concrete types it may hold. Non-union types
// expand to themselves; nested unions are flattened.
func PossibleTypes(t Type) []Type {
	if t == nil {
		return nil
	}
	u, ok := t.(*Union)
	if !ok {
		return []Type{t}
	}
	out := make([]Type, 0, len(u.Members))
	for _, m := range u.Members {
		out = append(out, PossibleTypes(m)...)
	}
	return out
}

// MustSatisfy reports whether every possible type of t satisfies pred.
// A nil type satisfies nothing.
func MustSatisfy(t Type, pred func(Type) bool) bool {
	possible := PossibleTypes(t)
	if len(possible) == 0 {
		return false
	}
	for _, p := range possible {
		if !pred(p) {
			return false
		}
	}
	return true
}
