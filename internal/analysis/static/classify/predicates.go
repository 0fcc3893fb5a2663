// Package classify recognizes sensitive library surfaces from nominal type
// identity and answers shape questions about inferred types.
//
// Two combinators separate the two kinds of union reasoning the rules need:
// AnyOf (existential, used to recognize a library surface) and AllOf
// (universal, used when a value must be provably constant).
package classify

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Predicate tests a single concrete type.
type Predicate func(typesys.Type) bool

// AnyOf reports whether at least one possible type of t satisfies pred.
func AnyOf(t typesys.Type, pred Predicate) bool {
	for _, p := range typesys.PossibleTypes(t) {
		if pred(p) {
			return true
		}
	}
	return false
}

// AllOf reports whether every possible type of t satisfies pred.
func AllOf(t typesys.Type, pred Predicate) bool {
	return typesys.MustSatisfy(t, pred)
}

// IsLiteral reports whether t is a single statically known constant.
func IsLiteral(t typesys.Type) bool {
	_, ok := t.(*typesys.Literal)
	return ok
}

// IsStringLiteral reports whether t is a string constant.
func IsStringLiteral(t typesys.Type) bool {
	l, ok := t.(*typesys.Literal)
	if !ok {
		return false
	}
	_, isString := l.Value.(string)
	return isString
}

// IsStringLike reports whether t is a string, literal or not.
func IsStringLike(t typesys.Type) bool {
	switch v := t.(type) {
	case *typesys.Literal:
		return v.Base() == typesys.PrimitiveString
	case *typesys.Primitive:
		return v.Name == typesys.PrimitiveString
	}
	return false
}

// IsPrimitiveNonLiteral reports whether t is a bare string, number or boolean
// with no known value.
func IsPrimitiveNonLiteral(t typesys.Type) bool {
	_, ok := t.(*typesys.Primitive)
	return ok
}

// LiteralString returns the constant value of a string literal type.
func LiteralString(t typesys.Type) (string, bool) {
	l, ok := t.(*typesys.Literal)
	if !ok {
		return "", false
	}
	s, ok := l.Value.(string)
	return s, ok
}

// IsObjectType reports whether t is a record shape, either directly or as
// the underlying structure of a nominative type.
func IsObjectType(t typesys.Type) bool {
	_, ok := objectOf(t)
	return ok
}

// ObjectProperties returns the sorted property names of an object type.
func ObjectProperties(t typesys.Type) ([]string, bool) {
	obj, ok := objectOf(t)
	if !ok {
		return nil, false
	}
	return obj.PropertyNames(), true
}

// CallSignatures collects the call signatures of t across its union members
// and through nominative wrappers.
func CallSignatures(t typesys.Type) []typesys.Signature {
	var sigs []typesys.Signature
	for _, p := range typesys.PossibleTypes(t) {
		if obj, ok := objectOf(p); ok {
			sigs = append(sigs, obj.Signatures...)
		}
	}
	return sigs
}

// HasParameterNamed returns the index of the first parameter of sig called
// name, or -1.
func HasParameterNamed(sig typesys.Signature, name string) int {
	for i, p := range sig.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// BelongsToPackage reports whether some possible type of t is declared by one
// of the given packages.
func BelongsToPackage(t typesys.Type, packages ...string) bool {
	return AnyOf(t, func(p typesys.Type) bool {
		n, ok := p.(*typesys.Nominative)
		if !ok {
			return false
		}
		for _, pkg := range packages {
			if n.Name.Package == pkg {
				return true
			}
		}
		return false
	})
}

func objectOf(t typesys.Type) (*typesys.Object, bool) {
	switch v := t.(type) {
	case *typesys.Object:
		return v, true
	case *typesys.Nominative:
		if v.Underlying != nil {
			return objectOf(v.Underlying)
		}
	}
	return nil, false
}
