package taint

import (
	"iter"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// Operands lazily yields the leaf operands of expr. It descends through
// binary operands, call arguments and template substitutions; any other node
// is a leaf. Function bodies are never entered.
func Operands(expr estree.Node) iter.Seq[estree.Node] {
	return func(yield func(estree.Node) bool) {
		operands(expr, yield)
	}
}

// Identifiers yields the identifier leaves of expr, in the order Operands
// visits them.
func Identifiers(expr estree.Node) iter.Seq[*estree.Identifier] {
	return func(yield func(*estree.Identifier) bool) {
		for leaf := range Operands(expr) {
			if id, ok := leaf.(*estree.Identifier); ok {
				if !yield(id) {
					return
				}
			}
		}
	}
}

func operands(n estree.Node, yield func(estree.Node) bool) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *estree.BinaryExpression:
		return operands(v.Left, yield) && operands(v.Right, yield)
	case *estree.CallExpression:
		for _, arg := range v.Arguments {
			if !operands(arg, yield) {
				return false
			}
		}
		return true
	case *estree.TemplateLiteral:
		for _, e := range v.Expressions {
			if !operands(e, yield) {
				return false
			}
		}
		return true
	case *estree.FunctionExpression:
		return true
	default:
		return yield(n)
	}
}
