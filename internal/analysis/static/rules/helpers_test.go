package rules

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// -- Type fixtures --

func nominal(pkg, name string) *typesys.Nominative {
	return &typesys.Nominative{Name: typesys.QualifiedName{Package: pkg, Name: name}}
}

var (
	jsonwebtokenType = nominal(classify.PackageJsonWebToken, "jsonwebtoken")
	joseJWK          = nominal(classify.PackageJose, "JWK")
	joseJWT          = nominal(classify.PackageJose, "JWT")
	mongooseDocument = nominal(classify.PackageMongooseTypes, "Document")
	nodeRequire      = nominal(classify.PackageNode, "NodeRequire")
	expressRequest   = nominal(classify.PackageExpressCore, "Request")
	stringType       = &typesys.Primitive{Name: typesys.PrimitiveString}
)

func lit(v any) *typesys.Literal { return &typesys.Literal{Value: v} }

func object(props ...string) *typesys.Object {
	o := &typesys.Object{Properties: map[string]typesys.Type{}}
	for _, p := range props {
		o.Properties[p] = typesys.Any
	}
	return o
}

// -- Tree builder --

// builder constructs trees and records node types as it goes.
type builder struct {
	ann *typesys.Annotations
}

func newBuilder() *builder { return &builder{ann: typesys.NewAnnotations()} }

func (b *builder) typed(n estree.Node, t typesys.Type) {
	if t != nil {
		b.ann.Set(n, t)
	}
}

func (b *builder) id(name string, t typesys.Type) *estree.Identifier {
	n := &estree.Identifier{Name: name}
	b.typed(n, t)
	return n
}

func (b *builder) str(s string) *estree.Literal {
	n := &estree.Literal{Value: s, Raw: "'" + s + "'"}
	b.typed(n, lit(s))
	return n
}

func (b *builder) member(obj estree.Node, prop string, t typesys.Type) *estree.MemberExpression {
	n := &estree.MemberExpression{Object: obj, Property: &estree.Identifier{Name: prop}}
	b.typed(n, t)
	return n
}

func (b *builder) call(callee estree.Node, t typesys.Type, args ...estree.Node) *estree.CallExpression {
	n := &estree.CallExpression{Callee: callee, Arguments: args}
	b.typed(n, t)
	return n
}

// method builds recv.name(args...) with an untyped result.
func (b *builder) method(recv estree.Node, name string, args ...estree.Node) *estree.CallExpression {
	return b.call(b.member(recv, name, typesys.Any), typesys.Any, args...)
}

func (b *builder) objectLit(t typesys.Type, keys ...string) *estree.ObjectExpression {
	n := &estree.ObjectExpression{}
	for _, k := range keys {
		n.Properties = append(n.Properties, &estree.Property{
			Key:   &estree.Identifier{Name: k},
			Value: b.id(k, typesys.Any),
		})
	}
	b.typed(n, t)
	return n
}

func (b *builder) declare(name string, init estree.Node, t typesys.Type) *estree.VariableDeclarator {
	return &estree.VariableDeclarator{ID: b.id(name, t), Init: init}
}

// program wraps each node in a statement container, mirroring how front ends
// emit ExpressionStatement and VariableDeclaration wrappers.
func program(stmts ...estree.Node) *estree.Program {
	p := &estree.Program{}
	for _, s := range stmts {
		p.Body = append(p.Body, &estree.Generic{Type: "ExpressionStatement", Items: []estree.Node{s}})
	}
	return p
}

// run executes rs over prog in one pass with a shared tracker.
func run(t *testing.T, b *builder, prog *estree.Program, rs ...Rule) []core.Finding {
	t.Helper()
	var out []core.Finding
	ctx := NewContext("test.js", nil, b.ann, nil, nil, zaptest.NewLogger(t), func(f core.Finding) {
		out = append(out, f)
	})
	handlers := make([]estree.Handlers, 0, len(rs))
	for _, r := range rs {
		handlers = append(handlers, r.Create(ctx.For(r)))
	}
	estree.Walk(prog, handlers...)
	return out
}

func checkIDs(fs []core.Finding) []core.CheckID {
	out := make([]core.CheckID, len(fs))
	for i, f := range fs {
		out[i] = f.CheckID
	}
	return out
}
