package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// reqParam builds req.<a>.<b>... rooted at a Request-typed identifier.
func (b *builder) reqParam(path ...string) estree.Node {
	var n estree.Node = b.id("req", expressRequest)
	for _, p := range path {
		n = b.member(n, p, typesys.Any)
	}
	return n
}

func (b *builder) requireCall(args ...estree.Node) *estree.CallExpression {
	return b.call(b.id("require", nodeRequire), typesys.Any, args...)
}

func TestRequireLiteralPath(t *testing.T) {
	b := newBuilder()
	prog := program(
		b.requireCall(b.str("fs")),
		b.requireCall(b.id("mod", typesys.NewUnion(lit("./a"), lit("./b")))),
		b.requireCall(),
	)
	assert.Empty(t, run(t, b, prog, RequireRequest{}))
}

func TestRequireUntypedPathIsSilent(t *testing.T) {
	b := newBuilder()
	prog := program(b.requireCall(b.id("p", nil)), b.requireCall(b.id("p", nil)))
	assert.Empty(t, run(t, b, prog, RequireRequest{}))
}

func TestRequireTaintedDeclaration(t *testing.T) {
	// const id = req.params.id; require(id)
	b := newBuilder()
	call := b.requireCall(b.id("id", stringType))
	prog := program(b.declare("id", b.reqParam("params", "id"), stringType), call)

	fs := run(t, b, prog, RequireRequest{})
	require.Len(t, fs, 1)
	assert.Equal(t, core.CheckRequireFromRequest, fs[0].CheckID)
	assert.Same(t, call, fs[0].Node)
}

func TestRequireTaintedNameReused(t *testing.T) {
	// const p = req.query.mod; require(p); require(p)
	b := newBuilder()
	first := b.requireCall(b.id("p", stringType))
	second := b.requireCall(b.id("p", stringType))
	prog := program(b.declare("p", b.reqParam("query", "mod"), stringType), first, second)

	fs := run(t, b, prog, RequireRequest{})
	require.Len(t, fs, 2)
	assert.Same(t, first, fs[0].Node)
	assert.Equal(t, core.CheckRequireFromRequest, fs[0].CheckID)
	assert.Same(t, second, fs[1].Node)
	assert.Equal(t, core.CheckRequireRequestVar, fs[1].CheckID)
}

func TestRequireDirectRequestAccess(t *testing.T) {
	b := newBuilder()
	direct := b.requireCall(b.reqParam("body"))
	concat := b.requireCall(&estree.BinaryExpression{
		Operator: "+",
		Left:     b.str("./plugins/"),
		Right:    b.reqParam("query", "name"),
	})
	b.typed(concat.Arguments[0], stringType)

	fs := run(t, b, program(direct, concat), RequireRequest{})
	assert.Equal(t, []core.CheckID{core.CheckRequireFromRequest, core.CheckRequireFromRequest}, checkIDs(fs))
}

func TestRequireNameRecurrence(t *testing.T) {
	b := newBuilder()
	first := b.requireCall(b.id("name", stringType))
	tmpl := &estree.TemplateLiteral{Quasis: []string{"./", ""}, Expressions: []estree.Node{b.id("name", stringType)}}
	b.typed(tmpl, stringType)
	second := b.requireCall(tmpl)
	other := b.requireCall(b.id("unrelated", stringType))

	fs := run(t, b, program(first, second, other), RequireRequest{})
	require.Len(t, fs, 1)
	assert.Equal(t, core.CheckRequireRequestVar, fs[0].CheckID)
	assert.Same(t, second, fs[0].Node)
}

// The tracker only sees declarations already visited.
func TestRequireOrderDependence(t *testing.T) {
	b := newBuilder()
	early := b.requireCall(b.id("late", stringType))
	prog := program(early, b.declare("late", b.reqParam("query", "m"), stringType))
	assert.Empty(t, run(t, b, prog, RequireRequest{}))
}

func TestRequireNeverBothKinds(t *testing.T) {
	paths := []func(b *builder) estree.Node{
		func(b *builder) estree.Node { return b.id("x", stringType) },
		func(b *builder) estree.Node { return b.reqParam("query", "x") },
		func(b *builder) estree.Node {
			n := &estree.BinaryExpression{Operator: "+", Left: b.id("x", stringType), Right: b.reqParam("body")}
			b.typed(n, stringType)
			return n
		},
	}

	for i, mk := range paths {
		b := newBuilder()
		calls := []estree.Node{
			b.declare("x", b.reqParam("params", "x"), stringType),
			b.requireCall(mk(b)),
			b.requireCall(mk(b)),
		}
		fs := run(t, b, program(calls...), RequireRequest{})
		perCall := map[estree.Node]int{}
		for _, f := range fs {
			perCall[f.Node]++
		}
		for node, n := range perCall {
			assert.Equal(t, 1, n, "case %d: call %v reported more than once", i, node.Span())
		}
		assert.Len(t, fs, 2, "case %d", i)
	}
}

func TestRequireDeclaratorRegistersWithoutUse(t *testing.T) {
	b := newBuilder()
	ctx := NewContext("t.js", nil, b.ann, nil, nil, nil, nil)
	prog := program(b.declare("q", b.reqParam("query"), stringType), b.declare("n", b.str("x"), lit("x")))

	r := RequireRequest{}
	estree.Walk(prog, r.Create(ctx.For(r)))
	assert.Equal(t, 1, ctx.Tracker.Len())
}
