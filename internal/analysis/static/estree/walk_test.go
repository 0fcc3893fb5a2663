package estree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkIsPreOrderAndOffersEveryHandlerSet(t *testing.T) {
	inner := &CallExpression{Callee: &Identifier{Name: "inner"}}
	outer := &CallExpression{
		Callee:    &MemberExpression{Object: &Identifier{Name: "jwt"}, Property: &Identifier{Name: "sign"}},
		Arguments: []Node{inner, nil, &Literal{Value: "k"}},
	}
	decl := &VariableDeclarator{ID: &Identifier{Name: "t"}, Init: outer}
	fn := &FunctionExpression{
		Params: []Node{&Identifier{Name: "req"}},
		Body:   &Generic{Type: "BlockStatement", Items: []Node{&CallExpression{Callee: &Identifier{Name: "nested"}}}},
	}
	prog := &Program{Body: []Node{decl, fn}}

	var seen []string
	callee := func(c *CallExpression) string {
		if id, ok := c.Callee.(*Identifier); ok {
			return id.Name
		}
		name, _ := PropertyName(c.Callee.(*MemberExpression))
		return name
	}
	first := Handlers{
		CallExpression:     func(c *CallExpression) { seen = append(seen, "1:"+callee(c)) },
		VariableDeclarator: func(*VariableDeclarator) { seen = append(seen, "1:decl") },
	}
	second := Handlers{
		CallExpression: func(c *CallExpression) { seen = append(seen, "2:"+callee(c)) },
	}
	Walk(prog, first, second)

	assert.Equal(t, []string{
		"1:decl",
		"1:sign", "2:sign",
		"1:inner", "2:inner",
		"1:nested", "2:nested",
	}, seen)
}

func TestInspectPrunes(t *testing.T) {
	prog := &Program{Body: []Node{
		&FunctionExpression{Body: &Identifier{Name: "hidden"}},
		&Identifier{Name: "visible"},
	}}
	var names []string
	Inspect(prog, func(n Node) bool {
		switch v := n.(type) {
		case *FunctionExpression:
			return false
		case *Identifier:
			names = append(names, v.Name)
		}
		return true
	})
	assert.Equal(t, []string{"visible"}, names)
	Inspect(nil, func(Node) bool { t.Fatal("called on nil"); return true })
}

func TestPropertyNameAndArgument(t *testing.T) {
	name, ok := PropertyName(&MemberExpression{Property: &Identifier{Name: "verify"}})
	assert.True(t, ok)
	assert.Equal(t, "verify", name)

	name, ok = PropertyName(&MemberExpression{Property: &Literal{Value: "decode"}, Computed: true})
	assert.True(t, ok)
	assert.Equal(t, "decode", name)

	_, ok = PropertyName(&MemberExpression{Property: &Identifier{Name: "k"}, Computed: true})
	assert.False(t, ok, "obj[k] has no static name")
	_, ok = PropertyName(nil)
	assert.False(t, ok)

	call := &CallExpression{Arguments: []Node{&Identifier{Name: "a"}}}
	assert.NotNil(t, Argument(call, 0))
	assert.Nil(t, Argument(call, 1))
	assert.Nil(t, Argument(call, -1))
	assert.Nil(t, Argument(nil, 0))
}

func TestSpans(t *testing.T) {
	id := At(&Identifier{Name: "x"}, Span{Start: Position{Line: 3, Column: 4}, StartByte: 10, EndByte: 11})
	assert.Equal(t, "3:4", id.Span().String())
	assert.Equal(t, 10, id.Span().StartByte)

	p := &Property{Key: &Identifier{Name: "k"}, Value: &Identifier{Name: "v"}, Shorthand: true}
	assert.Len(t, p.Children(), 1, "shorthand properties expose the value once")
}
