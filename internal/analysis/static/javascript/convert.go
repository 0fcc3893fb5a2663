// Filename: javascript/convert.go
package javascript

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// converter lowers a tree-sitter tree into estree and types every expression
// it builds. Scope is flat: one binding table for the whole unit, where the
// most recent declaration of a name wins. Nodes are visited in document order,
// so a reference sees the declarations that precede it.
type converter struct {
	src   []byte
	types *typesys.Annotations
	scope map[string]typesys.Type
}

func newConverter(src []byte) *converter {
	return &converter{
		src:   src,
		types: typesys.NewAnnotations(),
		scope: make(map[string]typesys.Type),
	}
}

// Type-only constructs carry no runtime values.
var skipped = map[string]bool{
	"comment":                true,
	"hash_bang_line":         true,
	"type_annotation":        true,
	"type_alias_declaration": true,
	"interface_declaration":  true,
	"type_arguments":         true,
	"type_parameters":        true,
	"ambient_declaration":    true,
	"accessibility_modifier": true,
}

func (c *converter) text(n *sitter.Node) string { return NodeContent(n, c.src) }

func (c *converter) typeOf(n estree.Node) typesys.Type {
	if t, ok := c.types.TypeOf(n); ok {
		return t
	}
	return typesys.Any
}

func (c *converter) program(root *sitter.Node) *estree.Program {
	return estree.At(&estree.Program{Body: c.children(root)}, spanOf(root))
}

func (c *converter) children(n *sitter.Node) []estree.Node {
	var out []estree.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := c.node(n.NamedChild(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func (c *converter) node(n *sitter.Node) estree.Node {
	if n == nil || n.IsNull() || skipped[n.Type()] {
		return nil
	}

	switch n.Type() {
	case "expression_statement":
		return c.generic(n, "ExpressionStatement")
	case "lexical_declaration", "variable_declaration":
		return c.generic(n, "VariableDeclaration")
	case "variable_declarator":
		return c.declarator(n)
	case "import_statement":
		return c.importDecl(n)
	case "assignment_expression":
		return c.assignment(n)
	}
	if isFunctionNode(n) {
		return c.function(n, false)
	}
	if expr := c.expr(n); expr != nil {
		return expr
	}
	return c.generic(n, n.Type())
}

// expr converts the expression forms the rules inspect. It returns nil for
// anything else.
func (c *converter) expr(n *sitter.Node) estree.Node {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier", "this", "super":
		return c.ref(n)
	case "property_identifier", "private_property_identifier":
		return c.annotate(estree.At(&estree.Identifier{Name: c.text(n)}, spanOf(n)), typesys.Any)
	case "string":
		raw := c.text(n)
		value := unquote(raw)
		return c.annotate(estree.At(&estree.Literal{Value: value, Raw: raw}, spanOf(n)), &typesys.Literal{Value: value})
	case "number":
		raw := c.text(n)
		lit := estree.At(&estree.Literal{Raw: raw}, spanOf(n))
		if f, ok := parseNumber(raw); ok {
			lit.Value = f
			return c.annotate(lit, &typesys.Literal{Value: f})
		}
		return c.annotate(lit, numberType)
	case "true", "false":
		value := n.Type() == "true"
		return c.annotate(estree.At(&estree.Literal{Value: value, Raw: c.text(n)}, spanOf(n)), &typesys.Literal{Value: value})
	case "null", "undefined", "regex":
		return c.annotate(estree.At(&estree.Literal{Raw: c.text(n)}, spanOf(n)), typesys.Any)
	case "template_string":
		return c.template(n)
	case "binary_expression":
		return c.binary(n)
	case "member_expression", "subscript_expression":
		return c.member(n)
	case "call_expression":
		return c.call(n, false)
	case "new_expression":
		return c.call(n, true)
	case "object":
		return c.object(n)
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
		return c.node(n.NamedChild(0))
	case "type_assertion":
		return c.node(n.NamedChild(int(n.NamedChildCount()) - 1))
	case "await_expression":
		inner := c.node(n.NamedChild(0))
		g := estree.At(&estree.Generic{Type: "AwaitExpression", Items: nonNil(inner)}, spanOf(n))
		return c.annotate(g, c.typeOf(inner))
	}
	return nil
}

func (c *converter) annotate(n estree.Node, t typesys.Type) estree.Node {
	c.types.Set(n, t)
	return n
}

func (c *converter) generic(n *sitter.Node, kind string) estree.Node {
	return c.annotate(estree.At(&estree.Generic{Type: kind, Items: c.children(n)}, spanOf(n)), typesys.Any)
}

func (c *converter) ref(n *sitter.Node) estree.Node {
	name := c.text(n)
	return c.annotate(estree.At(&estree.Identifier{Name: name}, spanOf(n)), c.lookup(name))
}

func (c *converter) lookup(name string) typesys.Type {
	if t, ok := c.scope[name]; ok {
		return t
	}
	if name == "require" {
		return nodeRequireType
	}
	return typesys.Any
}

// bind introduces the names of a binding pattern with type t.
func (c *converter) bind(n *sitter.Node, t typesys.Type) estree.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		name := c.text(n)
		c.scope[name] = t
		return c.annotate(estree.At(&estree.Identifier{Name: name}, spanOf(n)), t)

	case "object_pattern":
		var items []estree.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			entry := n.NamedChild(i)
			switch entry.Type() {
			case "shorthand_property_identifier_pattern":
				items = append(items, c.bind(entry, memberType(t, c.text(entry))))
			case "pair_pattern":
				key := entry.ChildByFieldName("key")
				items = append(items, c.bind(entry.ChildByFieldName("value"), memberType(t, propertyKeyName(key, c.src))))
			case "object_assignment_pattern":
				left := entry.ChildByFieldName("left")
				items = append(items, c.bind(left, memberType(t, c.text(left))))
				items = append(items, c.node(entry.ChildByFieldName("right")))
			default:
				items = append(items, c.bind(entry, typesys.Any))
			}
		}
		return c.annotate(estree.At(&estree.Generic{Type: "ObjectPattern", Items: nonNil(items...)}, spanOf(n)), t)

	case "array_pattern":
		var items []estree.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			items = append(items, c.bind(n.NamedChild(i), typesys.Any))
		}
		return c.annotate(estree.At(&estree.Generic{Type: "ArrayPattern", Items: nonNil(items...)}, spanOf(n)), t)

	case "assignment_pattern":
		def := c.node(n.ChildByFieldName("right"))
		left := c.bind(n.ChildByFieldName("left"), t)
		return c.annotate(estree.At(&estree.Generic{Type: "AssignmentPattern", Items: nonNil(left, def)}, spanOf(n)), t)

	case "rest_pattern":
		return c.bind(n.NamedChild(0), typesys.Any)
	}
	return c.node(n)
}

func (c *converter) declarator(n *sitter.Node) estree.Node {
	var init estree.Node
	var initType typesys.Type = typesys.Any
	if value := n.ChildByFieldName("value"); value != nil {
		init = c.node(value)
		initType = c.typeOf(init)
	}
	id := c.bind(n.ChildByFieldName("name"), initType)
	return estree.At(&estree.VariableDeclarator{ID: id, Init: init}, spanOf(n))
}

func (c *converter) assignment(n *sitter.Node) estree.Node {
	right := c.node(n.ChildByFieldName("right"))
	t := c.typeOf(right)

	var left estree.Node
	if l := n.ChildByFieldName("left"); l != nil && l.Type() == "identifier" {
		left = c.bind(l, t)
	} else {
		left = c.node(l)
	}
	g := estree.At(&estree.Generic{Type: "AssignmentExpression", Items: nonNil(left, right)}, spanOf(n))
	return c.annotate(g, t)
}

// function converts every function form. With requestHandler set the first
// parameter is typed as the express Request.
func (c *converter) function(n *sitter.Node, requestHandler bool) estree.Node {
	fn := &estree.FunctionExpression{Arrow: n.Type() == "arrow_function"}

	if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
		if id, ok := c.bind(name, typesys.Any).(*estree.Identifier); ok {
			fn.ID = id
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			fn.Params = append(fn.Params, c.param(params.NamedChild(i), requestHandler && i == 0))
		}
	} else if param := n.ChildByFieldName("parameter"); param != nil {
		fn.Params = append(fn.Params, c.param(param, requestHandler))
	}
	fn.Params = nonNil(fn.Params...)

	fn.Body = c.node(n.ChildByFieldName("body"))
	return c.annotate(estree.At(fn, spanOf(n)), typesys.Any)
}

func (c *converter) param(n *sitter.Node, request bool) estree.Node {
	var t typesys.Type = typesys.Any
	if request {
		t = requestType
	}
	switch n.Type() {
	case "required_parameter", "optional_parameter":
		if ann := n.ChildByFieldName("type"); ann != nil && isRequestAnnotation(c.text(ann)) {
			t = requestType
		}
		if pattern := n.ChildByFieldName("pattern"); pattern != nil {
			return c.bind(pattern, t)
		}
		return nil
	case "comment":
		return nil
	}
	return c.bind(n, t)
}

func (c *converter) importDecl(n *sitter.Node) estree.Node {
	source := n.ChildByFieldName("source")
	module := typesys.Type(typesys.Any)
	if source != nil {
		module = moduleType(unquote(c.text(source)))
	}

	var items []estree.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "identifier":
				items = append(items, c.bind(part, module))
			case "namespace_import":
				items = append(items, c.bind(part.NamedChild(0), module))
			case "named_imports":
				for k := 0; k < int(part.NamedChildCount()); k++ {
					spec := part.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					items = append(items, c.bind(local, memberType(module, c.text(name))))
				}
			}
		}
	}
	items = append(items, c.node(source))
	return c.annotate(estree.At(&estree.Generic{Type: "ImportDeclaration", Items: nonNil(items...)}, spanOf(n)), typesys.Any)
}

func (c *converter) template(n *sitter.Node) estree.Node {
	tmpl := &estree.TemplateLiteral{}
	start, end := int(n.StartByte()), int(n.EndByte())
	cursor := start + 1

	for i := 0; i < int(n.NamedChildCount()); i++ {
		sub := n.NamedChild(i)
		if sub.Type() != "template_substitution" {
			continue
		}
		tmpl.Quasis = append(tmpl.Quasis, c.slice(cursor, int(sub.StartByte())))
		if expr := c.node(sub.NamedChild(0)); expr != nil {
			tmpl.Expressions = append(tmpl.Expressions, expr)
		}
		cursor = int(sub.EndByte())
	}
	tmpl.Quasis = append(tmpl.Quasis, c.slice(cursor, end-1))

	var t typesys.Type = stringType
	if len(tmpl.Expressions) == 0 {
		var cooked string
		for _, q := range tmpl.Quasis {
			cooked += q
		}
		t = &typesys.Literal{Value: unquote("`" + cooked + "`")}
	}
	return c.annotate(estree.At(tmpl, spanOf(n)), t)
}

func (c *converter) slice(from, to int) string {
	if from < 0 || to > len(c.src) || from >= to {
		return ""
	}
	return string(c.src[from:to])
}

func (c *converter) binary(n *sitter.Node) estree.Node {
	b := &estree.BinaryExpression{
		Operator: c.text(n.ChildByFieldName("operator")),
		Left:     c.node(n.ChildByFieldName("left")),
		Right:    c.node(n.ChildByFieldName("right")),
	}
	return c.annotate(estree.At(b, spanOf(n)), binaryType(b.Operator, c.typeOf(b.Left), c.typeOf(b.Right)))
}

func (c *converter) member(n *sitter.Node) estree.Node {
	m := &estree.MemberExpression{Object: c.node(n.ChildByFieldName("object"))}

	var name string
	if n.Type() == "subscript_expression" {
		index := n.ChildByFieldName("index")
		m.Property = c.node(index)
		m.Computed = true
		if index != nil && index.Type() == "string" {
			name = unquote(c.text(index))
		}
	} else if prop := n.ChildByFieldName("property"); prop != nil {
		name = c.text(prop)
		m.Property = c.annotate(estree.At(&estree.Identifier{Name: name}, spanOf(prop)), typesys.Any)
	}

	t := memberType(c.typeOf(m.Object), name)
	if path := flattenPropertyAccess(n, c.src); len(path) == 3 && path[0] == "process" && path[1] == "env" {
		t = stringType
	}
	return c.annotate(estree.At(m, spanOf(n)), t)
}

func (c *converter) call(n *sitter.Node, isNew bool) estree.Node {
	field := "function"
	if isNew {
		field = "constructor"
	}
	call := &estree.CallExpression{Callee: c.node(n.ChildByFieldName(field)), New: isNew}
	handler := !isNew && isRouteRegistration(call.Callee, c.typeOf)

	if args := n.ChildByFieldName("arguments"); args != nil {
		if args.Type() == "template_string" {
			call.Arguments = nonNil(c.node(args))
		} else {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				arg := args.NamedChild(i)
				if handler && isFunctionNode(arg) {
					call.Arguments = append(call.Arguments, c.function(arg, true))
					continue
				}
				if conv := c.node(arg); conv != nil {
					call.Arguments = append(call.Arguments, conv)
				}
			}
		}
	}
	return c.annotate(estree.At(call, spanOf(n)), c.callResult(call))
}

func (c *converter) object(n *sitter.Node) estree.Node {
	obj := &estree.ObjectExpression{}
	shape := &typesys.Object{Properties: map[string]typesys.Type{}}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		entry := n.NamedChild(i)
		switch entry.Type() {
		case "pair":
			keyNode := entry.ChildByFieldName("key")
			prop := &estree.Property{
				Key:      c.propertyKey(keyNode),
				Value:    c.node(entry.ChildByFieldName("value")),
				Computed: keyNode != nil && keyNode.Type() == "computed_property_name",
			}
			if name := propertyKeyName(keyNode, c.src); name != "" {
				shape.Properties[name] = c.typeOf(prop.Value)
			}
			obj.Properties = append(obj.Properties, estree.At(prop, spanOf(entry)))

		case "shorthand_property_identifier":
			name := c.text(entry)
			value := c.ref(entry)
			key := estree.At(&estree.Identifier{Name: name}, spanOf(entry))
			shape.Properties[name] = c.typeOf(value)
			obj.Properties = append(obj.Properties, estree.At(&estree.Property{Key: key, Value: value, Shorthand: true}, spanOf(entry)))

		case "method_definition":
			keyNode := entry.ChildByFieldName("name")
			prop := &estree.Property{Key: c.propertyKey(keyNode), Value: c.function(entry, false)}
			if name := propertyKeyName(keyNode, c.src); name != "" {
				shape.Properties[name] = typesys.Any
			}
			obj.Properties = append(obj.Properties, estree.At(prop, spanOf(entry)))

		default:
			if conv := c.node(entry); conv != nil {
				obj.Properties = append(obj.Properties, conv)
			}
		}
	}
	return c.annotate(estree.At(obj, spanOf(n)), shape)
}

func (c *converter) propertyKey(n *sitter.Node) estree.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "computed_property_name" {
		return c.node(n.NamedChild(0))
	}
	if n.Type() == "property_identifier" {
		return estree.At(&estree.Identifier{Name: c.text(n)}, spanOf(n))
	}
	return c.node(n)
}

// propertyKeyName returns the static name of an object key, or "" when the
// key is computed.
func propertyKeyName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "property_identifier", "identifier", "number", "private_property_identifier":
		return NodeContent(n, src)
	case "string":
		return unquote(NodeContent(n, src))
	}
	return ""
}

func nonNil(nodes ...estree.Node) []estree.Node {
	out := make([]estree.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
