// Package esjson reads ESTree documents whose nodes carry an `inferredType`
// annotation, the format emitted by type-checker dumps of JavaScript and
// TypeScript programs.
package esjson

import (
	"fmt"
	"sort"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// AnnotationKey is the node field holding the serialized type.
const AnnotationKey = "inferredType"

// Document is a decoded unit: the tree and the types attached to its nodes.
type Document struct {
	Program *estree.Program
	Types   *typesys.Annotations
	// SkippedAnnotations counts inferredType payloads that failed to decode.
	// The affected nodes stay untyped.
	SkippedAnnotations int
}

// Decode parses an annotated ESTree document. The root must be a Program.
func Decode(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode ESTree document: %w", err)
	}
	if t, _ := raw["type"].(string); t != "Program" {
		return nil, fmt.Errorf("root node must be a Program, got %q", t)
	}

	d := &decoder{ann: typesys.NewAnnotations()}
	prog, ok := d.node(raw).(*estree.Program)
	if !ok {
		return nil, fmt.Errorf("root node did not decode to a Program")
	}
	return &Document{Program: prog, Types: d.ann, SkippedAnnotations: d.skipped}, nil
}

type decoder struct {
	ann     *typesys.Annotations
	skipped int
}

func (d *decoder) node(v interface{}) estree.Node {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	kind, _ := m["type"].(string)
	if kind == "" {
		return nil
	}
	span := spanOf(m)

	var n estree.Node
	switch kind {
	case "Program":
		n = estree.At(&estree.Program{Body: d.list(m["body"])}, span)
	case "Identifier":
		name, _ := m["name"].(string)
		n = estree.At(&estree.Identifier{Name: name}, span)
	case "Literal":
		raw, _ := m["raw"].(string)
		var value any
		switch lv := m["value"].(type) {
		case string, float64, bool:
			value = lv
		}
		n = estree.At(&estree.Literal{Value: value, Raw: raw}, span)
	case "TemplateLiteral":
		n = estree.At(&estree.TemplateLiteral{Quasis: quasis(m["quasis"]), Expressions: d.list(m["expressions"])}, span)
	case "BinaryExpression", "LogicalExpression":
		op, _ := m["operator"].(string)
		n = estree.At(&estree.BinaryExpression{Operator: op, Left: d.node(m["left"]), Right: d.node(m["right"])}, span)
	case "MemberExpression":
		computed, _ := m["computed"].(bool)
		n = estree.At(&estree.MemberExpression{Object: d.node(m["object"]), Property: d.node(m["property"]), Computed: computed}, span)
	case "CallExpression", "NewExpression":
		n = estree.At(&estree.CallExpression{Callee: d.node(m["callee"]), Arguments: d.list(m["arguments"]), New: kind == "NewExpression"}, span)
	case "ObjectExpression":
		n = estree.At(&estree.ObjectExpression{Properties: d.list(m["properties"])}, span)
	case "Property":
		computed, _ := m["computed"].(bool)
		shorthand, _ := m["shorthand"].(bool)
		n = estree.At(&estree.Property{Key: d.node(m["key"]), Value: d.node(m["value"]), Computed: computed, Shorthand: shorthand}, span)
	case "FunctionExpression", "FunctionDeclaration", "ArrowFunctionExpression":
		fn := &estree.FunctionExpression{Params: d.list(m["params"]), Body: d.node(m["body"]), Arrow: kind == "ArrowFunctionExpression"}
		if id, ok := d.node(m["id"]).(*estree.Identifier); ok {
			fn.ID = id
		}
		n = estree.At(fn, span)
	case "VariableDeclarator":
		n = estree.At(&estree.VariableDeclarator{ID: d.node(m["id"]), Init: d.node(m["init"])}, span)
	default:
		n = estree.At(&estree.Generic{Type: kind, Items: d.generic(kind, m)}, span)
	}

	if rawType, ok := m[AnnotationKey]; ok && rawType != nil {
		t, err := typesys.FromValue(rawType)
		if err != nil {
			d.skipped++
		} else {
			d.ann.Set(n, t)
		}
	}
	return n
}

func (d *decoder) list(v interface{}) []estree.Node {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]estree.Node, 0, len(items))
	for _, item := range items {
		if n := d.node(item); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// fieldOrder lists the child fields of common constructs in source order.
// It decides the order when a dump carries no positions at all.
var fieldOrder = map[string][]string{
	"ExpressionStatement":      {"expression"},
	"VariableDeclaration":      {"declarations"},
	"BlockStatement":           {"body"},
	"ReturnStatement":          {"argument"},
	"IfStatement":              {"test", "consequent", "alternate"},
	"ConditionalExpression":    {"test", "consequent", "alternate"},
	"ForStatement":             {"init", "test", "update", "body"},
	"ForInStatement":           {"left", "right", "body"},
	"ForOfStatement":           {"left", "right", "body"},
	"WhileStatement":           {"test", "body"},
	"DoWhileStatement":         {"body", "test"},
	"TryStatement":             {"block", "handler", "finalizer"},
	"CatchClause":              {"param", "body"},
	"SwitchStatement":          {"discriminant", "cases"},
	"SwitchCase":               {"test", "consequent"},
	"AssignmentExpression":     {"left", "right"},
	"AssignmentPattern":        {"left", "right"},
	"ArrayExpression":          {"elements"},
	"AwaitExpression":          {"argument"},
	"UnaryExpression":          {"argument"},
	"SpreadElement":            {"argument"},
	"SequenceExpression":       {"expressions"},
	"ExportNamedDeclaration":   {"declaration", "specifiers", "source"},
	"ExportDefaultDeclaration": {"declaration"},
	"ClassDeclaration":         {"id", "superClass", "body"},
	"ClassBody":                {"body"},
	"MethodDefinition":         {"key", "value"},
}

// generic collects every child node of an uninspected construct. Known fields
// come first in their source order, the rest by key. Children are then sorted
// by byte offset, or by line and column when the dump has only `loc`.
func (d *decoder) generic(kind string, m map[string]interface{}) []estree.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "type", "loc", "range", "start", "end", AnnotationKey:
			continue
		}
		keys = append(keys, k)
	}
	rank := make(map[string]int, len(fieldOrder[kind]))
	for i, k := range fieldOrder[kind] {
		rank[k] = i + 1
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank[keys[i]], rank[keys[j]]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != 0 || rj != 0:
			return ri != 0
		}
		return keys[i] < keys[j]
	})

	var out []estree.Node
	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]interface{}:
			if n := d.node(v); n != nil {
				out = append(out, n)
			}
		case []interface{}:
			out = append(out, d.list(v)...)
		}
	}
	sortBySource(out)
	return out
}

// sortBySource orders nodes by the most precise position every node carries.
func sortBySource(nodes []estree.Node) {
	var hasBytes, hasLines bool
	for _, n := range nodes {
		sp := n.Span()
		hasBytes = hasBytes || sp.StartByte != 0 || sp.EndByte != 0
		hasLines = hasLines || sp.Start.Line != 0
	}
	switch {
	case hasBytes:
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].Span().StartByte < nodes[j].Span().StartByte
		})
	case hasLines:
		sort.SliceStable(nodes, func(i, j int) bool {
			a, b := nodes[i].Span().Start, nodes[j].Span().Start
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Column < b.Column
		})
	}
}

func quasis(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		q, _ := item.(map[string]interface{})
		val, _ := q["value"].(map[string]interface{})
		cooked, _ := val["cooked"].(string)
		out = append(out, cooked)
	}
	return out
}

func spanOf(m map[string]interface{}) estree.Span {
	var s estree.Span
	if loc, ok := m["loc"].(map[string]interface{}); ok {
		s.Start = position(loc["start"])
		s.End = position(loc["end"])
	}
	if r, ok := m["range"].([]interface{}); ok && len(r) == 2 {
		s.StartByte = toInt(r[0])
		s.EndByte = toInt(r[1])
	} else {
		s.StartByte = toInt(m["start"])
		s.EndByte = toInt(m["end"])
	}
	return s
}

func position(v interface{}) estree.Position {
	p, _ := v.(map[string]interface{})
	return estree.Position{Line: toInt(p["line"]), Column: toInt(p["column"])}
}

func toInt(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
