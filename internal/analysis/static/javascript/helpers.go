// Filename: javascript/helpers.go
package javascript

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// NodeContent extracts the string content of a node from the source byte slice.
func NodeContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}

// spanOf converts tree-sitter coordinates. Rows are 0-indexed in tree-sitter.
func spanOf(node *sitter.Node) estree.Span {
	start, end := node.StartPoint(), node.EndPoint()
	return estree.Span{
		Start:     estree.Position{Line: int(start.Row) + 1, Column: int(start.Column)},
		End:       estree.Position{Line: int(end.Row) + 1, Column: int(end.Column)},
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// flattenPropertyAccess attempts to flatten a chain of property accesses (member_expression and subscript_expression)
// into a list of strings (e.g., process.env.SECRET or process['env'] -> ["process", "env", "SECRET"] or ["process", "env"]).
func flattenPropertyAccess(node *sitter.Node, source []byte) []string {
	var path []string
	current := node

	for {
		if current == nil {
			return nil
		}

		switch current.Type() {
		case "identifier":
			return append([]string{NodeContent(current, source)}, path...)
		case "this":
			return append([]string{"this"}, path...)

		case "member_expression":
			object := current.ChildByFieldName("object")
			property := current.ChildByFieldName("property")
			if property == nil || object == nil {
				return nil
			}
			if property.Type() != "identifier" && property.Type() != "property_identifier" {
				return nil
			}
			path = append([]string{NodeContent(property, source)}, path...)
			current = object

		case "subscript_expression":
			object := current.ChildByFieldName("object")
			index := current.ChildByFieldName("index")
			if index == nil || object == nil {
				return nil
			}
			// Only static string keys flatten; obj[0] and obj[v] are computed.
			if index.Type() != "string" {
				return nil
			}
			path = append([]string{unquote(NodeContent(index, source))}, path...)
			current = object

		case "parenthesized_expression":
			current = current.NamedChild(0)

		default:
			return nil
		}
	}
}

// unquote returns the cooked value of a single, double or backtick quoted
// literal. Escapes that strconv cannot decode are left as written.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	if !strings.ContainsRune(inner, '\\') {
		return inner
	}

	var b strings.Builder
	b.Grow(len(inner) + 2)
	b.WriteByte('"')
	for i := 0; i < len(inner); i++ {
		switch ch := inner[i]; {
		case ch == '\\' && i+1 < len(inner) && (inner[i+1] == '\'' || inner[i+1] == '`'):
			b.WriteByte(inner[i+1])
			i++
		case ch == '\\' && i+1 < len(inner):
			b.WriteByte(ch)
			b.WriteByte(inner[i+1])
			i++
		case ch == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')

	if s, err := strconv.Unquote(b.String()); err == nil {
		return s
	}
	return inner
}

// parseNumber handles decimal, hex, octal and binary forms with separators.
func parseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, "_", "")
	s = strings.TrimSuffix(s, "n")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i), true
	}
	return 0, false
}

var functionKinds = map[string]bool{
	"function":                       true,
	"function_expression":            true,
	"function_declaration":           true,
	"generator_function":             true,
	"generator_function_declaration": true,
	"arrow_function":                 true,
	"method_definition":              true,
}

func isFunctionNode(node *sitter.Node) bool {
	return node != nil && functionKinds[node.Type()]
}

// isRequestAnnotation matches `: Request`, `: express.Request` and
// `: Request<Params>` parameter annotations.
func isRequestAnnotation(text string) bool {
	t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), ":"))
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t) == "Request"
}
