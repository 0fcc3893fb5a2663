// Filename: javascript/parser.go
package javascript

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Dialect selects the tree-sitter grammar.
type Dialect int

const (
	DialectJavaScript Dialect = iota
	DialectTypeScript
	DialectTSX
)

func (d Dialect) String() string {
	switch d {
	case DialectTypeScript:
		return "typescript"
	case DialectTSX:
		return "tsx"
	default:
		return "javascript"
	}
}

func (d Dialect) language() *sitter.Language {
	switch d {
	case DialectTypeScript:
		return typescript.GetLanguage()
	case DialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

var dialects = map[string]Dialect{
	".js":  DialectJavaScript,
	".jsx": DialectJavaScript,
	".mjs": DialectJavaScript,
	".cjs": DialectJavaScript,
	".ts":  DialectTypeScript,
	".mts": DialectTypeScript,
	".cts": DialectTypeScript,
	".tsx": DialectTSX,
}

// DialectFor picks the grammar for path by extension.
func DialectFor(path string) (Dialect, bool) {
	d, ok := dialects[strings.ToLower(filepath.Ext(path))]
	return d, ok
}

// Extensions lists the file extensions the parser accepts, sorted.
func Extensions() []string {
	out := make([]string, 0, len(dialects))
	for ext := range dialects {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Parsed is one converted unit: the tree and the types inferred for its nodes.
type Parsed struct {
	Program *estree.Program
	Types   *typesys.Annotations
	// SyntaxErrors is set when tree-sitter recovered from malformed input.
	// The tree is still complete enough to analyze.
	SyntaxErrors bool
}

// Parser converts JavaScript and TypeScript source into the estree model.
// It is safe for concurrent use; each call gets its own tree-sitter parser.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a Parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("js_parser")}
}

// Parse converts source, choosing the dialect from filename. Unknown
// extensions are parsed as JavaScript.
func (p *Parser) Parse(ctx context.Context, filename string, source []byte) (*Parsed, error) {
	dialect, ok := DialectFor(filename)
	if !ok {
		dialect = DialectJavaScript
	}
	return p.ParseDialect(ctx, filename, source, dialect)
}

// ParseDialect converts source with an explicit grammar.
func (p *Parser) ParseDialect(ctx context.Context, filename string, source []byte, dialect Dialect) (*Parsed, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(dialect.language())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s: %w", filename, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	parsed := &Parsed{SyntaxErrors: root.HasError()}
	if parsed.SyntaxErrors {
		p.logger.Warn("Syntax errors detected in file, analysis might be incomplete",
			zap.String("file", filename),
			zap.Stringer("dialect", dialect))
	}

	c := newConverter(source)
	parsed.Program = c.program(root)
	parsed.Types = c.types

	p.logger.Debug("Parsed unit",
		zap.String("file", filename),
		zap.Int("typed_nodes", c.types.Len()),
		zap.Int("bindings", len(c.scope)))
	return parsed, nil
}
