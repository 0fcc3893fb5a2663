// File: cmd/collect.go
package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/esjson"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/javascript"
	"github.com/xkilldash9x/typesentry/internal/engine"
)

// estreeSuffix marks pre-typed ESTree dumps, which skip the source front end.
const estreeSuffix = ".estree.json"

// supported reports whether path is analyzable under the allowed extensions.
// An empty allow list accepts every extension the front end knows.
func supported(path string, allowed []string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, estreeSuffix) {
		return len(allowed) == 0 || slices.Contains(allowed, estreeSuffix)
	}
	if _, ok := javascript.DialectFor(path); !ok {
		return false
	}
	return len(allowed) == 0 || slices.Contains(allowed, strings.ToLower(filepath.Ext(path)))
}

// collectFiles expands the scan arguments into a sorted, de-duplicated file
// list. Directories are walked; directories named in exclude are skipped.
// Explicit file arguments with an unsupported extension are logged and dropped.
func collectFiles(args, allowed, exclude []string, logger *zap.Logger) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot scan %s: %w", arg, err)
		}
		if !info.IsDir() {
			if supported(arg, allowed) {
				add(arg)
			} else {
				logger.Warn("Skipping file with unsupported extension", zap.String("file", arg))
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != arg && slices.Contains(exclude, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && supported(path, allowed) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// newLoader returns an engine.Loader that reads a file and produces a typed
// unit, either through the tree-sitter front end or from an ESTree dump.
func newLoader(parser *javascript.Parser, logger *zap.Logger) engine.Loader {
	return func(ctx context.Context, path string) (*engine.Unit, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if strings.HasSuffix(strings.ToLower(path), estreeSuffix) {
			doc, err := esjson.Decode(source)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
			if doc.SkippedAnnotations > 0 {
				logger.Warn("Some type annotations could not be decoded",
					zap.String("file", path),
					zap.Int("skipped", doc.SkippedAnnotations),
				)
			}
			return &engine.Unit{Path: path, Program: doc.Program, Oracle: doc.Types}, nil
		}

		parsed, err := parser.Parse(ctx, path, source)
		if err != nil {
			return nil, err
		}
		return &engine.Unit{
			Path:    path,
			Source:  source,
			Program: parsed.Program,
			Oracle:  parsed.Types,
		}, nil
	}
}
