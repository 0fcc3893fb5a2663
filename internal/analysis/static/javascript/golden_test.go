package javascript_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/tools/txtar"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/javascript"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/rules"
	"github.com/xkilldash9x/typesentry/internal/engine"
)

// Each testdata archive holds one source file plus a "findings" file listing
// the expected "<line> <check_id>" pairs in emission order.
func TestGoldenFindings(t *testing.T) {
	archives, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, archives)

	for _, path := range archives {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)

			var source txtar.File
			var want []string
			for _, f := range ar.Files {
				if f.Name == "findings" {
					for _, line := range strings.Split(string(f.Data), "\n") {
						if line = strings.TrimSpace(line); line != "" {
							want = append(want, line)
						}
					}
					continue
				}
				source = f
			}
			require.NotEmpty(t, source.Name, "archive has no source file")

			logger := zaptest.NewLogger(t)
			parsed, err := javascript.NewParser(logger).Parse(context.Background(), source.Name, source.Data)
			require.NoError(t, err)
			require.False(t, parsed.SyntaxErrors)

			eng := engine.New(rules.Default(), nil, engine.Options{}, logger)
			result := eng.AnalyzeUnit(&engine.Unit{
				Path:    source.Name,
				Source:  source.Data,
				Program: parsed.Program,
				Oracle:  parsed.Types,
			})
			require.Zero(t, result.RecoveredPanics)

			var got []string
			for _, f := range result.Findings {
				got = append(got, fmt.Sprintf("%d %s", f.Location.Line, f.CheckID))
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("findings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
