// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "typesentry version "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "risky JWT, ORM and dynamic require patterns")
	assert.Contains(t, out, "scan")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "typesentry "+Version)
}

func TestRulesCmd(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "RULE")
	for _, want := range []string{"jwt-hardcode", "jwt-exposure", "orm-expose", "require-request", "require-request-var", "critical"} {
		assert.Contains(t, out, want)
	}
}

func TestRootCmd_ConfigFile(t *testing.T) {
	t.Run("explicit file is read", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "server.js"), requireSource)
		out := filepath.Join(t.TempDir(), "report.json")
		cfgPath := filepath.Join(t.TempDir(), "typesentry.yaml")
		writeFile(t, cfgPath, "report:\n  format: json\n  output: "+out+"\n")

		_, err := execute(t, "--config", cfgPath, "scan", root)
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"check_id": "require-from-request"`)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "scan", t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}
