// internal/reporting/reporter_test.go
package reporting_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/engine"
	"github.com/xkilldash9x/typesentry/internal/reporting"
)

const testToolVersion = "v1.0.0-test"

// TestNew_Success_Stdout tests creating reporters writing to stdout.
func TestNew_Success_Stdout(t *testing.T) {
	for _, format := range reporting.Formats() {
		t.Run(format, func(t *testing.T) {
			// Test implicit stdout (empty path); Close must not close os.Stdout.
			r, err := reporting.New(format, "", testToolVersion, "run")
			require.NoError(t, err)
			assert.NotNil(t, r)
			assert.NoError(t, r.Close())

			r, err = reporting.New(format, "stdout", testToolVersion, "run")
			require.NoError(t, err)
			assert.NoError(t, r.Close())
		})
	}
}

// TestNew_Success_File tests creating each reporter writing to a file.
func TestNew_Success_File(t *testing.T) {
	for _, format := range reporting.Formats() {
		t.Run(format, func(t *testing.T) {
			tmpFile := filepath.Join(t.TempDir(), "output."+format)

			r, err := reporting.New(format, tmpFile, testToolVersion, "run")
			require.NoError(t, err)

			_, err = os.Stat(tmpFile)
			assert.NoError(t, err, "Output file should have been created")

			require.NoError(t, r.Write(unit("a.js", finding(core.CheckJwtDecode, "a.js", 2, 0, nil))))
			require.NoError(t, r.Close())

			data, err := os.ReadFile(tmpFile)
			require.NoError(t, err)
			assert.Contains(t, string(data), "a.js")
		})
	}
}

// TestNew_Failure_UnsupportedFormat ensures no file is created for unknown formats.
func TestNew_Failure_UnsupportedFormat(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "output.xml")
	r, err := reporting.New("xml", tmpFile, testToolVersion, "run")
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format: xml")

	_, statErr := os.Stat(tmpFile)
	assert.True(t, os.IsNotExist(statErr), "the output file is only created for a valid format")
}

// TestNew_Failure_FileCreation tests errors during output file creation.
func TestNew_Failure_FileCreation(t *testing.T) {
	// A directory cannot be opened as an output file.
	r, err := reporting.New(reporting.FormatSARIF, t.TempDir(), testToolVersion, "run")
	assert.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestJSONReporter(t *testing.T) {
	writer := newMockWriter()
	r := reporting.NewJSONReporter(writer, "run-7")

	require.NoError(t, r.Write(unit("a.js",
		finding(core.CheckOrmExpose, "a.js", 4, 2, map[string]any{"type": "Document"}),
	)))
	require.NoError(t, r.Write(&engine.UnitResult{Path: "b.js", Err: errors.New("unreadable")}))
	require.NoError(t, r.Close())
	assert.True(t, writer.Closed)

	var got []schemas.Finding
	require.NoError(t, json.Unmarshal(writer.Buffer.Bytes(), &got))
	require.Len(t, got, 1)
	f := got[0]
	assert.Equal(t, "run-7", f.RunID)
	assert.Equal(t, "orm-expose", f.CheckID)
	assert.Equal(t, schemas.SeverityHigh, f.Severity)
	assert.Equal(t, 4, f.Line)
	assert.Equal(t, 2, f.Column)
	assert.Equal(t, []string{"CWE-200"}, f.CWE)
	assert.Equal(t, "Document", f.Extra["type"])
	assert.False(t, f.ObservedAt.IsZero())
}

func TestJSONReporter_EmptyIsArray(t *testing.T) {
	writer := newMockWriter()
	require.NoError(t, reporting.NewJSONReporter(writer, "run").Close())
	assert.Equal(t, "[]", strings.TrimSpace(writer.Buffer.String()))
}

func TestTextReporter(t *testing.T) {
	writer := newMockWriter()
	r := reporting.NewTextReporter(writer)

	f := finding(core.CheckJwtPayloadKey, "src/a.js", 3, 4, map[string]any{"keys": []string{"id", "role"}})
	require.NoError(t, r.Write(unit("src/a.js", f)))
	require.NoError(t, r.Write(&engine.UnitResult{Path: "src/b.js", Err: errors.New("boom")}))
	require.NoError(t, r.Close())

	want := strings.Join([]string{
		"src/a.js:3:4 [info] jwt-payload-key: JWT Payload Keys (keys=[id role])",
		"    jwt.sign(user, 'secret')",
		"src/b.js: skipped: boom",
		"1 finding(s), 1 unit(s) skipped",
		"",
	}, "\n")
	assert.Equal(t, want, writer.Buffer.String())
	assert.True(t, writer.Closed)
}

func TestTextReporter_CloseErrors(t *testing.T) {
	writer := &MockWriteCloser{Buffer: newMockWriter().Buffer, FailWrite: true}
	err := reporting.NewTextReporter(writer).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write text report")

	writer = &MockWriteCloser{Buffer: newMockWriter().Buffer, FailClose: true}
	err = reporting.NewTextReporter(writer).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close output writer")
}
