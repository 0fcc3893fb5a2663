// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/engine"
)

// Supported output formats.
const (
	FormatSARIF = "sarif"
	FormatJSON  = "json"
	FormatText  = "text"
)

// Reporter defines the interface for writing scan results to an output.
type Reporter interface {
	// Write processes the result of one analyzed unit.
	Write(result *engine.UnitResult) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// Findings are stamped with runID.
func New(format, outputPath, toolVersion, runID string) (Reporter, error) {
	switch format {
	case FormatSARIF, FormatJSON, FormatText:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	// Each reporter takes ownership of the writer.
	switch format {
	case FormatSARIF:
		return NewSARIFReporter(writer, toolVersion, runID), nil
	case FormatJSON:
		return NewJSONReporter(writer, runID), nil
	default:
		return NewTextReporter(writer), nil
	}
}

// Formats lists the accepted format names.
func Formats() []string { return []string{FormatSARIF, FormatJSON, FormatText} }

// records converts the findings of one unit into their serialized form.
func records(result *engine.UnitResult, runID string, now time.Time) []schemas.Finding {
	out := make([]schemas.Finding, 0, len(result.Findings))
	for _, f := range result.Findings {
		out = append(out, f.Record(runID, now))
	}
	return out
}
