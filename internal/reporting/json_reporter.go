// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/engine"
	"github.com/xkilldash9x/typesentry/internal/observability"
)

// JSONReporter buffers finding records and writes them as one JSON array on
// Close. It is thread safe.
type JSONReporter struct {
	writer   io.WriteCloser
	logger   *zap.Logger
	runID    string
	mu       sync.Mutex
	findings []schemas.Finding
}

// NewJSONReporter creates a reporter that writes a JSON array of findings.
func NewJSONReporter(writer io.WriteCloser, runID string) *JSONReporter {
	return &JSONReporter{
		writer:   writer,
		logger:   observability.GetLogger().Named("json_reporter"),
		runID:    runID,
		findings: []schemas.Finding{},
	}
}

func (r *JSONReporter) Write(result *engine.UnitResult) error {
	recs := records(result, r.runID, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, recs...)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(r.findings)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode findings to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Wrote JSON report", zap.Int("findings", len(r.findings)))
	return nil
}
