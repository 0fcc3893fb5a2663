// internal/reporting/text_reporter.go
package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/engine"
)

// TextReporter streams one line per finding as results arrive:
//
//	file:line:col [severity] check-id: name
//	    snippet
type TextReporter struct {
	writer   io.WriteCloser
	buf      *bufio.Writer
	mu       sync.Mutex
	findings int
	failed   int
}

// NewTextReporter creates a human-readable reporter.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer, buf: bufio.NewWriter(writer)}
}

func (r *TextReporter) Write(result *engine.UnitResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Err != nil {
		r.failed++
		_, err := fmt.Fprintf(r.buf, "%s: skipped: %v\n", result.Path, result.Err)
		return err
	}
	for _, f := range result.Findings {
		info := core.Lookup(f.CheckID)
		line := fmt.Sprintf("%s [%s] %s: %s", f.Location, info.Severity, f.CheckID, info.Name)
		if summary := extraSummary(f.Extra); summary != "" {
			line += " (" + summary + ")"
		}
		if _, err := fmt.Fprintln(r.buf, line); err != nil {
			return err
		}
		if f.Location.Snippet != "" && f.Location.Snippet != "N/A" {
			if _, err := fmt.Fprintf(r.buf, "    %s\n", f.Location.Snippet); err != nil {
				return err
			}
		}
		r.findings++
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := fmt.Fprintf(r.buf, "%d finding(s), %d unit(s) skipped\n", r.findings, r.failed)
	if flushErr := r.buf.Flush(); err == nil {
		err = flushErr
	}
	closeErr := r.writer.Close()
	if err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// extraSummary renders the payload keys most useful at a glance.
func extraSummary(extra map[string]any) string {
	var parts []string
	for _, key := range []string{"keys", "type", "alg", "weak", "verified"} {
		if v, ok := extra[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, ", ")
}
