package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// Location is the position and source line of a finding.
type Location struct {
	File    string
	Line    int
	Column  int
	Snippet string
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Finding is one detector hit. It is created once by the emitting rule and
// never modified afterwards.
type Finding struct {
	ID       string
	Rule     string
	CheckID  CheckID
	Node     estree.Node
	Location Location
	// Extra is the check-specific payload; nil when presence alone is the signal.
	Extra map[string]any
}

// NewFinding builds a finding for node, resolving its location against source.
func NewFinding(rule string, id CheckID, file string, source []byte, node estree.Node, extra map[string]any) Finding {
	var span estree.Span
	if node != nil {
		span = node.Span()
	}
	return Finding{
		ID:       uuid.NewString(),
		Rule:     rule,
		CheckID:  id,
		Node:     node,
		Location: Locate(file, span, source),
		Extra:    extra,
	}
}

// Severity is the cataloged severity of the finding.
func (f Finding) Severity() schemas.Severity {
	return Lookup(f.CheckID).Severity
}

// Record converts the finding into its serialized form.
func (f Finding) Record(runID string, observedAt time.Time) schemas.Finding {
	info := Lookup(f.CheckID)
	rec := schemas.Finding{
		ID:             f.ID,
		RunID:          runID,
		ObservedAt:     observedAt,
		File:           f.Location.File,
		Line:           f.Location.Line,
		Column:         f.Location.Column,
		Snippet:        f.Location.Snippet,
		Rule:           f.Rule,
		CheckID:        string(f.CheckID),
		Name:           info.Name,
		Severity:       info.Severity,
		Description:    info.Description,
		Extra:          f.Extra,
		Recommendation: info.Recommendation,
	}
	if info.CWE != "" {
		rec.CWE = []string{info.CWE}
	}
	return rec
}

// Locate converts a span to a Location. Lines are 1-based and columns
// 0-based. The snippet is the trimmed source line holding the span start,
// or "N/A" when the span falls outside source.
func Locate(file string, span estree.Span, source []byte) Location {
	loc := Location{File: file, Line: span.Start.Line, Column: span.Start.Column, Snippet: "N/A"}
	start, end := span.StartByte, span.EndByte
	if start < 0 || start >= len(source) || end > len(source) || start > end {
		return loc
	}
	lineStart := findLineStart(source, start)
	lineEnd := findLineEnd(source, start)
	if lineEnd > lineStart {
		loc.Snippet = strings.TrimSpace(string(source[lineStart:lineEnd]))
	}
	return loc
}

func findLineStart(source []byte, idx int) int {
	if idx >= len(source) {
		if len(source) == 0 {
			return 0
		}
		idx = len(source) - 1
	}
	if idx < 0 {
		return 0
	}
	for i := idx; i >= 0; i-- {
		if source[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func findLineEnd(source []byte, idx int) int {
	for i := idx; i < len(source); i++ {
		if source[i] == '\n' {
			return i
		}
	}
	return len(source)
}
