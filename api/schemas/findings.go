package schemas

import (
	"fmt"
	"strings"
	"time"
)

// -- Finding Schemas --

// Severity represents the severity level of a security finding, ranging from
// critical to informational. The values are lowercase to align with database ENUMs.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical" // Represents a critical vulnerability.
	SeverityHigh     Severity = "high"     // Represents a high-severity vulnerability.
	SeverityMedium   Severity = "medium"   // Represents a medium-severity vulnerability.
	SeverityLow      Severity = "low"      // Represents a low-severity vulnerability.
	SeverityInfo     Severity = "info"     // Represents an informational finding.
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// ParseSeverity converts a case-insensitive name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// AtLeast reports whether s is as severe as, or more severe than, floor.
func (s Severity) AtLeast(floor Severity) bool {
	return severityRank[s] >= severityRank[floor]
}

// Finding is the serialized form of one detector hit. It is what reporters
// emit and what maps directly to the `findings` table in the database.
type Finding struct {
	ID    string `json:"id"`     // Unique identifier for the finding.
	RunID string `json:"run_id"` // The scan run that produced this finding.

	// ObservedAt is the timestamp when the finding was recorded.
	ObservedAt time.Time `json:"observed_at"`

	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Snippet string `json:"snippet,omitempty"`

	Rule    string `json:"rule"`     // The rule that emitted the finding.
	CheckID string `json:"check_id"` // The stable finding code.
	Name    string `json:"name"`

	Severity    Severity `json:"severity"`
	Description string   `json:"description"`

	// Extra is the check-specific payload, stored as JSONB in the database.
	Extra map[string]interface{} `json:"extra,omitempty"`

	Recommendation string   `json:"recommendation"`
	CWE            []string `json:"cwe,omitempty"`
}
