// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/engine"
	"github.com/xkilldash9x/typesentry/internal/observability"
	"github.com/xkilldash9x/typesentry/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "typesentry"
	ToolInfoURI  = "https://github.com/xkilldash9x/typesentry"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// ruleIDSanitizer replaces characters not typically safe or allowed in SARIF Rule IDs.
// Alphanumerics, underscore and dot are kept; every other run becomes one hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	runID  string
	// mu protects the log structure and the maps.
	mu sync.Mutex
	// ruleIndex maps a CheckID to its position in the driver's rule list.
	ruleIndex map[core.CheckID]int
	// notifications collects units that could not be analyzed.
	notifications []*sarif.Notification
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion, runID string) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						// Initialize empty slices (not nil) for proper JSON marshalling
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results:    []*sarif.Result{},
				Properties: &sarif.PropertyBag{"run_id": runID},
			},
		},
	}

	return &SARIFReporter{
		writer:    writer,
		logger:    observability.GetLogger().Named("sarif_reporter"),
		log:       log,
		runID:     runID,
		ruleIndex: make(map[core.CheckID]int),
	}
}

// Write converts the findings of one unit into SARIF results. A unit that
// failed to load becomes a tool execution notification.
func (r *SARIFReporter) Write(result *engine.UnitResult) error {
	startTime := time.Now()
	recs := records(result, r.runID, startTime.UTC())

	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Err != nil {
		r.notifications = append(r.notifications, &sarif.Notification{
			Message:   &sarif.Message{Text: pString(result.Err.Error())},
			Level:     sarif.LevelWarning,
			Locations: []*sarif.Location{{PhysicalLocation: &sarif.PhysicalLocation{ArtifactLocation: &sarif.ArtifactLocation{URI: pString(result.Path)}}}},
		})
		return nil
	}

	run := r.log.Runs[0]
	for _, rec := range recs {
		ruleID, index := r.ensureRule(core.CheckID(rec.CheckID))
		run.Results = append(run.Results, &sarif.Result{
			RuleID:              ruleID,
			RuleIndex:           index,
			Message:             &sarif.Message{Text: pString(resultMessage(rec))},
			Level:               mapSeverityToSARIFLevel(rec.Severity),
			Locations:           createLocations(rec),
			PartialFingerprints: map[string]string{"findingId": rec.ID},
			Properties:          resultProperties(rec),
		})
	}

	if len(recs) > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.String("file", result.Path),
			zap.Int("findings_count", len(recs)),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Invocations = []*sarif.Invocation{{
		ExecutionSuccessful:        len(r.notifications) == 0,
		ToolExecutionNotifications: r.notifications,
	}}

	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
		zap.Int("skipped_units", len(r.notifications)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ") // Pretty print

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote SARIF report",
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// SanitizeRuleID builds the SARIF rule ID for a check.
func SanitizeRuleID(id core.CheckID) string {
	name := strings.ToUpper(string(id))
	name = strings.Trim(ruleIDSanitizer.ReplaceAllString(name, "-"), "-")
	if name == "" {
		name = "UNKNOWN-CHECK"
	}
	return "TYPESENTRY-" + name
}

// ensureRule registers the catalog entry for id on first use.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(id core.CheckID) (string, int) {
	ruleID := SanitizeRuleID(id)
	if idx, ok := r.ruleIndex[id]; ok {
		return ruleID, idx
	}

	info := core.Lookup(id)
	r.logger.Debug("Registering new SARIF rule definition", zap.String("rule_id", ruleID))

	markdownHelp := fmt.Sprintf("**Check:** %s\n\n**Description:**\n%s\n\n**Recommendation:**\n%s",
		info.Name, info.Description, info.Recommendation)

	var cwe []string
	if info.CWE != "" {
		cwe = []string{info.CWE}
	}
	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             pString(string(id)),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(info.Name)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(info.Description)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(info.Recommendation),
			Markdown: pString(markdownHelp),
		},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: mapSeverityToSARIFLevel(info.Severity)},
		Properties: &sarif.PropertyBag{
			"tags":              []string{"security", "typesentry"},
			"precision":         "high",
			"security-severity": string(info.Severity),
			"CWE":               cwe,
		},
	})
	idx := len(driver.Rules) - 1
	r.ruleIndex[id] = idx
	return ruleID, idx
}

func resultMessage(rec schemas.Finding) string {
	if keys, ok := rec.Extra["keys"].([]string); ok && len(keys) > 0 {
		return fmt.Sprintf("%s: %s", rec.Name, strings.Join(keys, ", "))
	}
	if rec.Description != "" {
		return rec.Description
	}
	return rec.Name
}

func resultProperties(rec schemas.Finding) *sarif.PropertyBag {
	bag := sarif.PropertyBag{"rule": rec.Rule}
	for k, v := range rec.Extra {
		bag[k] = v
	}
	return &bag
}

// createLocations converts the finding position into SARIF location objects.
// SARIF columns are 1-based.
func createLocations(rec schemas.Finding) []*sarif.Location {
	region := &sarif.Region{StartLine: rec.Line, StartColumn: rec.Column + 1}
	if rec.Snippet != "" && rec.Snippet != "N/A" {
		region.Snippet = &sarif.ArtifactContent{Text: pString(rec.Snippet)}
	}
	return []*sarif.Location{{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(rec.File)},
			Region:           region,
		},
	}}
}

// mapSeverityToSARIFLevel converts a finding severity to the SARIF standard.
func mapSeverityToSARIFLevel(severity schemas.Severity) sarif.Level {
	switch severity {
	case schemas.SeverityCritical, schemas.SeverityHigh:
		return sarif.LevelError
	case schemas.SeverityMedium:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
