// File: cmd/scan.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/api/schemas"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/javascript"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/jwt"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/rules"
	"github.com/xkilldash9x/typesentry/internal/config"
	"github.com/xkilldash9x/typesentry/internal/engine"
	"github.com/xkilldash9x/typesentry/internal/observability"
	"github.com/xkilldash9x/typesentry/internal/reporting"
	"github.com/xkilldash9x/typesentry/internal/store"
)

// exitCodeThreshold is returned when --fail-on matched at least one finding.
const exitCodeThreshold = 3

// findingStore is the part of store.Store the scan command needs.
type findingStore interface {
	EnsureSchema(ctx context.Context) error
	PersistRun(ctx context.Context, run store.Run, findings []schemas.Finding) error
}

// openStore connects to Postgres. Tests replace it.
var openStore = func(ctx context.Context, url string, logger *zap.Logger) (findingStore, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := store.Connect(ctx, pool, logger, store.DefaultBackOff())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize database store: %w", err)
	}
	return s, pool.Close, nil
}

// scanOptions holds settings that only exist as flags.
type scanOptions struct {
	Paths   []string
	Persist bool
}

// scanSummary is what runScan reports back to the command.
type scanSummary struct {
	RunID    string
	Units    int
	Skipped  int
	Findings int
	// AtOrAbove counts findings at or above the fail-on severity.
	AtOrAbove int
}

// newScanCmd creates and configures the `scan` command.
func newScanCmd(v *viper.Viper) *cobra.Command {
	var persist bool

	scanCmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Analyzes JavaScript and TypeScript files for risky patterns",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override config file and environment values.
			bindings := map[string]string{
				"analysis.concurrency":          "concurrency",
				"analysis.prescan_declarations": "prescan",
				"analysis.enabled_rules":        "rules",
				"analysis.disabled_rules":       "disable",
				"report.format":                 "format",
				"report.output":                 "output",
				"report.fail_on":                "fail-on",
			}
			for key, flag := range bindings {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("failed to bind --%s: %w", flag, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			summary, err := runScan(cmd.Context(), cfg, scanOptions{Paths: args, Persist: persist}, logger)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Scan aborted by signal")
					return fmt.Errorf("scan aborted by user signal")
				}
				return err
			}

			if summary.AtOrAbove > 0 {
				return &exitError{
					code: exitCodeThreshold,
					err:  fmt.Errorf("%d finding(s) at or above severity %s", summary.AtOrAbove, cfg.Report().FailOn),
				}
			}
			return nil
		},
	}

	scanCmd.Flags().StringP("format", "f", "text", "Report format: sarif, json or text. (Overrides config/env)")
	scanCmd.Flags().StringP("output", "o", "stdout", "Report output path, or 'stdout'. (Overrides config/env)")
	scanCmd.Flags().IntP("concurrency", "j", 0, "Number of files analyzed concurrently. (Overrides config/env)")
	scanCmd.Flags().Bool("prescan", false, "Record every declaration before running the rules. (Overrides config/env)")
	scanCmd.Flags().StringSlice("rules", nil, "Run only these rules.")
	scanCmd.Flags().StringSlice("disable", nil, "Skip these rules.")
	scanCmd.Flags().String("fail-on", "", "Exit non-zero when a finding at or above this severity exists.")
	scanCmd.Flags().BoolVar(&persist, "persist", false, "Store the run and its findings in the configured database.")

	return scanCmd
}

// runScan collects files, analyzes them, writes the report and optionally
// persists the findings.
func runScan(ctx context.Context, cfg config.Interface, opts scanOptions, logger *zap.Logger) (*scanSummary, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	if opts.Persist && cfg.Database().URL == "" {
		return nil, fmt.Errorf("--persist requires database.url (TYPESENTRY_DATABASE_URL)")
	}

	analysis := cfg.Analysis()
	selected, err := rules.Select(rules.Default(), analysis.EnabledRules, analysis.DisabledRules)
	if err != nil {
		return nil, err
	}
	inspector, err := jwt.LoadInspector(cfg.JWT().WeakSecrets, cfg.JWT().DictionaryFile)
	if err != nil {
		return nil, err
	}

	files, err := collectFiles(opts.Paths, analysis.Extensions, analysis.Exclude, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Starting scan",
		zap.Int("files", len(files)),
		zap.Strings("rules", rules.Names(selected)),
		zap.Int("concurrency", analysis.Concurrency),
		zap.Bool("prescan", analysis.PrescanDeclarations),
	)

	eng := engine.New(selected, inspector, engine.Options{
		Concurrency: analysis.Concurrency,
		Prescan:     analysis.PrescanDeclarations,
	}, logger)
	results, err := eng.Run(ctx, files, newLoader(javascript.NewParser(logger), logger))
	if err != nil {
		return nil, err
	}

	report := cfg.Report()
	reporter, err := reporting.New(report.Format, report.Output, Version, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reporter: %w", err)
	}

	summary := &scanSummary{RunID: runID, Units: len(results)}
	var threshold schemas.Severity
	if report.FailOn != "" {
		if threshold, err = schemas.ParseSeverity(report.FailOn); err != nil {
			_ = reporter.Close()
			return nil, err
		}
	}

	observedAt := time.Now().UTC()
	var records []schemas.Finding
	for _, res := range results {
		if err := reporter.Write(res); err != nil {
			_ = reporter.Close()
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
		if res.Err != nil {
			summary.Skipped++
			logger.Warn("Skipped unit", zap.String("file", res.Path), zap.Error(res.Err))
			continue
		}
		for _, f := range res.Findings {
			summary.Findings++
			if threshold != "" && f.Severity().AtLeast(threshold) {
				summary.AtOrAbove++
			}
			if opts.Persist {
				records = append(records, f.Record(runID, observedAt))
			}
		}
	}
	if err := reporter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize report: %w", err)
	}

	if opts.Persist {
		run := store.Run{
			ID:          runID,
			ToolVersion: Version,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Units:       summary.Units,
			Skipped:     summary.Skipped,
		}
		if err := persistRun(ctx, cfg.Database().URL, run, records, logger); err != nil {
			return nil, err
		}
	}

	logger.Info("Scan complete",
		zap.Int("units", summary.Units),
		zap.Int("skipped", summary.Skipped),
		zap.Int("findings", summary.Findings),
		zap.Duration("duration", time.Since(started)),
	)
	return summary, nil
}

func persistRun(ctx context.Context, url string, run store.Run, records []schemas.Finding, logger *zap.Logger) error {
	s, closeFn, err := openStore(ctx, url, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.PersistRun(ctx, run, records)
}
