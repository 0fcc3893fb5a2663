package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Run summarizes one scan invocation.
type Run struct {
	ID          string
	ToolVersion string
	StartedAt   time.Time
	FinishedAt  time.Time
	Units       int
	Skipped     int
}

// FindingColumns is the column order used when copying findings.
var FindingColumns = []string{
	"id", "run_id", "check_id", "rule", "name", "file", "line", "col",
	"severity", "description", "extra", "recommendation", "cwe", "observed_at",
}

// Schema creates the tables used by PersistRun.
const Schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id           TEXT PRIMARY KEY,
    tool_version TEXT NOT NULL,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL,
    units        INTEGER NOT NULL,
    skipped      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS findings (
    id             TEXT PRIMARY KEY,
    run_id         TEXT NOT NULL REFERENCES scan_runs(id) ON DELETE CASCADE,
    check_id       TEXT NOT NULL,
    rule           TEXT NOT NULL,
    name           TEXT NOT NULL,
    file           TEXT NOT NULL,
    line           INTEGER NOT NULL,
    col            INTEGER NOT NULL,
    severity       TEXT NOT NULL,
    description    TEXT NOT NULL,
    extra          JSONB NOT NULL DEFAULT '{}',
    recommendation TEXT NOT NULL,
    cwe            TEXT[],
    observed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS findings_run_id_idx ON findings (run_id);
`

const sqlInsertRun = `
    INSERT INTO scan_runs (id, tool_version, started_at, finished_at, units, skipped)
    VALUES ($1, $2, $3, $4, $5, $6);
`

const sqlSelectFindings = `
    SELECT id, check_id, rule, name, file, line, col, severity, description, extra, recommendation, cwe, observed_at
    FROM findings
    WHERE run_id = $1
    ORDER BY file ASC, line ASC, col ASC;
`

// Store persists scan runs and their findings in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect retries New until the database answers or the backoff policy gives up.
func Connect(ctx context.Context, pool DBPool, logger *zap.Logger, b backoff.BackOff) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var s *Store
	operation := func() error {
		var err error
		if s, err = New(ctx, pool, logger); err != nil {
			logger.Warn("Database not reachable, retrying...", zap.Error(err))
		}
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultBackOff is the connection policy used by the CLI.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// PersistRun records the run and all of its findings in one transaction.
func (s *Store) PersistRun(ctx context.Context, run Run, findings []schemas.Finding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit returns ErrTxClosed, which is expected.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, sqlInsertRun,
		run.ID, run.ToolVersion, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Units, run.Skipped,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if len(findings) > 0 {
		if err := s.persistFindings(ctx, tx, run.ID, findings); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Persisted scan run", zap.String("run_id", run.ID), zap.Int("findings", len(findings)))
	return nil
}

func (s *Store) persistFindings(ctx context.Context, tx pgx.Tx, runID string, findings []schemas.Finding) error {
	rows := make([][]interface{}, len(findings))
	for i, f := range findings {
		extra := []byte("{}")
		if len(f.Extra) > 0 {
			encoded, err := json.Marshal(f.Extra)
			if err != nil {
				return fmt.Errorf("failed to encode extra of finding %s: %w", f.ID, err)
			}
			extra = encoded
		}

		rows[i] = []interface{}{
			f.ID, runID, f.CheckID, f.Rule, f.Name,
			f.File, f.Line, f.Column,
			string(f.Severity), f.Description,
			extra,
			f.Recommendation, f.CWE,
			f.ObservedAt.UTC(),
		}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"findings"}, FindingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy findings: %w", err)
	}
	if int(copyCount) != len(findings) {
		return fmt.Errorf("mismatch in copied findings count: expected %d, got %d", len(findings), copyCount)
	}
	return nil
}

// GetFindingsByRunID loads the findings of a run ordered by position.
func (s *Store) GetFindingsByRunID(ctx context.Context, runID string) ([]schemas.Finding, error) {
	rows, err := s.pool.Query(ctx, sqlSelectFindings, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []schemas.Finding
	for rows.Next() {
		var f schemas.Finding
		var severity string
		var extra []byte

		err := rows.Scan(
			&f.ID, &f.CheckID, &f.Rule, &f.Name,
			&f.File, &f.Line, &f.Column,
			&severity, &f.Description,
			&extra,
			&f.Recommendation, &f.CWE,
			&f.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		if len(extra) > 0 && string(extra) != "{}" && string(extra) != "null" {
			if err := json.Unmarshal(extra, &f.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode extra of finding %s: %w", f.ID, err)
			}
		}

		f.Severity = schemas.Severity(severity)
		f.RunID = runID
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return findings, nil
}
