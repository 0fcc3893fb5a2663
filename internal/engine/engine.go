// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/jwt"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/rules"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/taint"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// DefaultConcurrency is used when Options.Concurrency is not positive.
const DefaultConcurrency = 4

// Unit is one syntactic unit ready for analysis: a tree plus the oracle that
// types its nodes.
type Unit struct {
	Path    string
	Source  []byte
	Program *estree.Program
	Oracle  typesys.Oracle
}

// UnitResult holds the outcome of analyzing one unit.
type UnitResult struct {
	Path     string
	Findings []core.Finding
	// Err is set when the unit could not be loaded. Findings is empty then.
	Err error
	// RecoveredPanics counts rule callbacks that panicked and were skipped.
	RecoveredPanics int
	Duration        time.Duration
}

// Loader produces the unit for path.
type Loader func(ctx context.Context, path string) (*Unit, error)

// Options tune an Engine.
type Options struct {
	Concurrency int
	// Prescan seeds the taint tracker from every declaration in the unit
	// before the main pass, removing the dependence on declaration order.
	Prescan bool
}

// Engine runs a fixed rule set over units.
type Engine struct {
	rules     []rules.Rule
	inspector *jwt.Inspector
	opts      Options
	logger    *zap.Logger
}

// New creates an Engine. A nil inspector gets the built-in dictionary.
func New(rs []rules.Rule, inspector *jwt.Inspector, opts Options, logger *zap.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if inspector == nil {
		inspector = jwt.NewInspector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rules:     rs,
		inspector: inspector,
		opts:      opts,
		logger:    logger.Named("engine"),
	}
}

// Rules returns the active rules in invocation order.
func (e *Engine) Rules() []rules.Rule { return e.rules }

// AnalyzeUnit runs every rule over u in a single forward pass with a fresh
// tracker. It never returns an error: a panicking rule callback is logged and
// skipped.
func (e *Engine) AnalyzeUnit(u *Unit) *UnitResult {
	start := time.Now()
	result := &UnitResult{Path: u.Path, Findings: []core.Finding{}}
	if u.Program == nil {
		result.Duration = time.Since(start)
		return result
	}

	tracker := taint.NewTracker(u.Oracle)
	if e.opts.Prescan {
		estree.Walk(u.Program, estree.Handlers{
			VariableDeclarator: func(d *estree.VariableDeclarator) { tracker.Observe(d) },
		})
	}

	logger := e.logger.With(zap.String("file", u.Path))
	ctx := rules.NewContext(u.Path, u.Source, u.Oracle, tracker, e.inspector, logger, func(f core.Finding) {
		result.Findings = append(result.Findings, f)
	})

	handlers := make([]estree.Handlers, 0, len(e.rules))
	for _, r := range e.rules {
		handlers = append(handlers, e.guard(r, u.Path, r.Create(ctx.For(r)), &result.RecoveredPanics))
	}
	estree.Walk(u.Program, handlers...)

	result.Duration = time.Since(start)
	logger.Debug("Unit analyzed",
		zap.Int("findings", len(result.Findings)),
		zap.Int("tainted_names", tracker.Len()),
		zap.Duration("duration", result.Duration))
	return result
}

// guard wraps each callback of hs so a panic is recovered and counted.
func (e *Engine) guard(r rules.Rule, path string, hs estree.Handlers, panics *int) estree.Handlers {
	recoverRule := func() {
		if rec := recover(); rec != nil {
			*panics++
			e.logger.Error("Rule panicked, skipping node",
				zap.String("rule", r.Name()),
				zap.String("file", path),
				zap.Any("panic", rec))
		}
	}

	var out estree.Handlers
	if call := hs.CallExpression; call != nil {
		out.CallExpression = func(n *estree.CallExpression) {
			defer recoverRule()
			call(n)
		}
	}
	if decl := hs.VariableDeclarator; decl != nil {
		out.VariableDeclarator = func(n *estree.VariableDeclarator) {
			defer recoverRule()
			decl(n)
		}
	}
	return out
}

// AnalyzeAll analyzes units concurrently. Results are in input order.
func (e *Engine) AnalyzeAll(ctx context.Context, units []*Unit) ([]*UnitResult, error) {
	paths := make([]string, len(units))
	for i, u := range units {
		paths[i] = u.Path
	}
	return e.run(ctx, paths, func(_ context.Context, i int) (*Unit, error) {
		return units[i], nil
	})
}

// Run loads and analyzes every path with bounded concurrency. A load failure
// is recorded on that unit's result and does not stop the run. Cancellation is
// checked before each unit; an in-flight pass always completes.
func (e *Engine) Run(ctx context.Context, paths []string, load Loader) ([]*UnitResult, error) {
	return e.run(ctx, paths, func(ctx context.Context, i int) (*Unit, error) {
		return load(ctx, paths[i])
	})
}

func (e *Engine) run(ctx context.Context, paths []string, load func(context.Context, int) (*Unit, error)) ([]*UnitResult, error) {
	results := make([]*UnitResult, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	e.logger.Info("Starting analysis",
		zap.Int("units", len(paths)),
		zap.Int("rules", len(e.rules)),
		zap.Int("concurrency", e.opts.Concurrency),
		zap.Bool("prescan", e.opts.Prescan))

	for i, path := range paths {
		if groupCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			u, err := load(groupCtx, i)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				e.logger.Warn("Failed to load unit, skipping", zap.String("file", path), zap.Error(err))
				results[i] = &UnitResult{Path: path, Err: err}
				return nil
			}
			results[i] = e.AnalyzeUnit(u)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	return results, nil
}
