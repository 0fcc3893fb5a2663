// Package rules holds the call-site pattern matchers. Each rule subscribes
// to node kinds through estree.Handlers and reports findings through its
// Context. Matchers are total: a missing type or an unexpected node shape is
// a non-match.
package rules

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/jwt"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/taint"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Rule is a single detector.
type Rule interface {
	// Name is the stable rule name used in config and reports.
	Name() string
	Description() string
	// Checks lists the finding codes the rule can emit.
	Checks() []core.CheckID
	// Create returns the callbacks for one analysis pass.
	Create(ctx *Context) estree.Handlers
}

// Sink receives findings in emission order.
type Sink func(core.Finding)

// Context is the per-unit, per-rule view of the analysis pass.
type Context struct {
	File      string
	Source    []byte
	Oracle    typesys.Oracle
	Tracker   *taint.Tracker
	Inspector *jwt.Inspector
	Logger    *zap.Logger

	rule string
	sink Sink
}

// NewContext creates the shared pass context for one unit. Use For to obtain
// the view handed to a specific rule.
func NewContext(file string, source []byte, oracle typesys.Oracle, tracker *taint.Tracker, inspector *jwt.Inspector, logger *zap.Logger, sink Sink) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	if inspector == nil {
		inspector = jwt.NewInspector()
	}
	if tracker == nil {
		tracker = taint.NewTracker(oracle)
	}
	return &Context{
		File:      file,
		Source:    source,
		Oracle:    oracle,
		Tracker:   tracker,
		Inspector: inspector,
		Logger:    logger,
		sink:      sink,
	}
}

// For returns a copy of c that attributes findings to r.
func (c *Context) For(r Rule) *Context {
	cp := *c
	cp.rule = r.Name()
	cp.Logger = c.Logger.With(zap.String("rule", r.Name()))
	return &cp
}

// Report emits one finding at node.
func (c *Context) Report(node estree.Node, id core.CheckID, extra map[string]any) {
	f := core.NewFinding(c.rule, id, c.File, c.Source, node, extra)
	c.Logger.Debug("Finding reported",
		zap.String("check_id", string(id)),
		zap.String("location", f.Location.String()))
	if c.sink != nil {
		c.sink(f)
	}
}

// TypeOf asks the oracle for the type of n.
func (c *Context) TypeOf(n estree.Node) (typesys.Type, bool) {
	if c.Oracle == nil || n == nil {
		return nil, false
	}
	return c.Oracle.TypeOf(n)
}

// methodCall splits a call of the form recv.method(...) into its receiver and
// method name.
func methodCall(call *estree.CallExpression) (estree.Node, string, bool) {
	if call == nil {
		return nil, "", false
	}
	m, ok := call.Callee.(*estree.MemberExpression)
	if !ok || m.Object == nil {
		return nil, "", false
	}
	name, ok := estree.PropertyName(m)
	if !ok {
		return nil, "", false
	}
	return m.Object, name, true
}

// receiverIs reports whether call is recv.method(...) with method in methods
// and recv existentially satisfying pred.
func (c *Context) receiverIs(call *estree.CallExpression, pred classify.Predicate, methods ...string) (string, bool) {
	recv, name, ok := methodCall(call)
	if !ok {
		return "", false
	}
	matched := false
	for _, m := range methods {
		if m == name {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	t, ok := c.TypeOf(recv)
	if !ok {
		return "", false
	}
	return name, classify.AnyOf(t, pred)
}
