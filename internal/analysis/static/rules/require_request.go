package rules

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// RequireRequest flags dynamic module loads whose path is not a constant.
//
// A path that reads a request property at the call site yields
// require-from-request. Otherwise a path sharing a name with an earlier
// unsafe load yields require-request-var, and a path reaching a name tainted
// by the request yields require-from-request. Each call yields at most one
// finding.
type RequireRequest struct{}

func (RequireRequest) Name() string { return "require-request" }

func (RequireRequest) Description() string {
	return "Dynamic require() of request-derived or non-constant module paths"
}

func (RequireRequest) Checks() []core.CheckID {
	return []core.CheckID{core.CheckRequireFromRequest, core.CheckRequireRequestVar}
}

func (r RequireRequest) Create(ctx *Context) estree.Handlers {
	return estree.Handlers{
		VariableDeclarator: func(decl *estree.VariableDeclarator) {
			ctx.Tracker.Observe(decl)
		},
		CallExpression: func(call *estree.CallExpression) {
			t, ok := ctx.TypeOf(call.Callee)
			if !ok || !classify.AnyOf(t, classify.IsDynamicRequire) {
				return
			}
			path := estree.Argument(call, 0)
			if path == nil {
				return
			}
			pt, ok := ctx.TypeOf(path)
			if !ok || classify.AllOf(pt, classify.IsLiteral) {
				return
			}

			direct := ctx.Tracker.ReadsRequest(path)
			derived := ctx.Tracker.IsRequestDerived(path)
			reused := ctx.Tracker.NoteLoaded(path)
			switch {
			case direct:
				ctx.Report(call, core.CheckRequireFromRequest, nil)
			case reused:
				ctx.Report(call, core.CheckRequireRequestVar, nil)
			case derived:
				ctx.Report(call, core.CheckRequireFromRequest, nil)
			}
		},
	}
}

var _ Rule = RequireRequest{}
