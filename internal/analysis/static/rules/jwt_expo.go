package rules

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// PayloadType records the full inferred type of every signed JWT payload.
type PayloadType struct{}

func (PayloadType) Name() string { return "jwt-expo" }

func (PayloadType) Description() string {
	return "Inferred type of data embedded in signed JWTs"
}

func (PayloadType) Checks() []core.CheckID { return []core.CheckID{core.CheckJwtExpo} }

func (PayloadType) Create(ctx *Context) estree.Handlers {
	return estree.Handlers{
		CallExpression: func(call *estree.CallExpression) {
			if _, ok := ctx.receiverIs(call, classify.IsJwtSigner, "sign"); !ok {
				return
			}
			t, ok := ctx.TypeOf(estree.Argument(call, 0))
			if !ok {
				return
			}
			ctx.Report(call, core.CheckJwtExpo, map[string]any{"type": t})
		},
	}
}

var _ Rule = PayloadType{}
