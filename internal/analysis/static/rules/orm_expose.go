package rules

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
)

// OrmExpose flags ORM documents passed as JWT payloads.
type OrmExpose struct{}

func (OrmExpose) Name() string { return "orm-expose" }

func (OrmExpose) Description() string {
	return "Persistence-layer document signed into a JWT"
}

func (OrmExpose) Checks() []core.CheckID { return []core.CheckID{core.CheckOrmExpose} }

func (OrmExpose) Create(ctx *Context) estree.Handlers {
	return estree.Handlers{
		CallExpression: func(call *estree.CallExpression) {
			if _, ok := ctx.receiverIs(call, classify.IsJwtSigner, "sign"); !ok {
				return
			}
			payload := estree.Argument(call, 0)
			t, ok := ctx.TypeOf(payload)
			if ok && classify.AnyOf(t, classify.IsOrmDocument) {
				ctx.Report(payload, core.CheckOrmExpose, nil)
			}
		},
	}
}

var _ Rule = OrmExpose{}
