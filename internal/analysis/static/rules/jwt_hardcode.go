package rules

import (
	"slices"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// HardcodedSecret flags JWT sign/verify calls whose key is a constant under
// every possible type, including keys built with JWK.asKey(<literal>).
type HardcodedSecret struct{}

func (HardcodedSecret) Name() string { return "jwt-hardcode" }

func (HardcodedSecret) Description() string {
	return "JWT signing or verification key is hardcoded"
}

func (HardcodedSecret) Checks() []core.CheckID {
	return []core.CheckID{core.CheckJwtHardcodedSecret}
}

func (r HardcodedSecret) Create(ctx *Context) estree.Handlers {
	return estree.Handlers{
		CallExpression: func(call *estree.CallExpression) {
			if !r.keyedCall(ctx, call) {
				return
			}
			secret := estree.Argument(call, 1)
			if secret == nil {
				return
			}
			if r.isHardcoded(ctx, secret) {
				ctx.Report(secret, core.CheckJwtHardcodedSecret, nil)
			}
		},
	}
}

// keyedCall reports whether call takes a signing key as its second argument:
// a sign/verify call on a JWT or JWK namespace, or a callee whose own signature
// names a secret parameter and takes some JWT library type.
func (HardcodedSecret) keyedCall(ctx *Context, call *estree.CallExpression) bool {
	if _, ok := ctx.receiverIs(call, classify.IsJwtOrJwkNamespace, "sign", "verify"); ok {
		return true
	}

	t, ok := ctx.TypeOf(call.Callee)
	if !ok {
		return false
	}
	for _, sig := range classify.CallSignatures(t) {
		if !slices.ContainsFunc(classify.SecretParameterNames, func(name string) bool {
			return classify.HasParameterNamed(sig, name) >= 0
		}) {
			continue
		}
		if slices.ContainsFunc(sig.Params, func(p typesys.Param) bool {
			return p.Type != nil && classify.BelongsToJwtLibrary(p.Type)
		}) {
			return true
		}
	}
	return false
}

func (HardcodedSecret) isHardcoded(ctx *Context, secret estree.Node) bool {
	if t, ok := ctx.TypeOf(secret); ok && classify.AllOf(t, classify.IsLiteral) {
		return true
	}
	return isLiteralJwkKey(ctx, secret)
}

// isLiteralJwkKey matches JWK.asKey(k) where k is constant in every case.
func isLiteralJwkKey(ctx *Context, n estree.Node) bool {
	call, ok := n.(*estree.CallExpression)
	if !ok {
		return false
	}
	if _, ok := ctx.receiverIs(call, classify.IsJwkKeyFactory, "asKey"); !ok {
		return false
	}
	kt, ok := ctx.TypeOf(estree.Argument(call, 0))
	return ok && classify.AllOf(kt, classify.IsLiteral)
}

var _ Rule = HardcodedSecret{}
