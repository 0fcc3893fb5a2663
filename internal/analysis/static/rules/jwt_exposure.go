package rules

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Exposure combines the decode, verify and sign checks on JWT namespaces.
//
//   - decode(...) on a signer always yields jwt-decode.
//   - verify/sign with a string key yields jwt-secret.
//   - verify with a bare runtime primitive as options yields jwt-opts-primitive.
//   - sign with an object payload yields jwt-payload-key listing its keys.
type Exposure struct{}

func (Exposure) Name() string { return "jwt-exposure" }

func (Exposure) Description() string {
	return "JWT decode without verification, string secrets, untyped verify options and signed payload keys"
}

func (Exposure) Checks() []core.CheckID {
	return []core.CheckID{core.CheckJwtDecode, core.CheckJwtSecret, core.CheckJwtOptsPrimitive, core.CheckJwtPayloadKey}
}

func (r Exposure) Create(ctx *Context) estree.Handlers {
	return estree.Handlers{
		CallExpression: func(call *estree.CallExpression) {
			if _, ok := ctx.receiverIs(call, classify.IsJwtSigner, "decode"); ok {
				ctx.Report(call, core.CheckJwtDecode, r.decodeExtra(ctx, call))
				return
			}

			method, ok := ctx.receiverIs(call, classify.IsJwtOrJwkNamespace, "verify", "sign")
			if !ok {
				return
			}
			r.checkSecret(ctx, call, method)
			switch method {
			case "verify":
				r.checkOptions(ctx, call)
			case "sign":
				r.checkPayload(ctx, call)
			}
		},
	}
}

func (Exposure) checkSecret(ctx *Context, call *estree.CallExpression, method string) {
	secret := estree.Argument(call, 1)
	t, ok := ctx.TypeOf(secret)
	if !ok || !classify.AllOf(t, classify.IsStringLike) {
		return
	}

	var extra map[string]any
	if value, known := singleString(t); known {
		extra = map[string]any{"value": value}
		if ctx.Inspector.IsWeak(value) {
			extra["weak"] = true
		}
		if method == "verify" {
			if token, ok := literalString(ctx, estree.Argument(call, 0)); ok {
				if insight, err := ctx.Inspector.InspectToken(token, &value); err == nil {
					extra["verified"] = insight.Verified
				}
			}
		}
	}
	ctx.Report(secret, core.CheckJwtSecret, extra)
}

func (Exposure) checkOptions(ctx *Context, call *estree.CallExpression) {
	opts := estree.Argument(call, 2)
	if opts == nil {
		return
	}
	t, ok := ctx.TypeOf(opts)
	if ok && classify.AllOf(t, classify.IsPrimitiveNonLiteral) {
		ctx.Report(opts, core.CheckJwtOptsPrimitive, nil)
	}
}

func (Exposure) checkPayload(ctx *Context, call *estree.CallExpression) {
	t, ok := ctx.TypeOf(estree.Argument(call, 0))
	if !ok {
		return
	}
	keys, ok := classify.ObjectProperties(t)
	if !ok {
		return
	}
	ctx.Report(call, core.CheckJwtPayloadKey, map[string]any{"keys": keys})
}

// decodeExtra describes a token that is decoded from a string constant.
func (Exposure) decodeExtra(ctx *Context, call *estree.CallExpression) map[string]any {
	token, ok := literalString(ctx, estree.Argument(call, 0))
	if !ok {
		return nil
	}
	insight, err := ctx.Inspector.InspectToken(token, nil)
	if err != nil {
		ctx.Logger.Debug("Decoded literal is not a JWT", zap.Error(err))
		return nil
	}
	extra := map[string]any{
		"alg":    insight.Algorithm,
		"claims": insight.Claims,
	}
	if insight.AlgNone {
		extra["alg_none"] = true
	}
	if insight.CrackedSecret != "" {
		extra["weak_secret"] = true
	}
	if len(insight.SensitiveClaims) > 0 {
		extra["sensitive_claims"] = insight.SensitiveClaims
	}
	if insight.MissingExpiration {
		extra["missing_exp"] = true
	}
	return extra
}

// singleString returns the value of t when it is exactly one string literal.
func singleString(t typesys.Type) (string, bool) {
	members := typesys.PossibleTypes(t)
	if len(members) != 1 {
		return "", false
	}
	return classify.LiteralString(members[0])
}

func literalString(ctx *Context, n estree.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	if t, ok := ctx.TypeOf(n); ok {
		if s, ok := singleString(t); ok {
			return s, true
		}
	}
	if lit, ok := n.(*estree.Literal); ok {
		s, ok := lit.Value.(string)
		return s, ok
	}
	return "", false
}

var _ Rule = Exposure{}
