package rules

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/typesentry/internal/analysis/core"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

func TestHardcodedSecret(t *testing.T) {
	t.Run("literal secret on sign", func(t *testing.T) {
		b := newBuilder()
		secret := b.str("s3cr3t-value")
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "sign", b.id("payload", object("sub")), secret))

		fs := run(t, b, prog, HardcodedSecret{})
		require.Len(t, fs, 1)
		assert.Equal(t, core.CheckJwtHardcodedSecret, fs[0].CheckID)
		assert.Same(t, secret, fs[0].Node)
		assert.Nil(t, fs[0].Extra)
		assert.Equal(t, "jwt-hardcode", fs[0].Rule)
	})

	t.Run("union of literals on verify", func(t *testing.T) {
		b := newBuilder()
		key := b.id("key", typesys.NewUnion(lit("a"), lit("b")))
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "verify", b.id("tok", stringType), key))

		fs := run(t, b, prog, HardcodedSecret{})
		require.Len(t, fs, 1)
		assert.Same(t, key, fs[0].Node)
	})

	t.Run("literal only in some cases", func(t *testing.T) {
		b := newBuilder()
		key := b.id("key", typesys.NewUnion(lit("a"), stringType))
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "sign", b.id("p", nil), key))
		assert.Empty(t, run(t, b, prog, HardcodedSecret{}))
	})

	t.Run("untyped secret", func(t *testing.T) {
		b := newBuilder()
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "sign", b.id("p", nil), b.id("key", nil)))
		assert.Empty(t, run(t, b, prog, HardcodedSecret{}))
	})

	t.Run("JWK key from literal", func(t *testing.T) {
		b := newBuilder()
		asKey := b.method(b.id("JWK", joseJWK), "asKey", b.str("raw-key-material"))
		prog := program(b.method(b.id("JWT", joseJWT), "sign", b.id("p", object("a")), asKey))

		fs := run(t, b, prog, HardcodedSecret{})
		require.Len(t, fs, 1)
		assert.Same(t, asKey, fs[0].Node)
	})

	t.Run("JWK key from runtime value", func(t *testing.T) {
		b := newBuilder()
		asKey := b.method(b.id("JWK", joseJWK), "asKey", b.id("pem", stringType))
		prog := program(b.method(b.id("JWT", joseJWT), "sign", b.id("p", nil), asKey))
		assert.Empty(t, run(t, b, prog, HardcodedSecret{}))
	})

	t.Run("factory-produced signer", func(t *testing.T) {
		b := newBuilder()
		signerType := &typesys.Object{Signatures: []typesys.Signature{{
			Params: []typesys.Param{
				{Name: "payload", Type: nominal(classify.PackageJsonWebToken, "JwtPayload")},
				{Name: "secretOrPrivateKey", Type: stringType},
			},
			Return: stringType,
		}}}
		secret := b.str("from-factory")
		prog := program(b.call(b.id("signer", signerType), stringType, b.id("claims", nil), secret))

		fs := run(t, b, prog, HardcodedSecret{})
		require.Len(t, fs, 1)
		assert.Same(t, secret, fs[0].Node)
	})

	t.Run("factory signer key is always the second argument", func(t *testing.T) {
		b := newBuilder()
		keyFirst := &typesys.Object{Signatures: []typesys.Signature{{
			Params: []typesys.Param{
				{Name: "secretOrPrivateKey", Type: stringType},
				{Name: "payload", Type: nominal(classify.PackageJsonWebToken, "JwtPayload")},
			},
		}}}
		runtimeKey := program(b.call(b.id("signer", keyFirst), stringType, b.str("literal-first"), b.id("claims", nil)))
		assert.Empty(t, run(t, b, runtimeKey, HardcodedSecret{}))

		secret := b.str("literal-second")
		literalKey := program(b.call(b.id("signer", keyFirst), stringType, b.id("claims", nil), secret))
		fs := run(t, b, literalKey, HardcodedSecret{})
		require.Len(t, fs, 1)
		assert.Same(t, secret, fs[0].Node)
	})

	t.Run("secret parameter without jwt types", func(t *testing.T) {
		b := newBuilder()
		fnType := &typesys.Object{Signatures: []typesys.Signature{{
			Params: []typesys.Param{{Name: "secretOrPrivateKey", Type: stringType}},
		}}}
		prog := program(b.call(b.id("hash", fnType), nil, b.str("x"), b.str("y")))
		assert.Empty(t, run(t, b, prog, HardcodedSecret{}))
	})

	t.Run("unrelated receiver", func(t *testing.T) {
		b := newBuilder()
		prog := program(b.method(b.id("crypto", nominal("@types/node", "crypto")), "sign", b.str("a"), b.str("b")))
		assert.Empty(t, run(t, b, prog, HardcodedSecret{}))
	})
}

func TestExposure(t *testing.T) {
	t.Run("sign reports secret and payload keys", func(t *testing.T) {
		b := newBuilder()
		payload := b.objectLit(object("user", "role"), "user", "role")
		secret := b.str("topsecret")
		call := b.method(b.id("jwt", jsonwebtokenType), "sign", payload, secret)

		fs := run(t, b, program(call), Exposure{})
		require.Len(t, fs, 2)

		assert.Equal(t, core.CheckJwtSecret, fs[0].CheckID)
		assert.Same(t, secret, fs[0].Node)
		assert.Equal(t, "topsecret", fs[0].Extra["value"])
		assert.Equal(t, true, fs[0].Extra["weak"])

		assert.Equal(t, core.CheckJwtPayloadKey, fs[1].CheckID)
		assert.Same(t, call, fs[1].Node)
		assert.Equal(t, []string{"role", "user"}, fs[1].Extra["keys"])
	})

	t.Run("non-literal string secret", func(t *testing.T) {
		b := newBuilder()
		secret := b.id("key", stringType)
		opts := b.id("opts", &typesys.Primitive{Name: typesys.PrimitiveBoolean})
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "verify", b.id("tok", stringType), secret, opts))

		fs := run(t, b, prog, Exposure{})
		assert.Equal(t, []core.CheckID{core.CheckJwtSecret, core.CheckJwtOptsPrimitive}, checkIDs(fs))
		assert.Nil(t, fs[0].Extra)
		assert.Same(t, opts, fs[1].Node)
	})

	t.Run("structured verify options", func(t *testing.T) {
		b := newBuilder()
		opts := b.objectLit(object("algorithms"), "algorithms")
		prog := program(b.method(b.id("jwt", jsonwebtokenType), "verify", b.id("tok", stringType), b.id("pub", nominal("@types/node", "KeyObject")), opts))
		assert.Empty(t, run(t, b, prog, Exposure{}))
	})

	t.Run("decode always reports once", func(t *testing.T) {
		for _, args := range [][]typesys.Type{nil, {stringType}, {stringType, object("complete")}, {typesys.Any}} {
			b := newBuilder()
			var nodes []estree.Node
			for i, a := range args {
				nodes = append(nodes, b.id(string(rune('a'+i)), a))
			}
			call := b.method(b.id("jwt", jsonwebtokenType), "decode", nodes...)

			fs := run(t, b, program(call), Exposure{})
			require.Len(t, fs, 1)
			assert.Equal(t, core.CheckJwtDecode, fs[0].CheckID)
			assert.Same(t, call, fs[0].Node)
		}
	})

	t.Run("decode of literal token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "admin": true}).SignedString([]byte("supersecret"))
		require.NoError(t, err)

		b := newBuilder()
		fs := run(t, b, program(b.method(b.id("jwt", jsonwebtokenType), "decode", b.str(token))), Exposure{})
		require.Len(t, fs, 1)
		assert.Equal(t, "HS256", fs[0].Extra["alg"])
		assert.Equal(t, []string{"admin", "sub"}, fs[0].Extra["claims"])
		assert.Equal(t, true, fs[0].Extra["weak_secret"])
		assert.Equal(t, true, fs[0].Extra["missing_exp"])
		assert.NotContains(t, fs[0].Extra, "sensitive_claims")
	})

	t.Run("decode of literal token with sensitive claims", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "1", "password": "hunter2", "api_key": "k", "exp": 4102444800}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("a-long-unguessable-key"))
		require.NoError(t, err)

		b := newBuilder()
		fs := run(t, b, program(b.method(b.id("jwt", jsonwebtokenType), "decode", b.str(token))), Exposure{})
		require.Len(t, fs, 1)
		assert.Equal(t, []string{"api_key", "password"}, fs[0].Extra["sensitive_claims"])
		assert.NotContains(t, fs[0].Extra, "missing_exp")
		assert.NotContains(t, fs[0].Extra, "weak_secret")
	})

	t.Run("decode on a JWK namespace is not a signer", func(t *testing.T) {
		b := newBuilder()
		prog := program(b.method(b.id("JWK", joseJWK), "decode", b.id("x", stringType)))
		assert.Empty(t, run(t, b, prog, Exposure{}))
	})
}

func TestPayloadType(t *testing.T) {
	b := newBuilder()
	payloadType := typesys.NewUnion(object("sub"), mongooseDocument)
	call := b.method(b.id("jwt", jsonwebtokenType), "sign", b.id("claims", payloadType), b.id("k", stringType))
	untyped := b.method(b.id("jwt", jsonwebtokenType), "sign", b.id("claims2", nil))
	jwk := b.method(b.id("JWK", joseJWK), "sign", b.id("claims3", object("a")))

	fs := run(t, b, program(call, untyped, jwk), PayloadType{})
	require.Len(t, fs, 1)
	assert.Equal(t, core.CheckJwtExpo, fs[0].CheckID)
	assert.Same(t, call, fs[0].Node)
	assert.Equal(t, payloadType, fs[0].Extra["type"])
}

func TestOrmExpose(t *testing.T) {
	b := newBuilder()
	doc := b.id("mongooseDoc", mongooseDocument)
	maybeDoc := b.id("maybe", typesys.NewUnion(mongooseDocument, object("id")))
	plain := b.id("plain", object("id"))
	jwtID := func() *estree.Identifier { return b.id("jwt", jsonwebtokenType) }

	prog := program(
		b.method(jwtID(), "sign", doc, b.id("key", stringType)),
		b.method(jwtID(), "sign", maybeDoc, b.id("key", stringType)),
		b.method(jwtID(), "sign", plain, b.id("key", stringType)),
	)

	fs := run(t, b, prog, OrmExpose{})
	require.Len(t, fs, 2)
	assert.Same(t, doc, fs[0].Node)
	assert.Same(t, maybeDoc, fs[1].Node)
	assert.Equal(t, core.CheckOrmExpose, fs[0].CheckID)
}

// Every rule sees every sign call independently; none suppresses another.
func TestRulesCompose(t *testing.T) {
	b := newBuilder()
	docType := &typesys.Nominative{Name: mongooseDocument.Name, Underlying: object("email", "hash")}
	payload := b.id("doc", docType)
	prog := program(b.method(b.id("jwt", jsonwebtokenType), "sign", payload, b.str("topsecret")))

	fs := run(t, b, prog, Default()...)
	assert.Equal(t, []core.CheckID{
		core.CheckJwtHardcodedSecret,
		core.CheckJwtSecret,
		core.CheckJwtPayloadKey,
		core.CheckJwtExpo,
		core.CheckOrmExpose,
	}, checkIDs(fs))
}
