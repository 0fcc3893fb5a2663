// Filename: javascript/infer.go
package javascript

import (
	"github.com/xkilldash9x/typesentry/internal/analysis/static/classify"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/estree"
	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

func nominal(pkg, name string) *typesys.Nominative {
	return &typesys.Nominative{Name: typesys.QualifiedName{Package: pkg, Name: name}}
}

var (
	stringType  = &typesys.Primitive{Name: typesys.PrimitiveString}
	numberType  = &typesys.Primitive{Name: typesys.PrimitiveNumber}
	booleanType = &typesys.Primitive{Name: typesys.PrimitiveBoolean}

	nodeRequireType = nominal(classify.PackageNode, "NodeRequire")
	requestType     = nominal(classify.PackageExpressCore, "Request")
	expressModule   = nominal(classify.PackageExpress, "express")
	expressApp      = nominal(classify.PackageExpressCore, "Express")
	expressRouter   = nominal(classify.PackageExpressCore, "Router")
	jwtModule       = nominal(classify.PackageJsonWebToken, "jsonwebtoken")
	mongooseModule  = nominal(classify.PackageMongooseTypes, "Mongoose")
	modelType       = nominal(classify.PackageMongooseTypes, "Model")
	documentType    = nominal(classify.PackageMongooseTypes, "Document")

	jwtSecret = nominal(classify.PackageJsonWebToken, "Secret")

	// Signatures of the jsonwebtoken exports, used when they are imported by name.
	jwtSignFunc = &typesys.Object{Signatures: []typesys.Signature{{
		Params: []typesys.Param{
			{Name: "payload", Type: typesys.NewUnion(stringType, nominal(classify.PackageJsonWebToken, "JwtPayload"))},
			{Name: "secretOrPrivateKey", Type: jwtSecret},
			{Name: "options", Type: nominal(classify.PackageJsonWebToken, "SignOptions")},
		},
		Return: stringType,
	}}}
	jwtVerifyFunc = &typesys.Object{Signatures: []typesys.Signature{{
		Params: []typesys.Param{
			{Name: "token", Type: stringType},
			{Name: "secretOrPublicKey", Type: jwtSecret},
			{Name: "options", Type: nominal(classify.PackageJsonWebToken, "VerifyOptions")},
		},
		Return: typesys.Any,
	}}}
)

// routeMethods register request handlers on an express app or router.
var routeMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
	"all": true, "use": true, "options": true, "head": true,
}

// Well-known receiver names for apps built elsewhere.
var routeReceivers = map[string]bool{"app": true, "router": true}

// Model methods returning a single document.
var modelQueries = map[string]bool{
	"findOne": true, "findById": true, "create": true,
	"findOneAndUpdate": true, "findByIdAndUpdate": true,
	"findOneAndDelete": true, "findByIdAndDelete": true, "hydrate": true,
}

// moduleType is the value of require(name) or a default import of name.
func moduleType(name string) typesys.Type {
	switch name {
	case "jsonwebtoken":
		return jwtModule
	case "jose":
		return nominal(classify.PackageJose, "jose")
	case "@panva/jose":
		return nominal(classify.PackagePanvaJose, "jose")
	case "mongoose":
		return mongooseModule
	case "express":
		return expressModule
	}
	return typesys.Any
}

func isJoseModule(n *typesys.Nominative) bool {
	return n.Name.Name == "jose" && classify.BelongsToPackage(n, classify.PackageJose, classify.PackagePanvaJose)
}

// memberType is the type of obj.prop given the type of obj.
func memberType(t typesys.Type, prop string) typesys.Type {
	if n, ok := t.(*typesys.Nominative); ok {
		switch {
		case isJoseModule(n) && (prop == "JWT" || prop == "JWS" || prop == "JWK"):
			return nominal(n.Name.Package, prop)
		case n.Name == jwtModule.Name && prop == "sign":
			return jwtSignFunc
		case n.Name == jwtModule.Name && prop == "verify":
			return jwtVerifyFunc
		}
		if n.Underlying == nil {
			return typesys.Any
		}
		t = n.Underlying
	}
	if obj, ok := t.(*typesys.Object); ok {
		if p := obj.Properties[prop]; p != nil {
			return p
		}
	}
	return typesys.Any
}

func binaryType(op string, left, right typesys.Type) typesys.Type {
	switch op {
	case "+":
		if classify.AnyOf(left, classify.IsStringLike) || classify.AnyOf(right, classify.IsStringLike) {
			return stringType
		}
		if isNumeric(left) && isNumeric(right) {
			return numberType
		}
		return typesys.Any
	case "-", "*", "/", "%", "**", "<<", ">>", ">>>", "&", "|", "^":
		return numberType
	case "==", "===", "!=", "!==", "<", ">", "<=", ">=", "instanceof", "in":
		return booleanType
	case "&&", "||", "??":
		return typesys.NewUnion(left, right)
	}
	return typesys.Any
}

func isNumeric(t typesys.Type) bool {
	return classify.AllOf(t, func(t typesys.Type) bool {
		switch v := t.(type) {
		case *typesys.Primitive:
			return v.Name == typesys.PrimitiveNumber
		case *typesys.Literal:
			return v.Base() == typesys.PrimitiveNumber
		}
		return false
	})
}

// isRouteRegistration reports whether callee is app.get, router.post and the
// like, whose function arguments receive the request first.
func isRouteRegistration(callee estree.Node, typeOf func(estree.Node) typesys.Type) bool {
	m, ok := callee.(*estree.MemberExpression)
	if !ok {
		return false
	}
	name, ok := estree.PropertyName(m)
	if !ok || !routeMethods[name] {
		return false
	}
	if recv, ok := typeOf(m.Object).(*typesys.Nominative); ok && (recv.Name == expressApp.Name || recv.Name == expressRouter.Name) {
		return true
	}
	id, ok := m.Object.(*estree.Identifier)
	return ok && routeReceivers[id.Name]
}

// callResult is the type of a call or construction.
func (c *converter) callResult(call *estree.CallExpression) typesys.Type {
	calleeType := c.typeOf(call.Callee)
	if call.New {
		if isModel(calleeType) {
			return documentType
		}
		return typesys.Any
	}

	if classify.AnyOf(calleeType, classify.IsDynamicRequire) {
		if lit, ok := estree.Argument(call, 0).(*estree.Literal); ok {
			if name, ok := lit.Value.(string); ok {
				return moduleType(name)
			}
		}
		return typesys.Any
	}
	if n, ok := calleeType.(*typesys.Nominative); ok && n.Name == expressModule.Name {
		return expressApp
	}

	if m, ok := call.Callee.(*estree.MemberExpression); ok {
		name, _ := estree.PropertyName(m)
		recv := c.typeOf(m.Object)
		switch {
		case isExpressModule(recv) && name == "Router":
			return expressRouter
		case isMongoose(recv) && name == "model":
			return modelType
		case isModel(recv) && modelQueries[name]:
			return documentType
		}
	}

	for _, sig := range classify.CallSignatures(calleeType) {
		if sig.Return != nil {
			return sig.Return
		}
	}
	return typesys.Any
}

func isNamed(t typesys.Type, want *typesys.Nominative) bool {
	n, ok := t.(*typesys.Nominative)
	return ok && n.Name == want.Name
}

func isExpressModule(t typesys.Type) bool { return isNamed(t, expressModule) }
func isMongoose(t typesys.Type) bool      { return isNamed(t, mongooseModule) }
func isModel(t typesys.Type) bool         { return isNamed(t, modelType) }
