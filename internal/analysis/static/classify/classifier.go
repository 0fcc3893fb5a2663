package classify

import (
	"slices"
	"strings"

	"github.com/xkilldash9x/typesentry/internal/analysis/static/typesys"
)

// Type packages of the recognized libraries.
const (
	PackageJsonWebToken   = "@types/jsonwebtoken"
	PackageJose           = "jose"
	PackagePanvaJose      = "@panva/jose"
	PackageMongooseTypes  = "@types/mongoose"
	PackageMongoose       = "mongoose"
	PackageNode           = "@types/node"
	PackageExpressCore    = "@types/express-serve-static-core"
	PackageExpress        = "@types/express"
	jsonWebTokenExportTag = "jsonwebtoken"
)

// SecretParameterNames are the parameter names jsonwebtoken uses for the
// signing and verification key.
var SecretParameterNames = []string{"secretOrPrivateKey", "secretOrPublicKey"}

var (
	josePackages    = []string{PackageJose, PackagePanvaJose}
	mongoosePackage = []string{PackageMongooseTypes, PackageMongoose}
	expressPackages = []string{PackageExpressCore, PackageExpress}
	requireNames    = []string{"NodeRequire", "NodeRequireFunction", "Require"}
)

func nominal(t typesys.Type) (typesys.QualifiedName, bool) {
	n, ok := t.(*typesys.Nominative)
	if !ok {
		return typesys.QualifiedName{}, false
	}
	return n.Name, true
}

func isJsonWebToken(q typesys.QualifiedName) bool {
	return q.Package == PackageJsonWebToken && strings.Contains(q.Name, jsonWebTokenExportTag)
}

// IsJwtSigner matches the jsonwebtoken module object and the JOSE JWT/JWS exports.
func IsJwtSigner(t typesys.Type) bool {
	q, ok := nominal(t)
	if !ok {
		return false
	}
	return isJsonWebToken(q) || (slices.Contains(josePackages, q.Package) && (q.Name == "JWT" || q.Name == "JWS"))
}

// IsJwtOrJwkNamespace extends IsJwtSigner with the JOSE JWK export.
func IsJwtOrJwkNamespace(t typesys.Type) bool {
	return IsJwtSigner(t) || IsJwkKeyFactory(t)
}

// IsJwkKeyFactory matches the JOSE JWK export.
func IsJwkKeyFactory(t typesys.Type) bool {
	q, ok := nominal(t)
	return ok && slices.Contains(josePackages, q.Package) && q.Name == "JWK"
}

// IsOrmDocument matches the mongoose Document type.
func IsOrmDocument(t typesys.Type) bool {
	q, ok := nominal(t)
	return ok && slices.Contains(mongoosePackage, q.Package) && q.Name == "Document"
}

// IsDynamicRequire matches the Node.js require function type.
func IsDynamicRequire(t typesys.Type) bool {
	q, ok := nominal(t)
	return ok && q.Package == PackageNode && slices.Contains(requireNames, q.Name)
}

// IsWebRequestObject matches the express Request type.
func IsWebRequestObject(t typesys.Type) bool {
	q, ok := nominal(t)
	return ok && slices.Contains(expressPackages, q.Package) && q.Name == "Request"
}

// BelongsToJwtLibrary reports whether t is declared by the jsonwebtoken typings.
func BelongsToJwtLibrary(t typesys.Type) bool {
	return BelongsToPackage(t, PackageJsonWebToken)
}
