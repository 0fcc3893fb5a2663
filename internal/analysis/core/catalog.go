// File: internal/analysis/core/catalog.go
package core

import (
	"sort"

	"github.com/xkilldash9x/typesentry/api/schemas"
)

// CheckID is the stable code of a finding kind.
type CheckID string

const (
	CheckJwtHardcodedSecret CheckID = "jwt-hardcoded-secret"
	CheckJwtDecode          CheckID = "jwt-decode"
	CheckJwtSecret          CheckID = "jwt-secret"
	CheckJwtOptsPrimitive   CheckID = "jwt-opts-primitive"
	CheckJwtPayloadKey      CheckID = "jwt-payload-key"
	CheckJwtExpo            CheckID = "jwt-expo"
	CheckOrmExpose          CheckID = "orm-expose"
	CheckRequireFromRequest CheckID = "require-from-request"
	CheckRequireRequestVar  CheckID = "require-request-var"
)

// CheckInfo is the static description of a CheckID used by reporters.
type CheckInfo struct {
	Name           string
	Description    string
	Severity       schemas.Severity
	CWE            string
	Recommendation string
}

// Catalog describes every finding code the detectors can emit.
var Catalog = map[CheckID]CheckInfo{
	CheckJwtHardcodedSecret: {
		Name:           "Hardcoded JWT Secret",
		Description:    "A JWT is signed or verified with a key that is a compile-time constant in every possible case.",
		Severity:       schemas.SeverityHigh,
		CWE:            "CWE-798",
		Recommendation: "Load signing keys from a secret manager or the environment and rotate the exposed key.",
	},
	CheckJwtDecode: {
		Name:           "JWT Decoded Without Verification",
		Description:    "The token payload is read with decode(), which does not check the signature.",
		Severity:       schemas.SeverityMedium,
		CWE:            "CWE-347",
		Recommendation: "Use verify() with a pinned algorithm list before trusting any claim.",
	},
	CheckJwtSecret: {
		Name:           "JWT Secret Passed As String",
		Description:    "A plain string is used as the JWT key.",
		Severity:       schemas.SeverityHigh,
		CWE:            "CWE-321",
		Recommendation: "Use a high-entropy key object and keep it out of source code.",
	},
	CheckJwtOptsPrimitive: {
		Name:           "JWT Verify Options Not An Object",
		Description:    "verify() receives a bare runtime primitive where an options object is expected, so algorithm and audience pinning are lost.",
		Severity:       schemas.SeverityMedium,
		CWE:            "CWE-20",
		Recommendation: "Pass an options object that pins algorithms, issuer and audience.",
	},
	CheckJwtPayloadKey: {
		Name:           "JWT Payload Keys",
		Description:    "Lists the properties embedded in a signed token so they can be reviewed for exposure.",
		Severity:       schemas.SeverityInfo,
		CWE:            "CWE-200",
		Recommendation: "Embed only identifiers the client is allowed to read; JWT payloads are encoded, not encrypted.",
	},
	CheckJwtExpo: {
		Name:           "JWT Payload Type",
		Description:    "Records the inferred type of a signed token payload for downstream exposure review.",
		Severity:       schemas.SeverityInfo,
		CWE:            "CWE-200",
		Recommendation: "Sign a narrow, explicitly constructed claims object.",
	},
	CheckOrmExpose: {
		Name:           "ORM Document Signed Into JWT",
		Description:    "A persistence-layer document is used as the JWT payload and may embed hidden fields such as password hashes.",
		Severity:       schemas.SeverityHigh,
		CWE:            "CWE-200",
		Recommendation: "Copy the required fields into a plain object before signing.",
	},
	CheckRequireFromRequest: {
		Name:           "Module Loaded From Request Data",
		Description:    "A dynamic require() receives a value read from the HTTP request.",
		Severity:       schemas.SeverityCritical,
		CWE:            "CWE-829",
		Recommendation: "Map request values onto a fixed allow-list of module paths.",
	},
	CheckRequireRequestVar: {
		Name:           "Attacker-Reachable Value Reused In require()",
		Description:    "The same non-constant value is used to load modules more than once.",
		Severity:       schemas.SeverityHigh,
		CWE:            "CWE-829",
		Recommendation: "Resolve module paths from constants or an allow-list.",
	},
}

// Lookup returns the catalog entry of id. Unknown IDs get an informational
// placeholder so reporters never drop a finding.
func Lookup(id CheckID) CheckInfo {
	if info, ok := Catalog[id]; ok {
		return info
	}
	return CheckInfo{Name: string(id), Severity: schemas.SeverityInfo}
}

// CheckIDs returns every cataloged ID in sorted order.
func CheckIDs() []CheckID {
	ids := make([]CheckID, 0, len(Catalog))
	for id := range Catalog {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
