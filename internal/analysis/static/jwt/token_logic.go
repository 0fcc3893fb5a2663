// internal/analysis/static/jwt/token_logic.go
package jwt

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/go-homedir"
)

// MinSecretLength is the shortest HMAC secret not considered weak by length alone.
const MinSecretLength = 8

// defaultWeakSecrets is a list of common weak secrets seen in signing code and
// used for cracking statically known tokens.
var defaultWeakSecrets = []string{
	"secret", "password", "123456", "12345678", "admin", "test", "root", "qwerty", "changeme",
	"secretkey", "jwtsecret", "mysecret", "default", "key", "privatekey", "development",
	"production", "supersecret", "password123", "topsecret", "shhhhh", "your-256-bit-secret",
}

var sensitiveKeywords = []string{
	"password", "pwd", "secret", "apikey", "api_key", "ssn", "creditcard",
	"privatekey", "credential", "auth_token", "access_key",
}

var (
	// parserUnverified reads token contents without checking the signature.
	parserUnverified = jwt.NewParser()

	// parserSkipClaimsValidation verifies signatures while ignoring exp/nbf.
	parserSkipClaimsValidation = jwt.NewParser(jwt.WithoutClaimsValidation())
)

// TokenInsight describes a token string that appears literally in source.
type TokenInsight struct {
	Algorithm string
	// Claims holds the sorted claim names.
	Claims            []string
	AlgNone           bool
	MissingExpiration bool
	SensitiveClaims   []string
	// Verified is set when a literal secret was supplied and the signature
	// checks out against it.
	Verified bool
	// CrackedSecret is the dictionary entry that verifies the token, if any.
	CrackedSecret string
}

// Inspector judges literal secrets and tokens found at JWT call sites.
type Inspector struct {
	weak    map[string]struct{}
	ordered []string
}

// NewInspector builds an inspector from the built-in dictionary plus extra.
func NewInspector(extra ...string) *Inspector {
	i := &Inspector{weak: make(map[string]struct{})}
	i.add(defaultWeakSecrets...)
	i.add(extra...)
	return i
}

// LoadInspector is NewInspector plus the entries of dictionaryFile, one
// secret per line. Blank lines and lines starting with # are skipped.
func LoadInspector(extra []string, dictionaryFile string) (*Inspector, error) {
	i := NewInspector(extra...)
	if dictionaryFile == "" {
		return i, nil
	}
	path, err := homedir.Expand(dictionaryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to expand dictionary path: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weak secret dictionary: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i.add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weak secret dictionary: %w", err)
	}
	return i, nil
}

func (i *Inspector) add(secrets ...string) {
	for _, s := range secrets {
		key := strings.ToLower(s)
		if _, dup := i.weak[key]; dup {
			continue
		}
		i.weak[key] = struct{}{}
		i.ordered = append(i.ordered, s)
	}
}

// Size returns the number of dictionary entries.
func (i *Inspector) Size() int { return len(i.ordered) }

// IsWeak reports whether secret is in the dictionary or too short to resist
// offline guessing.
func (i *Inspector) IsWeak(secret string) bool {
	if len(secret) < MinSecretLength {
		return true
	}
	_, ok := i.weak[strings.ToLower(secret)]
	return ok
}

// InspectToken parses a token without verification. When secret is non-nil
// and the token is HMAC signed, the signature is checked against it;
// otherwise HMAC tokens are tried against the dictionary.
func (i *Inspector) InspectToken(tokenString string, secret *string) (TokenInsight, error) {
	var insight TokenInsight

	token, _, err := parserUnverified.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return insight, fmt.Errorf("failed to parse token unverified: %w", err)
	}

	claims, _ := token.Claims.(jwt.MapClaims)
	for name := range claims {
		insight.Claims = append(insight.Claims, name)
	}
	sort.Strings(insight.Claims)
	insight.SensitiveClaims = sensitiveClaims(claims)
	_, hasExp := claims["exp"]
	insight.MissingExpiration = !hasExp

	alg, _ := token.Header["alg"].(string)
	insight.Algorithm = alg
	insight.AlgNone = strings.EqualFold(alg, "none")

	if !strings.HasPrefix(alg, "HS") {
		return insight, nil
	}
	if secret != nil {
		insight.Verified = verifies(tokenString, *secret)
		return insight, nil
	}
	for _, candidate := range i.ordered {
		if verifies(tokenString, candidate) {
			insight.CrackedSecret = candidate
			break
		}
	}
	return insight, nil
}

func verifies(tokenString, secret string) bool {
	token, err := parserSkipClaimsValidation.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Only HMAC keys are accepted, so a public key can never be confused for a secret.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	return err == nil && token.Valid
}

func sensitiveClaims(claims jwt.MapClaims) []string {
	var out []string
	for key := range claims {
		lowerKey := strings.ToLower(key)
		for _, keyword := range sensitiveKeywords {
			if strings.Contains(lowerKey, keyword) {
				out = append(out, key)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
