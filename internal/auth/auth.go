// Package auth models the authentication challenges zou understands and
// builds the matching Authorization header values.
package auth

import (
	"encoding/base64"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindBasic
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBasic:
		return "Basic"
	default:
		return "unsupported"
	}
}

// Challenge is a parsed WWW-Authenticate header. Scheme keeps the name sent
// by the server so unsupported schemes can be reported verbatim.
type Challenge struct {
	Kind   Kind
	Scheme string
	Realm  string
}

// ParseChallenge reads the first challenge of a WWW-Authenticate value.
func ParseChallenge(header string) Challenge {
	header = strings.TrimSpace(header)
	if header == "" {
		return Challenge{Kind: KindNone}
	}
	scheme, params, _ := strings.Cut(header, " ")
	challenge := Challenge{Kind: KindUnsupported, Scheme: scheme, Realm: realmOf(params)}
	if strings.EqualFold(scheme, "basic") {
		challenge.Kind = KindBasic
	}
	return challenge
}

func realmOf(params string) string {
	for _, param := range strings.Split(params, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "realm") {
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return ""
}

type Credentials struct {
	Username string
	Password string
}

// BasicHeader returns the Authorization value for HTTP Basic auth.
func BasicHeader(creds Credentials) string {
	token := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	return "Basic " + token
}
