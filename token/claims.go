package tokenkit

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/entrakit/entrakit/config"
)

// Identity is the authenticated caller extracted from a fully validated
// token. Claims holds the raw claim set for anything downstream needs beyond
// the named fields.
type Identity struct {
	Subject           string
	Name              string
	Email             string
	PreferredUsername string
	Claims            jwt.MapClaims
}

// ValidateClaims checks a verified claim set against the configured tenant
// and client:
//
//   - iss must be a member of the enumerated accepted issuer set (Azure AD
//     v1 and v2 forms). Exact string equality; a prefix or suffix of a valid
//     issuer is not a valid issuer.
//   - aud must equal the client id exactly, case-sensitively.
//   - exp and nbf, where present, must bracket now. exp is re-checked here
//     on purpose: time enforcement is not delegated to verifier defaults.
//
// Only call this with claims returned by VerifySignature.
func ValidateClaims(claims jwt.MapClaims, cfg *config.Config, now time.Time) (*Identity, error) {
	issuer, _ := claims["iss"].(string)
	accepted := cfg.AcceptedIssuers()
	if !containsExact(accepted, issuer) {
		return nil, invalidIssuer(accepted, issuer)
	}

	audience, err := singleAudience(claims["aud"])
	if err != nil {
		return nil, err
	}
	if audience != cfg.ClientID {
		return nil, invalidAudience(cfg.ClientID, audience)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: bad exp claim", ErrMalformedToken)
	}
	if exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}
	if now.After(exp.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Time.UTC().Format(time.RFC3339))
	}
	nbf, err := claims.GetNotBefore()
	if err != nil {
		return nil, fmt.Errorf("%w: bad nbf claim", ErrMalformedToken)
	}
	if nbf != nil && now.Before(nbf.Time) {
		return nil, fmt.Errorf("%w: not valid before %s", ErrTokenNotYetValid, nbf.Time.UTC().Format(time.RFC3339))
	}

	id := &Identity{Claims: claims}
	id.Subject, _ = claims["sub"].(string)
	id.Name, _ = claims["name"].(string)
	id.Email, _ = claims["email"].(string)
	id.PreferredUsername, _ = claims["preferred_username"].(string)
	return id, nil
}

func containsExact(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// singleAudience extracts the audience as a single string. Azure AD tokens
// carry one audience; a list form is accepted only when it has exactly one
// entry, so exact-match semantics are preserved either way.
func singleAudience(aud any) (string, error) {
	switch v := aud.(type) {
	case string:
		return v, nil
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
		}
	case []string:
		if len(v) == 1 {
			return v[0], nil
		}
	}
	return "", fmt.Errorf("%w: audience is absent or multi-valued", ErrInvalidAudience)
}
