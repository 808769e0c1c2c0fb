// Package tokenkit is the token-verification pipeline: structural header
// parsing, signature verification against a cached provider key, and
// issuer/audience/time claim validation.
package tokenkit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// UnverifiedHeader is the token header read before any trust decision.
// It exists only to select which key to try; nothing in it may feed an
// authorization decision.
type UnverifiedHeader struct {
	Alg string `json:"alg"`
	KID string `json:"kid"`
	Typ string `json:"typ"`
}

// ParseHeader structurally decodes the header segment of a compact-serialized
// token. Pure and read-only: it neither verifies nor decodes claims.
func ParseHeader(raw string) (UnverifiedHeader, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return UnverifiedHeader{}, fmt.Errorf("%w: want 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	seg, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return UnverifiedHeader{}, fmt.Errorf("%w: undecodable header segment", ErrMalformedToken)
	}
	var hdr UnverifiedHeader
	if err := json.Unmarshal(seg, &hdr); err != nil {
		return UnverifiedHeader{}, fmt.Errorf("%w: header is not valid JSON", ErrMalformedToken)
	}
	if hdr.KID == "" {
		return UnverifiedHeader{}, fmt.Errorf("%w: header missing kid", ErrMalformedToken)
	}
	return hdr, nil
}
