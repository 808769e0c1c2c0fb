package tokenkit

import (
	"errors"
	"fmt"
	"strings"
)

// The pipeline's failure modes form a closed set. Every rejection maps to
// exactly one of these, distinguishable with errors.Is for logging and
// metrics; none of them is retried within a validation call.
var (
	// ErrMalformedToken: the token does not have the expected structural
	// shape (segment count, undecodable header, undecodable payload).
	ErrMalformedToken = errors.New("token: malformed token")

	// ErrUnsupportedAlgorithm: the token declares an algorithm other than
	// the one the matched key verifies with. Covers the downgrade case
	// where an attacker swaps an asymmetric alg for a symmetric one.
	ErrUnsupportedAlgorithm = errors.New("token: unsupported signing algorithm")

	// ErrInvalidSignature: the signature does not verify under the
	// matched key.
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrTokenExpired: the current time is past the exp claim.
	ErrTokenExpired = errors.New("token: token expired")

	// ErrTokenNotYetValid: the current time is before the nbf claim.
	ErrTokenNotYetValid = errors.New("token: token not yet valid")

	// ErrInvalidIssuer: the iss claim is not in the accepted issuer set.
	ErrInvalidIssuer = errors.New("token: invalid issuer")

	// ErrInvalidAudience: the aud claim does not equal the client id.
	ErrInvalidAudience = errors.New("token: invalid audience")
)

// ClaimMismatchError carries the expected and actual claim values for
// server-side logs. It matches its sentinel under errors.Is; callers must
// never echo its message to untrusted clients.
type ClaimMismatchError struct {
	Claim    string
	Expected []string
	Actual   string

	sentinel error
}

func (e *ClaimMismatchError) Error() string {
	return fmt.Sprintf("%v: %s %q, want %s",
		e.sentinel, e.Claim, e.Actual, strings.Join(e.Expected, " or "))
}

func (e *ClaimMismatchError) Is(target error) bool { return target == e.sentinel }

func (e *ClaimMismatchError) Unwrap() error { return e.sentinel }

func invalidIssuer(expected []string, actual string) error {
	return &ClaimMismatchError{Claim: "iss", Expected: expected, Actual: actual, sentinel: ErrInvalidIssuer}
}

func invalidAudience(expected, actual string) error {
	return &ClaimMismatchError{Claim: "aud", Expected: []string{expected}, Actual: actual, sentinel: ErrInvalidAudience}
}
