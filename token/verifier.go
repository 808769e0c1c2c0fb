package tokenkit

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwkskit "github.com/entrakit/entrakit/jwks"
)

// VerifySignature cryptographically verifies the token under the matched key
// and decodes its claims. The only algorithm accepted is the one the key
// declares; the algorithm named by the token is compared against it and
// otherwise ignored, so a token cannot steer verification toward a weaker
// method. No I/O: the result depends only on token bytes, key, and clock.
//
// Expiry is enforced here (exp is required, not optional) and re-checked in
// ValidateClaims rather than left to library defaults.
func VerifySignature(raw string, key jwkskit.SigningKey, now func() time.Time) (jwt.MapClaims, error) {
	if now == nil {
		now = time.Now
	}

	hdr, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	if hdr.Alg != key.Alg {
		return nil, fmt.Errorf("%w: token declares %q, key verifies %q", ErrUnsupportedAlgorithm, hdr.Alg, key.Alg)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{key.Alg}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	tok, err := parser.Parse(raw, func(*jwt.Token) (any, error) {
		return key.Key, nil
	})
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", ErrMalformedToken)
	}
	return claims, nil
}

// mapJWTError folds the library's error surface into the closed taxonomy.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
