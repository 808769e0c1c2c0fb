package tokenkit

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwkskit "github.com/entrakit/entrakit/jwks"
)

var testRSAKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

func testSigningKey() jwkskit.SigningKey {
	return jwkskit.SigningKey{KID: "k1", Alg: "RS256", Key: &testRSAKey.PublicKey}
}

func signRS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(testRSAKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func baseClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": "https://sts.windows.net/t1/",
		"aud": "c1",
		"sub": "user-1",
		"exp": now.Add(time.Hour).Unix(),
	}
}

func TestVerifySignatureAccepts(t *testing.T) {
	now := time.Now()
	raw := signRS256(t, baseClaims(now))

	claims, err := VerifySignature(raw, testSigningKey(), nil)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "user-1" {
		t.Errorf("sub = %q", sub)
	}
}

func TestVerifySignatureRejectsTamperedSignature(t *testing.T) {
	raw := signRS256(t, baseClaims(time.Now()))

	// Flip one bit in the signature segment.
	i := strings.LastIndex(raw, ".") + 1
	flipped := raw[i]
	if flipped == 'A' {
		flipped = 'B'
	} else {
		flipped = 'A'
	}
	tampered := raw[:i] + string(flipped) + raw[i+1:]

	if _, err := VerifySignature(tampered, testSigningKey(), nil); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("want ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	key := jwkskit.SigningKey{KID: "k1", Alg: "RS256", Key: &other.PublicKey}
	raw := signRS256(t, baseClaims(time.Now()))

	if _, err := VerifySignature(raw, key, nil); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("want ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsExpired(t *testing.T) {
	claims := baseClaims(time.Now())
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	raw := signRS256(t, claims)

	if _, err := VerifySignature(raw, testSigningKey(), nil); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingExp(t *testing.T) {
	claims := baseClaims(time.Now())
	delete(claims, "exp")
	raw := signRS256(t, claims)

	if _, err := VerifySignature(raw, testSigningKey(), nil); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("want ErrMalformedToken for missing exp, got %v", err)
	}
}

// A token must not choose its own verification algorithm: an HS256 token
// presented against an RSA key is rejected before any crypto runs.
func TestVerifySignatureRejectsAlgorithmConfusion(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(time.Now()))
	tok.Header["kid"] = "k1"
	raw, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifySignature(raw, testSigningKey(), nil); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("want ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestVerifySignatureHonorsClock(t *testing.T) {
	issued := time.Now()
	raw := signRS256(t, baseClaims(issued))

	future := func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := VerifySignature(raw, testSigningKey(), future); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("want ErrTokenExpired under future clock, got %v", err)
	}

	within := func() time.Time { return issued.Add(30 * time.Minute) }
	if _, err := VerifySignature(raw, testSigningKey(), within); err != nil {
		t.Errorf("within window: %v", err)
	}
}
