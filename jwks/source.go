// Package jwkskit fetches and caches the provider's published signing keys.
// A Source retrieves the tenant's JWKS document; a Cache holds the parsed
// keys in memory and coalesces concurrent refreshes.
package jwkskit

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/entrakit/entrakit/config"
)

var (
	// ErrFetch indicates a transport-level failure or non-2xx status from
	// the provider. Retryable on the next cache miss.
	ErrFetch = errors.New("jwks: key fetch failed")

	// ErrMalformedKeySet indicates the provider's response body was not a
	// valid key-set document. Retryable on the next miss, after cooldown.
	ErrMalformedKeySet = errors.New("jwks: malformed key set")
)

// SigningKey is one public key from the provider's key set. Immutable once
// constructed; owned by the Cache and only read during verification.
type SigningKey struct {
	// KID is the key identifier tokens reference in their header.
	KID string
	// Alg is the JWS algorithm this key verifies (e.g. RS256). When the
	// published key omits alg it is inferred from the key material, so a
	// token can never downgrade the algorithm on its own.
	Alg string
	// Key is the raw public key (*rsa.PublicKey, *ecdsa.PublicKey, ...).
	Key any
}

// KeySet is the provider's key set at a point in time. Transient: built per
// fetch, committed wholesale to the Cache, then discarded.
type KeySet struct {
	Keys      []SigningKey
	FetchedAt time.Time
}

// Source fetches the current key set for the tenant it was built for.
type Source interface {
	Fetch(ctx context.Context) (KeySet, error)
}

// HTTPSource fetches the JWKS document from the tenant's discovery endpoint
// over HTTPS. The request carries a bounded timeout so a slow provider can
// never starve the validations waiting on a shared refresh.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource builds a Source for the configured tenant.
func NewHTTPSource(cfg *config.Config) *HTTPSource {
	return &HTTPSource{
		url:    cfg.KeysURL(),
		client: &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// Fetch performs the HTTPS GET and parses the body into usable key material.
// It mutates no shared state; committing the result is the caller's job.
func (s *HTTPSource) Fetch(ctx context.Context) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return KeySet{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return KeySet{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return KeySet{}, fmt.Errorf("%w: %s returned %s", ErrFetch, s.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return KeySet{}, fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	return ParseKeySet(body)
}

// ParseKeySet parses a JWKS document into signature-capable public keys.
// Keys marked for a non-signature use are skipped; keys without a kid are
// skipped since tokens could never select them.
func ParseKeySet(doc []byte) (KeySet, error) {
	set, err := jwk.Parse(doc)
	if err != nil {
		return KeySet{}, fmt.Errorf("%w: %v", ErrMalformedKeySet, err)
	}

	ks := KeySet{FetchedAt: time.Now()}
	for i := 0; i < set.Len(); i++ {
		k, _ := set.Key(i)
		if k.KeyID() == "" {
			continue
		}
		if use := k.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			continue
		}
		var raw any
		if err := k.Raw(&raw); err != nil {
			return KeySet{}, fmt.Errorf("%w: key %q: %v", ErrMalformedKeySet, k.KeyID(), err)
		}
		alg := ""
		if a := k.Algorithm(); a != nil {
			alg = a.String()
		}
		if alg == "" {
			alg = algorithmForKey(raw)
		}
		if alg == "" {
			// Key material we cannot verify with; leave it out rather
			// than carry a key the verifier would have to reject.
			continue
		}
		ks.Keys = append(ks.Keys, SigningKey{KID: k.KeyID(), Alg: alg, Key: raw})
	}
	return ks, nil
}

// algorithmForKey infers the JWS algorithm from key material when the
// published key omits alg. Azure AD's RSA keys often do.
func algorithmForKey(raw any) string {
	switch k := raw.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		switch k.Curve {
		case elliptic.P256():
			return "ES256"
		case elliptic.P384():
			return "ES384"
		case elliptic.P521():
			return "ES512"
		}
	case ed25519.PublicKey:
		return "EdDSA"
	}
	return ""
}
