// Package authtest provides a mock identity provider for testing code that
// uses the validation pipeline. It serves an Azure-shaped discovery keys
// endpoint and signs tokens that verify against it, so tests never need a
// real tenant.
//
// Example:
//
//	p := authtest.NewProvider("tenant-a")
//	defer p.Close()
//
//	cfg, _ := config.New(config.Config{
//		TenantID:     "tenant-a",
//		ClientID:     "client-1",
//		ProviderHost: p.Host(),
//	})
//	tok := p.MintToken(cfg, authtest.WithSubject("user-1"))
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/entrakit/entrakit/config"
)

// Provider is a mock Azure AD tenant: an httptest server exposing
// /{tenant}/discovery/v2.0/keys plus a signer whose tokens verify against
// the served keys.
type Provider struct {
	tenantID string
	server   *httptest.Server
	fetches  atomic.Int64

	mu  sync.Mutex
	key *rsa.PrivateKey
	kid string
}

// NewProvider starts a mock provider for the given tenant with one RSA key.
// Call Close when done.
func NewProvider(tenantID string) *Provider {
	p := &Provider{tenantID: tenantID}
	p.rotate("key-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/"+tenantID+"/discovery/v2.0/keys", p.handleKeys)
	p.server = httptest.NewServer(mux)
	return p
}

// Host returns the provider's base URL, for config.Config.ProviderHost.
func (p *Provider) Host() string { return p.server.URL }

// Close shuts down the server.
func (p *Provider) Close() { p.server.Close() }

// FetchCount reports how many times the keys endpoint was hit. The
// single-flight property is asserted by comparing this against the number of
// concurrent validations that missed the cache.
func (p *Provider) FetchCount() int64 { return p.fetches.Load() }

// KID returns the current signing key id.
func (p *Provider) KID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kid
}

// RotateKey replaces the published key with a fresh one under a new kid.
// Tokens signed before rotation reference a kid no longer in the key set.
func (p *Provider) RotateKey(newKID string) {
	p.rotate(newKID)
}

func (p *Provider) rotate(kid string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("authtest: generate RSA key: " + err.Error())
	}
	p.mu.Lock()
	p.key, p.kid = key, kid
	p.mu.Unlock()
}

func (p *Provider) handleKeys(w http.ResponseWriter, _ *http.Request) {
	p.fetches.Add(1)
	p.mu.Lock()
	pub, kid := &p.key.PublicKey, p.kid
	p.mu.Unlock()

	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"kid": kid,
			"n":   b64BigInt(pub.N),
			"e":   b64BigInt(big.NewInt(int64(pub.E))),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// TokenOpt overrides a minted token's defaults.
type TokenOpt func(header map[string]any, claims jwt.MapClaims)

// WithSubject sets sub.
func WithSubject(sub string) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c["sub"] = sub }
}

// WithIssuer overrides iss.
func WithIssuer(iss string) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c["iss"] = iss }
}

// WithAudience overrides aud.
func WithAudience(aud string) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c["aud"] = aud }
}

// WithExpiry overrides exp.
func WithExpiry(t time.Time) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c["exp"] = t.Unix() }
}

// WithNotBefore sets nbf.
func WithNotBefore(t time.Time) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c["nbf"] = t.Unix() }
}

// WithKID overrides the kid header, e.g. to reference an unknown key.
func WithKID(kid string) TokenOpt {
	return func(h map[string]any, _ jwt.MapClaims) { h["kid"] = kid }
}

// WithClaim sets an arbitrary claim.
func WithClaim(name string, value any) TokenOpt {
	return func(_ map[string]any, c jwt.MapClaims) { c[name] = value }
}

// MintToken signs a token with the provider's current key. Defaults: the
// tenant's v2 issuer for this provider, the configured client id as
// audience, and a one-hour expiry.
func (p *Provider) MintToken(cfg *config.Config, opts ...TokenOpt) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": fmt.Sprintf("%s/%s/v2.0", p.Host(), p.tenantID),
		"aud": cfg.ClientID,
		"sub": "user-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	p.mu.Lock()
	key, kid := p.key, p.kid
	p.mu.Unlock()
	header := map[string]any{"kid": kid}

	for _, opt := range opts {
		opt(header, claims)
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	for k, v := range header {
		tok.Header[k] = v
	}
	signed, err := tok.SignedString(key)
	if err != nil {
		panic("authtest: sign token: " + err.Error())
	}
	return signed
}

// MintV1Token is MintToken with the tenant's v1-style sts issuer.
func (p *Provider) MintV1Token(cfg *config.Config, opts ...TokenOpt) string {
	v1 := fmt.Sprintf("https://sts.windows.net/%s/", p.tenantID)
	return p.MintToken(cfg, append([]TokenOpt{WithIssuer(v1)}, opts...)...)
}

func b64BigInt(i *big.Int) string {
	b := i.Bytes()
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
