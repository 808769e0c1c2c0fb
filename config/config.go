// Package config holds the immutable validation configuration shared by all
// concurrent token validations. It is constructed once at startup and never
// mutated afterwards; there is no process-wide cached settings object.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const (
	// DefaultProviderHost is the Azure AD login host used to build the
	// discovery keys URL and the v2 issuer.
	DefaultProviderHost = "https://login.microsoftonline.com"

	// DefaultFetchTimeout bounds a single JWKS fetch. An unbounded call
	// would starve every request waiting on the same cold cache.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultScope is the scope advertised by the auth-info endpoint.
	DefaultScope = "openid email profile"
)

var (
	// ErrMissingTenantID is returned when AZURE_TENANT_ID is unset.
	ErrMissingTenantID = errors.New("config: missing tenant id")
	// ErrMissingClientID is returned when AZURE_CLIENT_ID is unset.
	ErrMissingClientID = errors.New("config: missing client id")
)

// Config is the validation configuration: the tenant whose keys are trusted
// and the client id every token's audience must match exactly.
type Config struct {
	// TenantID is the Azure AD tenant (directory) identifier.
	TenantID string
	// ClientID is the expected audience. Matching is exact and
	// case-sensitive; no prefix or substring logic.
	ClientID string

	// ProviderHost overrides the login host, mainly for tests pointing at
	// a mock provider. Defaults to DefaultProviderHost.
	ProviderHost string

	// FetchTimeout bounds each JWKS fetch. Defaults to DefaultFetchTimeout.
	FetchTimeout time.Duration
}

// New validates and normalizes a Config. Missing tenant or client id is a
// fatal startup misconfiguration, never a per-request error.
func New(cfg Config) (*Config, error) {
	cfg.TenantID = strings.TrimSpace(cfg.TenantID)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.ProviderHost == "" {
		cfg.ProviderHost = DefaultProviderHost
	}
	cfg.ProviderHost = strings.TrimRight(cfg.ProviderHost, "/")
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &cfg, nil
}

// FromEnv builds a Config from AZURE_TENANT_ID and AZURE_CLIENT_ID.
func FromEnv() (*Config, error) {
	return New(Config{
		TenantID:     os.Getenv("AZURE_TENANT_ID"),
		ClientID:     os.Getenv("AZURE_CLIENT_ID"),
		ProviderHost: os.Getenv("AZURE_PROVIDER_HOST"),
	})
}

// KeysURL returns the tenant's JWKS discovery endpoint.
func (c *Config) KeysURL() string {
	return fmt.Sprintf("%s/%s/discovery/v2.0/keys", c.ProviderHost, c.TenantID)
}

// AcceptedIssuers enumerates every issuer string accepted for this tenant.
// Azure AD emits a v1-style issuer (sts.windows.net) for v1 tokens and a
// v2-style issuer for v2 tokens; both remain accepted. Membership in this
// set is checked by exact string equality only.
func (c *Config) AcceptedIssuers() []string {
	return []string{
		fmt.Sprintf("https://sts.windows.net/%s/", c.TenantID),
		fmt.Sprintf("%s/%s/v2.0", c.ProviderHost, c.TenantID),
	}
}

// OAuthEndpoint returns the tenant's authorize/token endpoints for
// advertisement purposes (the gate itself never drives a login flow).
func (c *Config) OAuthEndpoint() oauth2.Endpoint {
	if c.ProviderHost != DefaultProviderHost {
		return oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", c.ProviderHost, c.TenantID),
			TokenURL: fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.ProviderHost, c.TenantID),
		}
	}
	return microsoft.AzureADEndpoint(c.TenantID)
}
