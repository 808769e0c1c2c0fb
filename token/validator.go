package tokenkit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/entrakit/entrakit/config"
	jwkskit "github.com/entrakit/entrakit/jwks"
)

// KeyResolver resolves a kid to a signing key, fetching from the provider on
// a miss. *jwkskit.Cache satisfies it.
type KeyResolver interface {
	Get(ctx context.Context, kid string) (jwkskit.SigningKey, error)
}

// Validator runs the full validation pipeline for one token:
//
//	parse header → resolve key → verify signature → validate claims
//
// Any failure terminates the call; nothing is retried against the same
// token. Validators are safe for concurrent use; the key cache is the only
// shared state.
type Validator struct {
	cfg  *config.Config
	keys KeyResolver
	log  logrus.FieldLogger
	now  func() time.Time
}

// ValidatorOpt configures a Validator.
type ValidatorOpt func(*Validator)

// WithLogger routes pipeline events to the given logger. Rejection causes,
// including expected/actual claim values, are logged here and must not be
// surfaced to clients.
func WithLogger(log logrus.FieldLogger) ValidatorOpt {
	return func(v *Validator) { v.log = log }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ValidatorOpt {
	return func(v *Validator) { v.now = now }
}

// NewValidator builds a pipeline over the given configuration and key
// resolver.
func NewValidator(cfg *config.Config, keys KeyResolver, opts ...ValidatorOpt) *Validator {
	v := &Validator{
		cfg:  cfg,
		keys: keys,
		log:  logrus.StandardLogger(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate authenticates one bearer token and returns the caller's identity.
// The context bounds any key fetch triggered by a cache miss; a canceled
// caller stops waiting while the fetch itself completes for other waiters.
func (v *Validator) Validate(ctx context.Context, raw string) (*Identity, error) {
	hdr, err := ParseHeader(raw)
	if err != nil {
		v.log.WithError(err).Debug("token rejected: malformed")
		return nil, err
	}

	key, err := v.keys.Get(ctx, hdr.KID)
	if err != nil {
		v.log.WithError(err).WithField("kid", hdr.KID).Warn("token rejected: key resolution failed")
		return nil, err
	}

	claims, err := VerifySignature(raw, key, v.now)
	if err != nil {
		v.log.WithError(err).WithField("kid", hdr.KID).Info("token rejected: verification failed")
		return nil, err
	}

	id, err := ValidateClaims(claims, v.cfg, v.now())
	if err != nil {
		v.log.WithError(err).Info("token rejected: claim validation failed")
		return nil, err
	}

	v.log.WithField("sub", id.Subject).Debug("token accepted")
	return id, nil
}
