package jwkskit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound indicates the token references a kid absent from the key
// set even after a fresh fetch. The key was rotated out or never existed;
// the token must be rejected, not retried.
var ErrKeyNotFound = errors.New("jwks: no key matches kid")

// DefaultFailureCooldown is the minimum gap between refresh attempts after
// a failed fetch, so a broken provider response is not hammered on every
// miss.
const DefaultFailureCooldown = 10 * time.Second

// Cache holds the tenant's signing keys in process memory, keyed by kid.
// Reads of cached keys never block on a fetch. A miss triggers at most one
// in-flight fetch regardless of how many validations observe it; every
// refresh replaces the key map wholesale so rotated-out keys are dropped.
type Cache struct {
	source   Source
	log      logrus.FieldLogger
	cooldown time.Duration
	maxAge   time.Duration

	mu        sync.RWMutex
	keys      map[string]SigningKey
	fetchedAt time.Time
	lastErr   error
	lastErrAt time.Time

	group singleflight.Group
	cron  *cron.Cron
}

// CacheOpt configures a Cache.
type CacheOpt func(*Cache)

// WithLogger routes cache events (fetches, failures) to the given logger.
func WithLogger(log logrus.FieldLogger) CacheOpt {
	return func(c *Cache) { c.log = log }
}

// WithFailureCooldown overrides the post-failure refresh cooldown.
func WithFailureCooldown(d time.Duration) CacheOpt {
	return func(c *Cache) { c.cooldown = d }
}

// WithMaxAge forces a refresh when the cached set is older than d, so a
// revoked key still cached is tolerated for at most d. Zero (the default)
// means refresh only on miss.
func WithMaxAge(d time.Duration) CacheOpt {
	return func(c *Cache) { c.maxAge = d }
}

// NewCache builds an empty cache over the given source.
func NewCache(source Source, opts ...CacheOpt) *Cache {
	c := &Cache{
		source:   source,
		log:      logrus.StandardLogger(),
		cooldown: DefaultFailureCooldown,
		keys:     map[string]SigningKey{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the signing key for kid, fetching the key set when the kid is
// unknown or the cached set has aged out. A kid still absent after a fresh
// fetch yields ErrKeyNotFound; a failed fetch with nothing cached yields the
// fetch error.
func (c *Cache) Get(ctx context.Context, kid string) (SigningKey, error) {
	if key, ok, fresh := c.lookup(kid); ok && fresh {
		return key, nil
	}

	if err := c.Refresh(ctx); err != nil {
		// A stale hit still beats rejecting a token over provider
		// downtime; the key was valid as of the last good fetch.
		if key, ok, _ := c.lookup(kid); ok {
			return key, nil
		}
		return SigningKey{}, err
	}

	if key, ok, _ := c.lookup(kid); ok {
		return key, nil
	}
	return SigningKey{}, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

// Refresh fetches the key set and replaces the cache contents wholesale.
// Concurrent callers coalesce into a single fetch; a caller whose context
// ends stops waiting, but the in-flight fetch completes and commits for the
// remaining waiters.
func (c *Cache) Refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (any, error) {
		return nil, c.refresh()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// refresh runs outside any request context: the fetch is bounded by the
// source's own timeout and its result serves every waiter, not just the
// caller that happened to trigger it.
func (c *Cache) refresh() error {
	c.mu.RLock()
	lastErr, lastErrAt := c.lastErr, c.lastErrAt
	c.mu.RUnlock()
	if lastErr != nil && time.Since(lastErrAt) < c.cooldown {
		return fmt.Errorf("jwks: refresh on cooldown: %w", lastErr)
	}

	start := time.Now()
	ks, err := c.source.Fetch(context.Background())
	if err != nil {
		c.mu.Lock()
		c.lastErr, c.lastErrAt = err, time.Now()
		c.mu.Unlock()
		c.log.WithError(err).Warn("jwks refresh failed")
		return err
	}

	keys := make(map[string]SigningKey, len(ks.Keys))
	for _, k := range ks.Keys {
		keys[k.KID] = k
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = ks.FetchedAt
	c.lastErr = nil
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"keys":     len(keys),
		"duration": time.Since(start),
	}).Debug("jwks refreshed")
	return nil
}

// lookup reports the key, whether it exists, and whether the cached set is
// still within max age.
func (c *Cache) lookup(kid string) (SigningKey, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	fresh := c.maxAge <= 0 || time.Since(c.fetchedAt) <= c.maxAge
	return key, ok, fresh
}

// StartPeriodicRefresh schedules a proactive refresh every interval on a
// background scheduler, independent of the request path. Optional; without
// it the cache refreshes only on miss (or max age). Returns an error if the
// interval is not positive or a scheduler is already running.
func (c *Cache) StartPeriodicRefresh(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("jwks: refresh interval must be positive")
	}
	if c.cron != nil {
		return errors.New("jwks: periodic refresh already started")
	}
	cr := cron.New()
	if _, err := cr.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := c.Refresh(context.Background()); err != nil {
			c.log.WithError(err).Warn("periodic jwks refresh failed")
		}
	}); err != nil {
		return err
	}
	cr.Start()
	c.cron = cr
	return nil
}

// StopPeriodicRefresh stops the background scheduler, if any.
func (c *Cache) StopPeriodicRefresh() {
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
}
