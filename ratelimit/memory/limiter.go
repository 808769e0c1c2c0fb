// Package memorylimiter is a single-node sliding-window rate limiter used to
// shield the token-validation endpoints when redis is not configured.
package memorylimiter

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Counters for one (bucket, key) pair. The sliding window is approximated by
// weighting the previous fixed window by its remaining overlap, which keeps
// state at two integers per pair.
type pairState struct {
	windowStart time.Time
	current     int
	previous    int
}

// Limiter approximates a sliding window per (bucket, key) pair.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	pairs  map[string]*pairState
	now    func() time.Time
}

// New constructs an in-memory limiter with the provided per-bucket limits.
// Unknown buckets fall back to the "default" entry, or 100/min.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits: limits,
		pairs:  make(map[string]*pairState),
		now:    time.Now,
	}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed implements the adapters' RateLimiter interface.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.limitFor(bucket)
	now := l.now()
	pairKey := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.pairs[pairKey]
	if !ok {
		p = &pairState{windowStart: now}
		l.pairs[pairKey] = p
	}

	// Roll windows forward.
	elapsed := now.Sub(p.windowStart)
	switch {
	case elapsed >= 2*lim.Window:
		p.windowStart = now
		p.previous = 0
		p.current = 0
		elapsed = 0
	case elapsed >= lim.Window:
		p.windowStart = p.windowStart.Add(lim.Window)
		p.previous = p.current
		p.current = 0
		elapsed -= lim.Window
	}

	overlap := 1 - float64(elapsed)/float64(lim.Window)
	estimated := float64(p.current) + float64(p.previous)*overlap
	if estimated >= float64(lim.Limit) {
		return false, nil
	}

	p.current++
	return true, nil
}

// Prune drops pairs idle for longer than their two-window horizon. Callers
// holding a long-lived limiter should invoke it occasionally.
func (l *Limiter) Prune() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, p := range l.pairs {
		bucket, _, _ := strings.Cut(k, ":")
		if now.Sub(p.windowStart) >= 2*l.limitFor(bucket).Window {
			delete(l.pairs, k)
		}
	}
}
