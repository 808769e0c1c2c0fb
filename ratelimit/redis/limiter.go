// Package redislimiter is a redis-backed sliding-window rate limiter for
// multi-node deployments of the gate.
package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

const opTimeout = 2 * time.Second

// Limiter tracks request timestamps per (bucket, key) pair in a redis ZSET.
type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

// New constructs a redis limiter with the provided per-bucket limits.
// Unknown buckets fall back to the "default" entry, or 100/min.
func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, limits: limits}
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

// AllowNamed implements the adapters' RateLimiter interface. Each call is
// bounded by its own short timeout so a slow redis cannot stall requests.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	lim := l.limitFor(bucket)
	now := time.Now().UnixMilli()
	start := now - lim.Window.Milliseconds()
	zkey := fmt.Sprintf("rl:%s:%s", bucket, key)

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, zkey, "0", fmt.Sprintf("%d", start))
	countCmd := pipe.ZCard(ctx, zkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}

	if countCmd.Val() >= int64(lim.Limit) {
		return false, nil
	}

	// Record the request and bound the key's lifetime to its window.
	add := l.rdb.TxPipeline()
	add.ZAdd(ctx, zkey, redis.Z{Score: float64(now), Member: now})
	add.Expire(ctx, zkey, lim.Window+time.Second)
	if _, err := add.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return true, nil
}
