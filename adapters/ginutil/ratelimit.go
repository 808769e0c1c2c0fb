package ginutil

import "github.com/gin-gonic/gin"

// Rate-limit bucket names used by the gate's endpoints.
const (
	// RLValidate covers endpoints that run the token-validation pipeline.
	RLValidate = "validate"
	// RLInfo covers the unauthenticated info endpoints.
	RLInfo = "info"
)

// RateLimiter is the sliding-window limiter contract the adapters consume.
// Implementations live in ratelimit/memory and ratelimit/redis.
type RateLimiter interface {
	// AllowNamed reports whether one more request is allowed for the
	// (bucket, key) pair.
	AllowNamed(bucket, key string) (bool, error)
}

// AllowNamed checks the limiter for the calling client, keyed by client IP.
// A nil limiter allows everything; a limiter error fails open so a broken
// redis never takes authentication down with it.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}
