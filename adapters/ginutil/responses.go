// Package ginutil holds small helpers shared by gin handlers: JSON error
// responders and the rate-limiter hook. Client-facing error bodies are
// machine codes only; rejection detail stays in server logs.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Unauthorized aborts with 401 and a machine-readable code. Codes are
// deliberately coarse ("invalid_token", "missing_credentials"): the precise
// rejection cause is for logs, not for untrusted clients.
func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

// BadRequest aborts with 400 and a machine-readable code.
func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

// TooMany aborts with 429.
func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

// ServerErr aborts with 500 and a machine-readable code.
func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}
