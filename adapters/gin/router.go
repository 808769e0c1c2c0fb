package authgin

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/entrakit/entrakit/adapters/gin/handlers"
	"github.com/entrakit/entrakit/adapters/ginutil"
	"github.com/entrakit/entrakit/config"
	tokenkit "github.com/entrakit/entrakit/token"
)

// RouterOptions wires the gate's collaborators into the HTTP layer.
type RouterOptions struct {
	Config    *config.Config
	Validator *tokenkit.Validator
	// Limiter is optional; nil disables rate limiting.
	Limiter ginutil.RateLimiter
	Logger  logrus.FieldLogger
}

// NewRouter assembles the gate's endpoints:
//
//	GET /api/health     - liveness, unauthenticated
//	GET /api/helloworld - sample protected endpoint
//	GET /api/auth/info  - auth configuration advertisement, unauthenticated
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID())

	api := r.Group("/api")
	api.GET("/health", handlers.HandleHealthGET())
	api.GET("/auth/info", handlers.HandleAuthInfoGET(opts.Config, opts.Limiter))

	protected := api.Group("")
	protected.Use(RequireAuth(opts.Validator, opts.Logger))
	protected.GET("/helloworld", handlers.HandleHelloWorldGET(opts.Limiter))

	return r
}
