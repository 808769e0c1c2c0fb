// Command entrakitd runs the bearer-token validation gate as an HTTP
// service. Configuration is environment-driven:
//
//	AZURE_TENANT_ID        tenant (directory) id    (required)
//	AZURE_CLIENT_ID        expected audience        (required)
//	PORT                   listen port              (default 5000)
//	REDIS_ADDR             redis for rate limiting  (optional)
//	JWKS_REFRESH_INTERVAL  proactive key refresh    (optional, e.g. 15m)
package main

import (
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	authgin "github.com/entrakit/entrakit/adapters/gin"
	"github.com/entrakit/entrakit/adapters/ginutil"
	"github.com/entrakit/entrakit/config"
	jwkskit "github.com/entrakit/entrakit/jwks"
	memorylimiter "github.com/entrakit/entrakit/ratelimit/memory"
	redislimiter "github.com/entrakit/entrakit/ratelimit/redis"
	tokenkit "github.com/entrakit/entrakit/token"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.FromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	cache := jwkskit.NewCache(jwkskit.NewHTTPSource(cfg), jwkskit.WithLogger(log))
	if raw := os.Getenv("JWKS_REFRESH_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			log.WithError(err).Fatal("invalid JWKS_REFRESH_INTERVAL")
		}
		if err := cache.StartPeriodicRefresh(interval); err != nil {
			log.WithError(err).Fatal("starting periodic jwks refresh")
		}
		defer cache.StopPeriodicRefresh()
	}

	validator := tokenkit.NewValidator(cfg, cache, tokenkit.WithLogger(log))

	limits := map[string]memorylimiter.Limit{
		ginutil.RLValidate: {Limit: 300, Window: time.Minute},
		ginutil.RLInfo:     {Limit: 60, Window: time.Minute},
	}
	var limiter ginutil.RateLimiter = memorylimiter.New(limits)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		redisLimits := make(map[string]redislimiter.Limit, len(limits))
		for k, v := range limits {
			redisLimits[k] = redislimiter.Limit(v)
		}
		limiter = redislimiter.New(rdb, redisLimits)
	}

	router := authgin.NewRouter(authgin.RouterOptions{
		Config:    cfg,
		Validator: validator,
		Limiter:   limiter,
		Logger:    log,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	log.WithFields(logrus.Fields{
		"port":   port,
		"tenant": cfg.TenantID,
	}).Info("starting entrakitd")
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
