package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/entrakit/entrakit/adapters/ginutil"
	"github.com/entrakit/entrakit/config"
)

type authInfoResponse struct {
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`
	AuthURL  string `json:"auth_url"`
	TokenURL string `json:"token_url"`
	Scope    string `json:"scope"`
}

// HandleAuthInfoGET advertises the auth configuration clients need to obtain
// a token. Advertisement only: the gate never drives the login flow itself.
func HandleAuthInfoGET(cfg *config.Config, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLInfo) {
			ginutil.TooMany(c)
			return
		}
		ep := cfg.OAuthEndpoint()
		c.JSON(http.StatusOK, authInfoResponse{
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			AuthURL:  ep.AuthURL,
			TokenURL: ep.TokenURL,
			Scope:    config.DefaultScope,
		})
	}
}
