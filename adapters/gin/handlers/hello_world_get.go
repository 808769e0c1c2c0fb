package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/entrakit/entrakit/adapters/ginutil"
)

type helloWorldUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type helloWorldResponse struct {
	Message       string         `json:"message"`
	User          helloWorldUser `json:"user"`
	Authenticated bool           `json:"authenticated"`
}

// HandleHelloWorldGET is the sample protected endpoint. It runs behind
// RequireAuth, so an identity is always present here.
func HandleHelloWorldGET(rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLValidate) {
			ginutil.TooMany(c)
			return
		}
		id, ok := ginutil.Identity(c)
		if !ok {
			ginutil.Unauthorized(c, "missing_credentials")
			return
		}
		name := id.Name
		if name == "" {
			name = id.Subject
		}
		c.JSON(http.StatusOK, helloWorldResponse{
			Message:       "Hello, World!",
			User:          helloWorldUser{Name: name, Email: id.Email},
			Authenticated: true,
		})
	}
}
