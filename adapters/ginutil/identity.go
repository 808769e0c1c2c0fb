package ginutil

import (
	"github.com/gin-gonic/gin"

	tokenkit "github.com/entrakit/entrakit/token"
)

// CtxIdentity is the gin context key under which the auth middleware stores
// the validated identity.
const CtxIdentity = "auth.identity"

// Identity returns the validated identity set by the auth middleware, if
// the request passed the gate.
func Identity(c *gin.Context) (*tokenkit.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*tokenkit.Identity)
	return id, ok
}
