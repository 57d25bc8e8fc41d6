package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/response"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "userID"
)

// BearerAuth resolves the Authorization header into an Identity. Every
// failure, whatever its cause, gets the same 401 body.
func BearerAuth(auth *application.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.AuthenticateHeader(c.GetHeader("Authorization"))
		if err != nil {
			AbortUnauthorized(c)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Set(CtxUserIDKey, id.Subject)
		c.Next()
	}
}

// AbortUnauthorized writes the single 401 response used for every credential failure.
func AbortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
}

// IdentityFrom returns the identity BearerAuth stored on c.
func IdentityFrom(c *gin.Context) (entity.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return entity.Identity{}, false
	}
	id, ok := v.(entity.Identity)
	return id, ok
}
