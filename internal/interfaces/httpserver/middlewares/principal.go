package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutor-server/services/chat-api/internal/domain/user"
)

const (
	userIDHeader    = "X-User-Id"
	userNameHeader  = "X-User-Name"
	userEmailHeader = "X-User-Email"

	principalContextKey = "principal"
)

// Principal resolves the calling user from the gateway-provided identity
// headers. Authentication itself happens upstream; this service trusts
// X-User-Id and lazily creates the local user row on first sight.
func Principal(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalID := c.GetHeader(userIDHeader)
		if externalID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		u, err := users.EnsureUser(
			c.Request.Context(),
			externalID,
			c.GetHeader(userNameHeader),
			c.GetHeader(userEmailHeader),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity resolution failed"})
			return
		}

		c.Set(principalContextKey, u)
		c.Next()
	}
}

// PrincipalFromContext returns the resolved user for the current request.
func PrincipalFromContext(c *gin.Context) (*user.User, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	u, ok := val.(*user.User)
	return u, ok
}
