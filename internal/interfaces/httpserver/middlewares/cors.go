package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Local dev frontends. Production traffic arrives same-origin through
// the gateway, so nothing else needs to be allowed here.
var allowedOrigins = map[string]struct{}{
	"http://localhost":      {},
	"http://localhost:3000": {},
	"http://localhost:8080": {},
	"http://127.0.0.1":      {},
}

// CORSMiddleware answers preflight requests and sets the CORS headers
// for the allowed development origins.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()

		if origin := c.Request.Header.Get("Origin"); origin != "" {
			if _, ok := allowedOrigins[origin]; ok {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id, X-User-Id, X-User-Name, X-User-Email")
		header.Set("Access-Control-Expose-Headers", "X-Request-Id")
		header.Set("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
