package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader     = "X-Request-Id"
	requestIDContextKey = "request_id"
)

// RequestID propagates the gateway's X-Request-Id header, minting a fresh
// UUID when the request arrives without one. The id is echoed on the
// response and stored in the gin context for log and error correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Set(requestIDContextKey, id)
		c.Next()
	}
}

// RequestIDFromContext returns the correlation id set by RequestID,
// or an empty string when the middleware did not run.
func RequestIDFromContext(c *gin.Context) string {
	val, ok := c.Get(requestIDContextKey)
	if !ok {
		return ""
	}
	id, _ := val.(string)
	return id
}
