package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrepareSSE sets the response headers for a Server-Sent Events stream and
// returns the flusher the handler must use after each event. The second
// return value is false when the underlying writer cannot flush, in which
// case the handler should fall back to a plain error response.
func PrepareSSE(c *gin.Context) (http.Flusher, bool) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Transfer-Encoding", "chunked")
	// Keep nginx-style proxies from buffering the stream.
	h.Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	return flusher, ok
}
