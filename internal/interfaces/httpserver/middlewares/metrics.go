package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tutor-server/services/chat-api/internal/infrastructure/metrics"
)

// MetricsMiddleware times each request and feeds the per-endpoint counters
// and latency histogram. The route template is used as the endpoint label
// so path parameters do not blow up cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			// Unmatched routes fall back to the raw path.
			endpoint = c.Request.URL.Path
		}
		metrics.RecordRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
