package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route, keeping the path
// label bounded to the registered routes.
const unmatchedRoute = "unmatched"

// Metrics records latency and count per route template. OAuth callbacks
// answer with 302 on every outcome, so the per-outcome split lives in
// metrics.OAuthLoginsTotal rather than here.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		labels := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status())}

		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	}
}
