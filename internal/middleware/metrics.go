package middleware

import (
	"time"

	"github.com/ad-tracker/thumbnail-service-go/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RequestMetrics records request counts and latencies by route template, so
// ids in paths do not explode label cardinality.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
