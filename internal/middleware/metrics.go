package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-console/internal/service"
)

// Metrics returns middleware that records request latency and status per route.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			// Unmatched routes share one label to keep cardinality bounded.
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
