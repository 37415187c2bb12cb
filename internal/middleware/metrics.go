package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/metrics"
)

// Metrics records the request count and latency of every matched route.
// Unmatched paths share one label so scanners cannot grow the label set.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
