package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monocle-dev/fleetwatch/internal/metrics"
)

// Metrics records request counts and latencies per route.
func Metrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}

		method := ctx.Request.Method
		status := strconv.Itoa(ctx.Writer.Status())

		metrics.TotalRequests.WithLabelValues(method, path, status).Inc()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
