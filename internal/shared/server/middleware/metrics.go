package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/shared/metrics"
)

// Metrics records request latency by matched route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
