package middleware

import (
	"strconv"
	"time"

	"storefront-service/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics пишет счётчики и латентность по шаблону маршрута, а не по сырому пути.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
