package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/service"
)

// unmatchedRoute labels requests that hit no route, keeping scanner noise in one series.
const unmatchedRoute = "unmatched"

// Metrics records request counts and latency per route template, so /journal/:id is one
// series regardless of entry IDs. Chat streams are observed once the stream closes.
// CORS preflights are not recorded.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
