// Package requestid tags every Mindsetu request with an ID that is echoed back to the
// client and attached to log lines and Sentry events.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderKey      = "X-Request-ID"
	correlationKey = "X-Correlation-ID"
	contextKey     = "request_id"
	maxInboundLen  = 128
)

// Middleware reuses an inbound X-Request-ID (or X-Correlation-ID from the SPA) when it is
// short printable ASCII and generates a UUID otherwise.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderKey)
		if reqID == "" {
			reqID = c.GetHeader(correlationKey)
		}
		if !acceptable(reqID) {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(HeaderKey, reqID)
		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}

// acceptable rejects empty, oversized and non-printable IDs so they cannot forge log lines.
func acceptable(id string) bool {
	if id == "" || len(id) > maxInboundLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
