package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/mindsetu-api/internal/middleware"
	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// cacheMeta marks the cache outcome and returns the accumulated response meta.
func cacheMeta(c *gin.Context, hit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

// pathID returns the :id path value. Values that are not UUIDs never match a row, so
// they are answered with notFound before reaching the store.
func pathID(c *gin.Context, notFound error) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, notFound)
		return "", false
	}
	return id, true
}
