package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

type analyticsService interface {
	Attitude(ctx context.Context, institute string) (*models.AttitudeStats, bool, error)
	Assignments(ctx context.Context, institute string) (*models.AssignmentStats, bool, error)
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Attitude godoc
// @Summary Student attitude breakdown
// @Description Percentages of positive, negative and neutral students among those with enough journal entries.
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/attitude [get]
func (h *AnalyticsHandler) Attitude(c *gin.Context) {
	claims := claimsFromContext(c)
	if h.analytics == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.analytics.Attitude(c.Request.Context(), claims.InstituteName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, cacheMeta(c, cacheHit, start))
}

// Assignments godoc
// @Summary Assignment submission statistics
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analytics/assignments [get]
func (h *AnalyticsHandler) Assignments(c *gin.Context) {
	claims := claimsFromContext(c)
	if h.analytics == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.analytics.Assignments(c.Request.Context(), claims.InstituteName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, cacheMeta(c, cacheHit, start))
}
