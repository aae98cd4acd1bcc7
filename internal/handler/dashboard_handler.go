package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/dto"
	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

type dashboardService interface {
	Student(ctx context.Context, actor *models.JWTClaims) (*dto.StudentDashboardResponse, bool, error)
	Institute(ctx context.Context, actor *models.JWTClaims) (*dto.InstituteDashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Role shaped dashboard
// @Description Students receive their mood and assignment overview, staff the institute wellbeing summary.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()
	var (
		summary  interface{}
		cacheHit bool
		err      error
	)
	if claims.Role == models.RoleStudent {
		summary, cacheHit, err = h.service.Student(c.Request.Context(), claims)
	} else {
		summary, cacheHit, err = h.service.Institute(c.Request.Context(), claims)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, cacheMeta(c, cacheHit, start))
}
