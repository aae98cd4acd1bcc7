package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

type insightService interface {
	AcademicInsights(ctx context.Context, institute string) (*models.InsightResult[models.AcademicInsights], error)
	DropoutRisk(ctx context.Context, institute string) (*models.InsightResult[models.DropoutRiskAnalysis], error)
}

// InsightHandler serves model generated analyses. Fallback payloads are returned with 200
// and success=false so clients can always render something.
type InsightHandler struct {
	service insightService
}

// NewInsightHandler constructs the handler.
func NewInsightHandler(svc insightService) *InsightHandler {
	return &InsightHandler{service: svc}
}

// Academic godoc
// @Summary Academic pressure insights
// @Tags Insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /insights/academic [get]
func (h *InsightHandler) Academic(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.AcademicInsights(c.Request.Context(), claims.InstituteName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DropoutRisk godoc
// @Summary Dropout risk analysis
// @Tags Insights
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /insights/dropout-risk [get]
func (h *InsightHandler) DropoutRisk(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.DropoutRisk(c.Request.Context(), claims.InstituteName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
