package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/service"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateAssignmentRequest) (*service.AssignmentResult[*models.Assignment], error)
	ListForInstitute(ctx context.Context, institute string) ([]models.Assignment, error)
	Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, meta models.LoginRequest) (*service.AssignmentResult[*models.Submission], error)
	StudentView(ctx context.Context, actor *models.JWTClaims) ([]models.DisplayableAssignment, error)
	StudentAlerts(ctx context.Context, actor *models.JWTClaims) ([]models.AssignmentAlert, error)
}

// AssignmentHandler exposes assignment publishing and submission.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List institute assignments
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListForInstitute(c.Request.Context(), claims.InstituteName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Publish an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	res, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusCreated, res.Item, res.Message)
}

// Submit godoc
// @Summary Submit an assignment
// @Description Status is On-Time when submitted before the end of the due date, Late otherwise.
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, service.ErrAssignmentNotFound)
	if !ok {
		return
	}
	res, err := h.service.Submit(c.Request.Context(), claims, id, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithMessage(c, http.StatusCreated, res.Item, res.Message)
}

// Mine godoc
// @Summary My assignments with submission status
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assignments/mine [get]
func (h *AssignmentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.StudentView(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Alerts godoc
// @Summary My assignment alerts
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /assignments/alerts [get]
func (h *AssignmentHandler) Alerts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	alerts, err := h.service.StudentAlerts(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}
