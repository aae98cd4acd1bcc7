package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/service"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/response"
)

type rosterService interface {
	PreRegisterStudent(ctx context.Context, actor *models.JWTClaims, req service.PreRegisterRequest, meta models.LoginRequest) (*service.PreRegisterResponse, error)
	PreRegisterTeacher(ctx context.Context, actor *models.JWTClaims, req service.PreRegisterRequest, meta models.LoginRequest) (*service.PreRegisterResponse, error)
	ListRoster(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Deactivate(ctx context.Context, actor *models.JWTClaims, id string, meta models.LoginRequest) error
}

// UserHandler handles the institute roster endpoints.
type UserHandler struct {
	service rosterService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc rosterService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List institute roster
// @Description List users of the caller's institute with pagination and filtering
// @Tags Roster
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Search term"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roster [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}

	if active := c.Query("active"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}

	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	users, pagination, err := h.service.ListRoster(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// PreRegisterStudent godoc
// @Summary Pre-register a student
// @Description Creates an inactive student account and emails an invitation
// @Tags Roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PreRegisterRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roster/students [post]
func (h *UserHandler) PreRegisterStudent(c *gin.Context) {
	h.preRegister(c, h.service.PreRegisterStudent)
}

// PreRegisterTeacher godoc
// @Summary Pre-register a teacher
// @Tags Roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PreRegisterRequest true "Teacher"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roster/teachers [post]
func (h *UserHandler) PreRegisterTeacher(c *gin.Context) {
	h.preRegister(c, h.service.PreRegisterTeacher)
}

type preRegisterFunc func(ctx context.Context, actor *models.JWTClaims, req service.PreRegisterRequest, meta models.LoginRequest) (*service.PreRegisterResponse, error)

func (h *UserHandler) preRegister(c *gin.Context, register preRegisterFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PreRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := register(c.Request.Context(), claims, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithMessage(c, http.StatusCreated, res.User, res.Message)
}

// Deactivate godoc
// @Summary Deactivate a user
// @Description Deactivated students drop out of every institute aggregate
// @Tags Roster
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roster/{id}/deactivate [patch]
func (h *UserHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, service.ErrUserNotFound)
	if !ok {
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), claims, id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
