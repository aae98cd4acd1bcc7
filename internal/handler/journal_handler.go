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

type journalService interface {
	List(ctx context.Context, userID string) ([]models.JournalEntry, error)
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateJournalEntryRequest) (*models.JournalEntry, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateJournalEntryRequest) (*models.JournalEntry, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Reflect(ctx context.Context, actor *models.JWTClaims, id string) (*models.JournalEntry, error)
}

// JournalHandler exposes the mood journal of the authenticated user.
type JournalHandler struct {
	service journalService
}

// NewJournalHandler constructs the handler.
func NewJournalHandler(svc journalService) *JournalHandler {
	return &JournalHandler{service: svc}
}

// List godoc
// @Summary List my journal entries
// @Tags Journal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /journal [get]
func (h *JournalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Create godoc
// @Summary Write a journal entry
// @Tags Journal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateJournalEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /journal [post]
func (h *JournalHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Edit a journal entry
// @Tags Journal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Param payload body models.UpdateJournalEntryRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /journal/{id} [put]
func (h *JournalHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, service.ErrJournalEntryNotFound)
	if !ok {
		return
	}
	var req models.UpdateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), claims, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete a journal entry
// @Tags Journal
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /journal/{id} [delete]
func (h *JournalHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, service.ErrJournalEntryNotFound)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reflect godoc
// @Summary Generate an AI reflection for an entry
// @Description Always succeeds for owned entries; a friendly fallback is stored when the model is unavailable.
// @Tags Journal
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /journal/{id}/reflection [post]
func (h *JournalHandler) Reflect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := pathID(c, service.ErrJournalEntryNotFound)
	if !ok {
		return
	}
	entry, err := h.service.Reflect(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
