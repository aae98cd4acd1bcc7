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

type chatService interface {
	Send(ctx context.Context, userID, message string, sink service.ChatSink) (string, error)
	History(ctx context.Context, userID string) ([]models.ChatMessage, error)
	Reset(ctx context.Context, userID string) error
}

// ChatHandler streams companion replies as server-sent events.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// sseSink writes chat events to the response. Headers are committed on the first event so
// validation errors can still be answered with a JSON envelope.
type sseSink struct {
	c       *gin.Context
	started bool
}

func (s *sseSink) begin() {
	if s.started {
		return
	}
	s.started = true
	header := s.c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	s.c.Status(http.StatusOK)
}

func (s *sseSink) emit(event string, data interface{}) error {
	s.begin()
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
	return s.c.Request.Context().Err()
}

func (s *sseSink) Chunk(text string) error {
	return s.emit("message", gin.H{"text": text})
}

func (s *sseSink) Error(message string) error {
	return s.emit("error", gin.H{"message": message})
}

// Send godoc
// @Summary Talk to the companion
// @Description Streams "message" events with reply chunks, optional "error" events, then a final "done" event.
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param payload body models.ChatRequest true "Message"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} response.Envelope
// @Router /chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}

	sink := &sseSink{c: c}
	reply, err := h.service.Send(c.Request.Context(), claims.UserID, req.Message, sink)
	if err != nil {
		if !sink.started {
			response.Error(c, err)
		}
		return
	}
	_ = sink.emit("done", gin.H{"reply": reply})
}

// History godoc
// @Summary Stored companion transcript
// @Tags Chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /chat/history [get]
func (h *ChatHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	messages, err := h.service.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// Reset godoc
// @Summary Start a fresh conversation
// @Tags Chat
// @Security BearerAuth
// @Success 204
// @Router /chat/history [delete]
func (h *ChatHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Reset(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Emergency godoc
// @Summary Crisis resources
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /resources/emergency [get]
func (h *ChatHandler) Emergency(c *gin.Context) {
	response.JSON(c, http.StatusOK, service.EmergencyContacts(), nil)
}
