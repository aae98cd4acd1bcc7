package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/service"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type scriptedChat struct {
	chunks   []string
	failWith string
	err      error
	resets   int
	history  []models.ChatMessage
	lastUser string
}

func (s *scriptedChat) Send(_ context.Context, userID, message string, sink service.ChatSink) (string, error) {
	s.lastUser = userID
	if s.err != nil {
		return "", s.err
	}
	if s.failWith != "" {
		return "", sink.Error(s.failWith)
	}
	for _, chunk := range s.chunks {
		if err := sink.Chunk(chunk); err != nil {
			return "", err
		}
	}
	return strings.Join(s.chunks, ""), nil
}

func (s *scriptedChat) History(context.Context, string) ([]models.ChatMessage, error) {
	return s.history, nil
}

func (s *scriptedChat) Reset(context.Context, string) error {
	s.resets++
	return nil
}

func TestChatHandlerStreamsEvents(t *testing.T) {
	svc := &scriptedChat{chunks: []string{"Hello ", "there"}}
	handler := NewChatHandler(svc)

	c, w := newGinContext(http.MethodPost, "/chat/messages", []byte(`{"message":"hi"}`))
	withUser(c, studentClaims())

	handler.Send(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event:message")
	assert.Contains(t, body, `"text":"Hello "`)
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"reply":"Hello there"`)
	assert.Equal(t, "stu-1", svc.lastUser)
}

func TestChatHandlerStreamsErrorEvent(t *testing.T) {
	handler := NewChatHandler(&scriptedChat{failWith: "Sorry, I encountered an error. boom"})

	c, w := newGinContext(http.MethodPost, "/chat/messages", []byte(`{"message":"hi"}`))
	withUser(c, studentClaims())

	handler.Send(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, "boom")
	assert.Contains(t, body, "event:done")
}

func TestChatHandlerValidationErrorIsJSON(t *testing.T) {
	handler := NewChatHandler(&scriptedChat{err: appErrors.Clone(appErrors.ErrValidation, "Message cannot be empty.")})

	c, w := newGinContext(http.MethodPost, "/chat/messages", []byte(`{"message":"  "}`))
	withUser(c, studentClaims())

	handler.Send(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Message cannot be empty.", env.Error.Message)
}

func TestChatHandlerRequiresUser(t *testing.T) {
	handler := NewChatHandler(&scriptedChat{err: errors.New("unreachable")})

	c, w := newGinContext(http.MethodPost, "/chat/messages", []byte(`{"message":"hi"}`))
	handler.Send(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatHandlerResetAndHistory(t *testing.T) {
	svc := &scriptedChat{history: []models.ChatMessage{{Role: models.ChatRoleUser, Text: "hi"}}}
	handler := NewChatHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/chat/history", nil)
	withUser(c, studentClaims())
	handler.Reset(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, svc.resets)

	c, w = newGinContext(http.MethodGet, "/chat/history", nil)
	withUser(c, studentClaims())
	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"text":"hi"`)
}

func TestChatHandlerEmergencyContacts(t *testing.T) {
	handler := NewChatHandler(&scriptedChat{})

	c, w := newGinContext(http.MethodGet, "/resources/emergency", nil)
	handler.Emergency(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), "988")
}
