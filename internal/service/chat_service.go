package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/llm"
)

const companionInstruction = "You are Mindsetu, a friendly, empathetic, and supportive AI companion for students. " +
	"Your goal is to provide a safe space for them to express their feelings, offer helpful advice, coping strategies, and uplifting encouragement. " +
	"Avoid giving medical diagnoses. Keep responses concise, positive, and understanding. " +
	"If a user expresses severe distress or mentions self-harm, gently encourage them to speak to a trusted adult, counselor, or use an emergency helpline, " +
	"and provide placeholder contact info if specifically asked for emergency resources."

const (
	chatNotInitialized = "Gemini API not initialized. Please ensure API_KEY is set."
	chatLimitedReply   = "I'm currently unable to connect fully due to a configuration issue. I can offer limited responses."
	chatEmptyReply     = "Hmm, I didn't get a response that time. Could you try rephrasing?"
	chatErrorPrefix    = "Sorry, I encountered an error. "
)

var emergencyContacts = []models.EmergencyContact{
	{Name: "National Suicide Prevention Lifeline", Contact: "988"},
	{Name: "Crisis Text Line", Contact: "Text HOME to 741741"},
	{Name: "University Counseling (Example)", Contact: "XXX-XXX-XXXX (Update this)"},
}

type chatHistoryStore interface {
	History(ctx context.Context, userID string) ([]models.ChatMessage, error)
	Append(ctx context.Context, userID string, messages ...models.ChatMessage) error
	Clear(ctx context.Context, userID string) error
}

// ChatSink receives the events of one streamed companion reply.
type ChatSink interface {
	Chunk(text string) error
	Error(message string) error
}

// ChatService runs the companion conversation.
type ChatService struct {
	history chatHistoryStore
	llm     llm.Client
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewChatService constructs a ChatService.
func NewChatService(history chatHistoryStore, client llm.Client, metrics *MetricsService, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{history: history, llm: client, metrics: metrics, logger: logger, now: time.Now}
}

// EmergencyContacts returns the static crisis resources.
func EmergencyContacts() []models.EmergencyContact {
	contacts := make([]models.EmergencyContact, len(emergencyContacts))
	copy(contacts, emergencyContacts)
	return contacts
}

// History returns the stored transcript of the user.
func (s *ChatService) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	messages, err := s.history.History(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat history")
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// Send streams the companion's reply to message into sink and returns the full reply.
// Model failures are reported through sink; only invalid input and sink write errors are returned.
func (s *ChatService) Send(ctx context.Context, userID, message string, sink ChatSink) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "Message cannot be empty.")
	}

	if s.llm == nil || !s.llm.Enabled() {
		s.metrics.ObserveAICall("chat", AIOutcomeDisabled, 0)
		if err := sink.Error(chatNotInitialized); err != nil {
			return "", err
		}
		return chatLimitedReply, sink.Chunk(chatLimitedReply)
	}

	stored, err := s.history.History(ctx, userID)
	if err != nil {
		s.logger.Warn("chat history unavailable", zap.String("user_id", userID), zap.Error(err))
		stored = nil
	}
	turns := make([]llm.Message, 0, len(stored))
	for _, msg := range stored {
		turns = append(turns, llm.Message{Role: llm.Role(msg.Role), Text: msg.Text})
	}

	var sinkErr error
	start := time.Now()
	reply, err := s.llm.StreamChat(ctx, companionInstruction, turns, message, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		if err := sink.Chunk(chunk); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	if sinkErr != nil {
		return "", sinkErr
	}
	if err != nil {
		s.metrics.ObserveAICall("chat", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("chat completion failed", zap.String("user_id", userID), zap.Error(err))
		return "", sink.Error(chatErrorPrefix + err.Error())
	}

	if strings.TrimSpace(reply) == "" {
		s.metrics.ObserveAICall("chat", AIOutcomeFallback, time.Since(start))
		return chatEmptyReply, sink.Chunk(chatEmptyReply)
	}
	s.metrics.ObserveAICall("chat", AIOutcomeSuccess, time.Since(start))

	now := s.now().UTC()
	if err := s.history.Append(ctx, userID,
		models.ChatMessage{Role: models.ChatRoleUser, Text: message, Timestamp: now},
		models.ChatMessage{Role: models.ChatRoleModel, Text: reply, Timestamp: now},
	); err != nil {
		s.logger.Warn("failed to persist chat history", zap.String("user_id", userID), zap.Error(err))
	}
	return reply, nil
}

// Reset clears the user's transcript so the next message starts a fresh conversation.
func (s *ChatService) Reset(ctx context.Context, userID string) error {
	if err := s.history.Clear(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear chat history")
	}
	return nil
}
