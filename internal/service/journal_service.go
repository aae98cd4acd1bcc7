package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/llm"
)

const (
	reflectionUnavailable = "AI reflection is currently unavailable. Take a moment to appreciate your thoughts."
	reflectionEmpty       = "Thanks for sharing. It's good to express your thoughts."
	reflectionFailed      = "Sorry, I couldn't analyze the entry right now. Please try again later."

	reflectionPrompt = `A student wrote this journal entry: "%s". Provide a brief (2-3 sentences), supportive, and empathetic reflection on their entry. Focus on validating their feelings and perhaps offer a gentle, positive perspective or a simple coping thought if appropriate. Do not give advice unless it's very general (e.g., "remember to be kind to yourself"). Do not diagnose.`
)

// ErrJournalEntryNotFound answers lookups of missing or foreign entries.
var ErrJournalEntryNotFound = appErrors.Clone(appErrors.ErrNotFound, "Journal entry not found or access denied.")

type journalRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error)
	FindForUser(ctx context.Context, id, userID string) (*models.JournalEntry, error)
	Create(ctx context.Context, entry *models.JournalEntry) error
	Update(ctx context.Context, entry *models.JournalEntry) error
	SetReflection(ctx context.Context, id, userID, reflection string) error
	Delete(ctx context.Context, id, userID string) error
}

// JournalService manages a user's mood journal.
type JournalService struct {
	repo      journalRepository
	llm       llm.Client
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJournalService constructs a JournalService.
func NewJournalService(repo journalRepository, client llm.Client, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *JournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JournalService{repo: repo, llm: client, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns the user's entries newest first.
func (s *JournalService) List(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list journal entries")
	}
	return entries, nil
}

// Create stores a new entry for the user.
func (s *JournalService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateJournalEntryRequest) (*models.JournalEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal entry payload")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Journal text cannot be empty.")
	}

	entry := &models.JournalEntry{UserID: actor.UserID, Mood: req.Mood, Text: req.Text}
	if req.Date != nil {
		entry.Date = req.Date.UTC()
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create journal entry")
	}
	s.invalidate(ctx, actor)
	return entry, nil
}

// Update edits the text and/or mood of an owned entry.
func (s *JournalService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateJournalEntryRequest) (*models.JournalEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal entry payload")
	}

	entry, err := s.load(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req.Mood != nil {
		entry.Mood = *req.Mood
	}
	if req.Text != nil {
		if strings.TrimSpace(*req.Text) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Journal text cannot be empty.")
		}
		entry.Text = *req.Text
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJournalEntryNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update journal entry")
	}
	s.invalidate(ctx, actor)
	return entry, nil
}

// Delete removes an owned entry.
func (s *JournalService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if err := s.repo.Delete(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJournalEntryNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete journal entry")
	}
	s.invalidate(ctx, actor)
	return nil
}

// Reflect asks the model for a short reflection on an owned entry and stores it.
// Model failures produce a fallback reflection instead of an error.
func (s *JournalService) Reflect(ctx context.Context, actor *models.JWTClaims, id string) (*models.JournalEntry, error) {
	entry, err := s.load(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}

	reflection := s.reflection(ctx, entry.Text)
	if err := s.repo.SetReflection(ctx, entry.ID, actor.UserID, reflection); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJournalEntryNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reflection")
	}
	entry.AIReflection = &reflection
	return entry, nil
}

func (s *JournalService) reflection(ctx context.Context, text string) string {
	if s.llm == nil || !s.llm.Enabled() {
		s.metrics.ObserveAICall("reflection", AIOutcomeDisabled, 0)
		return reflectionUnavailable
	}

	start := time.Now()
	reply, err := s.llm.GenerateText(ctx, fmt.Sprintf(reflectionPrompt, text))
	if err != nil {
		s.metrics.ObserveAICall("reflection", AIOutcomeFallback, time.Since(start))
		s.logger.Warn("journal reflection failed", zap.Error(err))
		return reflectionFailed
	}
	s.metrics.ObserveAICall("reflection", AIOutcomeSuccess, time.Since(start))
	if reply = strings.TrimSpace(reply); reply == "" {
		return reflectionEmpty
	}
	return reply
}

func (s *JournalService) load(ctx context.Context, id, userID string) (*models.JournalEntry, error) {
	entry, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJournalEntryNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal entry")
	}
	return entry, nil
}

// invalidate drops cached aggregates that include the author's moods.
func (s *JournalService) invalidate(ctx context.Context, actor *models.JWTClaims) {
	if actor.InstituteName != "" {
		s.cache.InvalidateInstitute(ctx, actor.InstituteName)
	}
	_ = s.cache.Invalidate(ctx, studentDashboardKey(actor))
}
