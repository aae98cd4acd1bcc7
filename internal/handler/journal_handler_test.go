package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type journalServiceStub struct {
	entries   []models.JournalEntry
	created   models.CreateJournalEntryRequest
	deletedID string
	err       error
}

func (s *journalServiceStub) List(context.Context, string) ([]models.JournalEntry, error) {
	return s.entries, s.err
}

func (s *journalServiceStub) Create(_ context.Context, actor *models.JWTClaims, req models.CreateJournalEntryRequest) (*models.JournalEntry, error) {
	s.created = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.JournalEntry{ID: entryID, UserID: actor.UserID, Mood: req.Mood, Text: req.Text}, nil
}

func (s *journalServiceStub) Update(_ context.Context, _ *models.JWTClaims, id string, _ models.UpdateJournalEntryRequest) (*models.JournalEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.JournalEntry{ID: id}, nil
}

func (s *journalServiceStub) Delete(_ context.Context, _ *models.JWTClaims, id string) error {
	s.deletedID = id
	return s.err
}

func (s *journalServiceStub) Reflect(_ context.Context, _ *models.JWTClaims, id string) (*models.JournalEntry, error) {
	reflection := "You sound proud of today."
	return &models.JournalEntry{ID: id, AIReflection: &reflection}, s.err
}

func TestJournalHandlerCreate(t *testing.T) {
	svc := &journalServiceStub{}
	handler := NewJournalHandler(svc)

	c, w := newGinContext(http.MethodPost, "/journal", []byte(`{"mood":"Happy","text":"Aced my exam"}`))
	withUser(c, studentClaims())
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.MoodHappy, svc.created.Mood)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"user_id":"stu-1"`)
}

func TestJournalHandlerCreateRejectsMalformedBody(t *testing.T) {
	handler := NewJournalHandler(&journalServiceStub{})

	c, w := newGinContext(http.MethodPost, "/journal", []byte(`{"mood":`))
	withUser(c, studentClaims())
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJournalHandlerUpdateNotFound(t *testing.T) {
	handler := NewJournalHandler(&journalServiceStub{err: appErrors.Clone(appErrors.ErrNotFound, "journal entry not found")})

	c, w := newGinContext(http.MethodPut, "/journal/"+missingEntryID, []byte(`{"text":"edited"}`))
	c.Params = gin.Params{{Key: "id", Value: missingEntryID}}
	withUser(c, studentClaims())
	handler.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJournalHandlerDeleteAndReflect(t *testing.T) {
	svc := &journalServiceStub{}
	handler := NewJournalHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/journal/"+entryID, nil)
	c.Params = gin.Params{{Key: "id", Value: entryID}}
	withUser(c, studentClaims())
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, entryID, svc.deletedID)

	c, w = newGinContext(http.MethodPost, "/journal/"+entryID+"/reflection", nil)
	c.Params = gin.Params{{Key: "id", Value: entryID}}
	withUser(c, studentClaims())
	handler.Reflect(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), "proud of today")
}

func TestJournalHandlerListRequiresUser(t *testing.T) {
	handler := NewJournalHandler(&journalServiceStub{})

	c, w := newGinContext(http.MethodGet, "/journal", nil)
	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJournalHandlerMalformedIDIsNotFound(t *testing.T) {
	svc := &journalServiceStub{err: appErrors.ErrInternal}
	handler := NewJournalHandler(svc)

	cases := []struct {
		name   string
		method string
		path   string
		body   []byte
		call   func(*gin.Context)
	}{
		{"update", http.MethodPut, "/journal/abc", []byte(`{"text":"edited"}`), handler.Update},
		{"delete", http.MethodDelete, "/journal/abc", nil, handler.Delete},
		{"reflect", http.MethodPost, "/journal/abc/reflection", nil, handler.Reflect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newGinContext(tc.method, tc.path, tc.body)
			c.Params = gin.Params{{Key: "id", Value: "abc"}}
			withUser(c, studentClaims())
			tc.call(c)

			require.Equal(t, http.StatusNotFound, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, "Journal entry not found or access denied.", env.Error.Message)
		})
	}
	assert.Empty(t, svc.deletedID)
}
