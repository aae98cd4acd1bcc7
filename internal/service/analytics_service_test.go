package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	for key := range s.store {
		if matched, _ := path.Match(pattern, key); matched {
			delete(s.store, key)
		}
	}
	return nil
}

type fakeInstituteData struct {
	active      []models.User
	all         []models.User
	counts      []models.MoodCount
	assignments []models.Assignment
	submissions []models.Submission
	rosterCalls int
	err         error
}

func (f *fakeInstituteData) ListActiveStudents(ctx context.Context, institute string) ([]models.User, error) {
	f.rosterCalls++
	return f.active, f.err
}

func (f *fakeInstituteData) ListStudents(ctx context.Context, institute string) ([]models.User, error) {
	return f.all, f.err
}

func (f *fakeInstituteData) MoodCountsByInstitute(ctx context.Context, institute string) ([]models.MoodCount, error) {
	return f.counts, nil
}

func (f *fakeInstituteData) ListByInstitute(ctx context.Context, institute string) ([]models.Assignment, error) {
	return f.assignments, nil
}

func (f *fakeInstituteData) ListSubmissionsByInstitute(ctx context.Context, institute string) ([]models.Submission, error) {
	return f.submissions, nil
}

func greenwoodData() *fakeInstituteData {
	bob := models.User{ID: "bob", FirstName: "Bob", LastName: "Johnson", Email: "bob@x.io", IsActivated: true}
	charlie := models.User{ID: "charlie", FirstName: "Charlie", LastName: "Brown", Email: "charlie@x.io", IsActivated: true}
	diana := models.User{ID: "diana", FirstName: "Diana", LastName: "Prince", Email: "diana@x.io", IsPreRegistered: true}
	return &fakeInstituteData{
		active: []models.User{bob, charlie},
		all:    []models.User{bob, charlie, diana},
		counts: []models.MoodCount{
			{UserID: "bob", Mood: models.MoodHappy, Total: 11},
			{UserID: "bob", Mood: models.MoodSad, Total: 4},
			{UserID: "charlie", Mood: models.MoodStressed, Total: 13},
			{UserID: "charlie", Mood: models.MoodCalm, Total: 7},
		},
		assignments: []models.Assignment{
			{ID: "gw1", DueDate: statsNow.Add(5 * 24 * time.Hour)},
			{ID: "gw2", DueDate: statsNow.Add(-2 * 24 * time.Hour)},
		},
		submissions: []models.Submission{
			{AssignmentID: "gw2", StudentID: "bob", Status: models.SubmissionLate},
			{AssignmentID: "gw1", StudentID: "charlie", Status: models.SubmissionOnTime},
		},
	}
}

func newTestAnalyticsService(data *fakeInstituteData, cache *CacheService) *AnalyticsService {
	svc := NewAnalyticsService(data, data, data, cache, nil, zap.NewNop(), time.Minute)
	svc.now = func() time.Time { return statsNow }
	return svc
}

func TestAnalyticsServiceAttitudeUsesCache(t *testing.T) {
	data := greenwoodData()
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := newTestAnalyticsService(data, cache)

	stats, hit, err := svc.Attitude(context.Background(), "greenwood high")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, stats.AnalyzedStudentCount)
	assert.Equal(t, 50.0, stats.PositivePercent)
	assert.Equal(t, 50.0, stats.NegativePercent)

	cached, hit, err := svc.Attitude(context.Background(), "greenwood high")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats, cached)
	assert.Equal(t, 1, data.rosterCalls)
}

func TestAnalyticsServiceAttitudeEmptyInstitute(t *testing.T) {
	svc := newTestAnalyticsService(&fakeInstituteData{}, nil)

	stats, hit, err := svc.Attitude(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.AttitudeStats{}, *stats)
}

func TestAnalyticsServiceAssignments(t *testing.T) {
	svc := newTestAnalyticsService(greenwoodData(), nil)

	stats, _, err := svc.Assignments(context.Background(), "greenwood high")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stats.OnTimePercent)
	assert.Equal(t, 50.0, stats.LatePercent)
	assert.Equal(t, 50.0, stats.MissedPercent)
	assert.Equal(t, 2, stats.TotalActiveStudentsWithAssignments)
}

func TestAnalyticsServiceWrapsLoadErrors(t *testing.T) {
	svc := newTestAnalyticsService(&fakeInstituteData{err: errors.New("db down")}, nil)

	_, _, err := svc.Assignments(context.Background(), "greenwood high")
	assertAppError(t, err, appErrors.ErrInternal.Code, "")
}

func TestAnalyticsServiceWellbeingRows(t *testing.T) {
	svc := newTestAnalyticsService(greenwoodData(), nil)

	rows, err := svc.WellbeingRows(context.Background(), "greenwood high")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Bob Johnson", rows[0].Name)
	assert.Equal(t, 15, rows[0].EntryCount)
	assert.Equal(t, models.AttitudePositive, rows[0].Attitude)
	assert.Equal(t, 1, rows[0].LateCount)

	assert.Equal(t, models.AttitudeNegative, rows[1].Attitude)
	assert.Equal(t, 1, rows[1].OnTimeCount)
	assert.Equal(t, 1, rows[1].MissedCount)

	assert.False(t, rows[2].Active)
	assert.Equal(t, models.AttitudeUnclassified, rows[2].Attitude)
	assert.Equal(t, 1, rows[2].MissedCount)
}
