package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type studentRoster interface {
	ListActiveStudents(ctx context.Context, institute string) ([]models.User, error)
	ListStudents(ctx context.Context, institute string) ([]models.User, error)
}

type moodCountSource interface {
	MoodCountsByInstitute(ctx context.Context, institute string) ([]models.MoodCount, error)
}

type assignmentActivitySource interface {
	ListByInstitute(ctx context.Context, institute string) ([]models.Assignment, error)
	ListSubmissionsByInstitute(ctx context.Context, institute string) ([]models.Submission, error)
}

// AnalyticsService computes institute aggregates with cache integration.
type AnalyticsService struct {
	students    studentRoster
	moods       moodCountSource
	assignments assignmentActivitySource
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	ttl         time.Duration
	now         func() time.Time
}

// NewAnalyticsService constructs an analytics service. ttl of zero uses the cache default.
func NewAnalyticsService(students studentRoster, moods moodCountSource, assignments assignmentActivitySource, cache *CacheService, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		students:    students,
		moods:       moods,
		assignments: assignments,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Attitude returns the attitude breakdown of the institute's active students.
// The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Attitude(ctx context.Context, institute string) (*models.AttitudeStats, bool, error) {
	stats, hit, err := cacheAside(ctx, s.cache, CacheKey("analytics", "attitude", institute), s.ttl, func(ctx context.Context) (models.AttitudeStats, error) {
		return s.computeAttitude(ctx, institute)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attitude statistics")
	}
	return &stats, hit, nil
}

// Assignments returns on-time, late and missed percentages for the institute.
func (s *AnalyticsService) Assignments(ctx context.Context, institute string) (*models.AssignmentStats, bool, error) {
	stats, hit, err := cacheAside(ctx, s.cache, CacheKey("analytics", "assignments", institute), s.ttl, func(ctx context.Context) (models.AssignmentStats, error) {
		return s.computeAssignments(ctx, institute)
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute assignment statistics")
	}
	return &stats, hit, nil
}

func (s *AnalyticsService) computeAttitude(ctx context.Context, institute string) (models.AttitudeStats, error) {
	start := time.Now()
	students, err := s.students.ListActiveStudents(ctx, institute)
	if err != nil {
		return models.AttitudeStats{}, err
	}
	if len(students) == 0 {
		return models.AttitudeStats{}, nil
	}
	counts, err := s.moods.MoodCountsByInstitute(ctx, institute)
	if err != nil {
		return models.AttitudeStats{}, err
	}
	s.metrics.ObserveDBQuery("analytics_attitude", time.Since(start))
	return AggregateAttitude(students, TalliesFromCounts(counts)), nil
}

func (s *AnalyticsService) computeAssignments(ctx context.Context, institute string) (models.AssignmentStats, error) {
	start := time.Now()
	students, err := s.students.ListActiveStudents(ctx, institute)
	if err != nil {
		return models.AssignmentStats{}, err
	}
	assignments, err := s.assignments.ListByInstitute(ctx, institute)
	if err != nil {
		return models.AssignmentStats{}, err
	}
	submissions, err := s.assignments.ListSubmissionsByInstitute(ctx, institute)
	if err != nil {
		return models.AssignmentStats{}, err
	}
	s.metrics.ObserveDBQuery("analytics_assignments", time.Since(start))
	return ComputeAssignmentStats(s.now().UTC(), assignments, submissions, students), nil
}

// WellbeingRows lists every student of the institute with their journal and submission
// activity. Deactivated students are listed without journal data.
func (s *AnalyticsService) WellbeingRows(ctx context.Context, institute string) ([]models.WellbeingRow, error) {
	students, err := s.students.ListStudents(ctx, institute)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	counts, err := s.moods.MoodCountsByInstitute(ctx, institute)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count moods")
	}
	assignments, err := s.assignments.ListByInstitute(ctx, institute)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	submissions, err := s.assignments.ListSubmissionsByInstitute(ctx, institute)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return BuildWellbeingRows(s.now().UTC(), students, TalliesFromCounts(counts), assignments, submissions), nil
}

// BuildWellbeingRows assembles one report row per student.
func BuildWellbeingRows(now time.Time, students []models.User, tallies map[string]MoodTally, assignments []models.Assignment, submissions []models.Submission) []models.WellbeingRow {
	byStudent := make(map[string][]models.Submission)
	for _, sub := range submissions {
		byStudent[sub.StudentID] = append(byStudent[sub.StudentID], sub)
	}

	rows := make([]models.WellbeingRow, 0, len(students))
	for _, student := range students {
		tally := tallies[student.ID]
		attitude, _ := tally.Classify()
		row := models.WellbeingRow{
			StudentID:  student.ID,
			Name:       student.FullName(),
			Email:      student.Email,
			Active:     student.IsActivated,
			EntryCount: tally.Total,
			Attitude:   attitude,
		}
		for _, item := range BuildStudentAssignments(now, assignments, byStudent[student.ID]) {
			switch item.Status {
			case models.AssignmentOnTime:
				row.OnTimeCount++
			case models.AssignmentLate:
				row.LateCount++
			case models.AssignmentMissed:
				row.MissedCount++
			}
		}
		rows = append(rows, row)
	}
	return rows
}
