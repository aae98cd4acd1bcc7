package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments []models.Assignment
	submissions []models.Submission
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = "new"
	}
	m.assignments = append(m.assignments, *assignment)
	return nil
}

func (m *mockAssignmentRepo) ListByInstitute(ctx context.Context, institute string) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.InstituteName == institute {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) FindInInstitute(ctx context.Context, id, institute string) (*models.Assignment, error) {
	for _, a := range m.assignments {
		if a.ID == id && a.InstituteName == institute {
			found := a
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	for _, existing := range m.submissions {
		if existing.AssignmentID == submission.AssignmentID && existing.StudentID == submission.StudentID {
			return repository.ErrDuplicate
		}
	}
	submission.ID = "sub-" + submission.AssignmentID
	m.submissions = append(m.submissions, *submission)
	return nil
}

func (m *mockAssignmentRepo) ListSubmissionsByStudent(ctx context.Context, studentID, institute string) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range m.submissions {
		if s.StudentID == studentID && s.InstituteName == institute {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func newTestAssignmentService(repo *mockAssignmentRepo, now time.Time) (*AssignmentService, *recordingAudit) {
	audit := &recordingAudit{}
	svc := NewAssignmentService(repo, audit, nil, nil, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc, audit
}

func TestParseDueDate(t *testing.T) {
	due, err := ParseDueDate("2024-05-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 23, 59, 59, 999000000, time.UTC), due)

	_, err = ParseDueDate("10/05/2024")
	assert.Error(t, err)
}

func TestAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc, _ := newTestAssignmentService(repo, statsNow)

	res, err := svc.Create(context.Background(), teacherClaims, models.CreateAssignmentRequest{Title: " Intro to Algebra ", DueDate: "2024-05-15"})
	require.NoError(t, err)
	assert.Equal(t, "Assignment created successfully.", res.Message)
	assert.Equal(t, "Intro to Algebra", res.Item.Title)
	assert.Equal(t, "greenwood high", res.Item.InstituteName)
	assert.Equal(t, "teacher", res.Item.CreatedBy)

	_, err = svc.Create(context.Background(), studentClaims, models.CreateAssignmentRequest{Title: "x", DueDate: "2024-05-15"})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "Unauthorized: Only Admins can create assignments.")

	_, err = svc.Create(context.Background(), adminClaims, models.CreateAssignmentRequest{Title: "x"})
	assertAppError(t, err, appErrors.ErrValidation.Code, "Title and Due Date are required.")

	_, err = svc.Create(context.Background(), adminClaims, models.CreateAssignmentRequest{Title: "x", DueDate: "tomorrow"})
	assertAppError(t, err, appErrors.ErrValidation.Code, "")
}

func TestAssignmentServiceCreateInvalidatesStudentDashboards(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	bob := &models.JWTClaims{UserID: "bob", Role: models.RoleStudent, InstituteName: "greenwood high"}
	eve := &models.JWTClaims{UserID: "eve", Role: models.RoleStudent, InstituteName: "oakwood academy"}
	require.NoError(t, cache.Set(context.Background(), studentDashboardKey(bob), "cached", time.Minute))
	require.NoError(t, cache.Set(context.Background(), studentDashboardKey(eve), "cached", time.Minute))

	svc := NewAssignmentService(&mockAssignmentRepo{}, nil, cache, nil, zap.NewNop())
	svc.now = func() time.Time { return statsNow }
	_, err := svc.Create(context.Background(), teacherClaims, models.CreateAssignmentRequest{Title: "Lab", DueDate: "2024-05-15"})
	require.NoError(t, err)

	assert.NotContains(t, cacheRepo.store, studentDashboardKey(bob))
	assert.Contains(t, cacheRepo.store, studentDashboardKey(eve))
}

func TestAssignmentServiceSubmit(t *testing.T) {
	due := statsNow.Add(time.Hour)
	repo := &mockAssignmentRepo{assignments: []models.Assignment{
		{ID: "gw1", Title: "Algebra", DueDate: due, InstituteName: "greenwood high"},
		{ID: "oa3", Title: "Essay", DueDate: due, InstituteName: "oakwood academy"},
	}}
	svc, audit := newTestAssignmentService(repo, statsNow)

	res, err := svc.Submit(context.Background(), studentClaims, "gw1", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionOnTime, res.Item.Status)
	assert.Equal(t, "Assignment submitted on-time.", res.Message)
	require.Len(t, audit.logs, 1)

	_, err = svc.Submit(context.Background(), studentClaims, "gw1", models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrConflict.Code, "You have already submitted this assignment.")
	assert.Len(t, repo.submissions, 1)

	_, err = svc.Submit(context.Background(), studentClaims, "oa3", models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrNotFound.Code, "Assignment not found.")

	_, err = svc.Submit(context.Background(), teacherClaims, "gw1", models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "")
}

func TestAssignmentServiceSubmitLateKeepsStatus(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: []models.Assignment{
		{ID: "gw2", Title: "Physics Lab", DueDate: statsNow.Add(-time.Hour), InstituteName: "greenwood high"},
	}}
	svc, _ := newTestAssignmentService(repo, statsNow)

	res, err := svc.Submit(context.Background(), studentClaims, "gw2", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionLate, res.Item.Status)
	assert.Equal(t, "Assignment submitted late.", res.Message)

	svc.now = func() time.Time { return statsNow.Add(-48 * time.Hour) }
	items, err := svc.StudentView(context.Background(), studentClaims)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.AssignmentLate, items[0].Status)
}

func TestAssignmentServiceStudentAlerts(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: []models.Assignment{
		{ID: "soon", Title: "Algebra", DueDate: statsNow.Add(12 * time.Hour), InstituteName: "greenwood high"},
		{ID: "gone", Title: "Lab", DueDate: statsNow.Add(-12 * time.Hour), InstituteName: "greenwood high"},
	}}
	svc, _ := newTestAssignmentService(repo, statsNow)

	alerts, err := svc.StudentAlerts(context.Background(), studentClaims)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertError, alerts[0].Type)
	assert.Equal(t, models.AlertWarning, alerts[1].Type)
}
