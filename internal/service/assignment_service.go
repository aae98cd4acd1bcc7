package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

const dueDateLayout = "2006-01-02"

// ErrAssignmentNotFound answers lookups outside the student's institute.
var ErrAssignmentNotFound = appErrors.Clone(appErrors.ErrNotFound, "Assignment not found.")

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	ListByInstitute(ctx context.Context, institute string) ([]models.Assignment, error)
	FindInInstitute(ctx context.Context, id, institute string) (*models.Assignment, error)
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	ListSubmissionsByStudent(ctx context.Context, studentID, institute string) ([]models.Submission, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AssignmentResult pairs an assignment mutation with its user-facing message.
type AssignmentResult[T any] struct {
	Item    T
	Message string
}

// AssignmentService handles assignment creation, submission and the student views.
type AssignmentService struct {
	repo    assignmentRepository
	audit   auditRecorder
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAssignmentService constructs an AssignmentService. audit, cache and metrics are optional.
func NewAssignmentService(repo assignmentRepository, audit auditRecorder, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, audit: audit, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Create adds an assignment for the actor's institute. The due date is a calendar day and the
// deadline is the last millisecond of that day in UTC.
func (s *AssignmentService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateAssignmentRequest) (*AssignmentResult[*models.Assignment], error) {
	if actor == nil || (actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can create assignments.")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.DueDate) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Title and Due Date are required.")
	}
	due, err := ParseDueDate(req.DueDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Due Date must use the YYYY-MM-DD format.")
	}

	assignment := &models.Assignment{
		Title:         title,
		DueDate:       due,
		InstituteName: actor.InstituteName,
		CreatedBy:     actor.UserID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.cache.InvalidateInstitute(ctx, actor.InstituteName)
	return &AssignmentResult[*models.Assignment]{Item: assignment, Message: "Assignment created successfully."}, nil
}

// ParseDueDate turns a YYYY-MM-DD day into its end-of-day UTC deadline.
func ParseDueDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(dueDateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Millisecond), nil
}

// ListForInstitute returns the institute's assignments, newest created first.
func (s *AssignmentService) ListForInstitute(ctx context.Context, institute string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByInstitute(ctx, institute)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Submit records the student's submission. The status is fixed at this moment and a second
// submission for the same assignment is rejected.
func (s *AssignmentService) Submit(ctx context.Context, actor *models.JWTClaims, assignmentID string, meta models.LoginRequest) (*AssignmentResult[*models.Submission], error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only students can submit assignments.")
	}

	assignment, err := s.repo.FindInInstitute(ctx, assignmentID, actor.InstituteName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	now := s.now().UTC()
	submission := &models.Submission{
		AssignmentID:  assignment.ID,
		StudentID:     actor.UserID,
		InstituteName: actor.InstituteName,
		SubmittedAt:   now,
		Status:        SubmissionStatusAt(now, assignment.DueDate),
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "You have already submitted this assignment.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	s.metrics.RecordSubmission(string(submission.Status))
	s.cache.InvalidateInstitute(ctx, actor.InstituteName)
	_ = s.cache.Invalidate(ctx, studentDashboardKey(actor))
	s.recordAudit(ctx, actor.UserID, submission, meta)

	return &AssignmentResult[*models.Submission]{
		Item:    submission,
		Message: "Assignment submitted " + strings.ToLower(string(submission.Status)) + ".",
	}, nil
}

// StudentView lists every institute assignment with the student's status, ordered by due date.
func (s *AssignmentService) StudentView(ctx context.Context, actor *models.JWTClaims) ([]models.DisplayableAssignment, error) {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only students have assignment submissions.")
	}
	assignments, err := s.repo.ListByInstitute(ctx, actor.InstituteName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	submissions, err := s.repo.ListSubmissionsByStudent(ctx, actor.UserID, actor.InstituteName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return BuildStudentAssignments(s.now().UTC(), assignments, submissions), nil
}

// StudentAlerts derives deadline and submission notifications for the student.
func (s *AssignmentService) StudentAlerts(ctx context.Context, actor *models.JWTClaims) ([]models.AssignmentAlert, error) {
	items, err := s.StudentView(ctx, actor)
	if err != nil {
		return nil, err
	}
	return BuildAssignmentAlerts(s.now().UTC(), items), nil
}

func (s *AssignmentService) recordAudit(ctx context.Context, actorID string, submission *models.Submission, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"assignment_id": submission.AssignmentID, "status": submission.Status})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionSubmit,
		Resource:   "submissions",
		ResourceID: &submission.ID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record submission audit log", zap.Error(err))
	}
}
