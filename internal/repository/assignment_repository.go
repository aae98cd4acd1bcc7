package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

const (
	assignmentColumns = `id, title, due_date, institute_name, created_by, created_at`
	submissionColumns = `id, assignment_id, student_id, institute_name, submitted_at, status`
)

// AssignmentRepository persists assignments and their submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (` + assignmentColumns + `) VALUES (:id, :title, :due_date, :institute_name, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// ListByInstitute returns institute assignments, newest created first.
func (r *AssignmentRepository) ListByInstitute(ctx context.Context, institute string) ([]models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE institute_name = $1 ORDER BY created_at DESC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, institute); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// FindInInstitute loads an assignment only when it belongs to institute.
func (r *AssignmentRepository) FindInInstitute(ctx context.Context, id, institute string) (*models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1 AND institute_name = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, institute); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// CreateSubmission records a submission once per (assignment, student). A repeated
// submission inserts nothing and yields ErrDuplicate.
func (r *AssignmentRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	const query = `INSERT INTO submissions (` + submissionColumns + `) VALUES (:id, :assignment_id, :student_id, :institute_name, :submitted_at, :status)
ON CONFLICT (assignment_id, student_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, submission)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create submission rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// ListSubmissionsByStudent returns a student's submissions within an institute.
func (r *AssignmentRepository) ListSubmissionsByStudent(ctx context.Context, studentID, institute string) ([]models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE student_id = $1 AND institute_name = $2`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, studentID, institute); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return submissions, nil
}

// ListSubmissionsByInstitute returns every submission of an institute.
func (r *AssignmentRepository) ListSubmissionsByInstitute(ctx context.Context, institute string) ([]models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE institute_name = $1`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, institute); err != nil {
		return nil, fmt.Errorf("list institute submissions: %w", err)
	}
	return submissions, nil
}
