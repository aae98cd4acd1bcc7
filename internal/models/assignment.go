package models

import "time"

// SubmissionStatus is decided once when a submission is recorded.
type SubmissionStatus string

const (
	SubmissionOnTime SubmissionStatus = "On-Time"
	SubmissionLate   SubmissionStatus = "Late"
)

// AssignmentStatus is the per-student status shown when listing assignments.
// Pending and Missed are derived at read time; On-Time and Late come from the submission.
type AssignmentStatus string

const (
	AssignmentPending AssignmentStatus = "Pending"
	AssignmentOnTime  AssignmentStatus = "On-Time"
	AssignmentLate    AssignmentStatus = "Late"
	AssignmentMissed  AssignmentStatus = "Missed"
)

// Assignment is created by staff for every student of an institute.
type Assignment struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	DueDate       time.Time `db:"due_date" json:"due_date"`
	InstituteName string    `db:"institute_name" json:"institute_name"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Submission records that a student turned in an assignment.
type Submission struct {
	ID            string           `db:"id" json:"id"`
	AssignmentID  string           `db:"assignment_id" json:"assignment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	InstituteName string           `db:"institute_name" json:"institute_name"`
	SubmittedAt   time.Time        `db:"submitted_at" json:"submitted_at"`
	Status        SubmissionStatus `db:"status" json:"status"`
}

// CreateAssignmentRequest carries a title and a YYYY-MM-DD due date.
type CreateAssignmentRequest struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

// DisplayableAssignment is an assignment annotated with one student's status.
type DisplayableAssignment struct {
	Assignment
	Status      AssignmentStatus `json:"student_submission_status"`
	SubmittedAt *time.Time       `json:"student_submitted_at,omitempty"`
}

// AlertType drives how an assignment alert is styled.
type AlertType string

const (
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
	AlertSuccess AlertType = "success"
	AlertError   AlertType = "error"
)

// AssignmentAlert is a notification derived from a student's assignment list.
type AssignmentAlert struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Type         AlertType  `json:"type"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}
