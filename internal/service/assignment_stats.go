package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

const (
	dueSoonWindow      = 48 * time.Hour
	recentSubmitWindow = 24 * time.Hour
	alertDateLayout    = "1/2/2006"
)

// ComputeAssignmentStats aggregates submission behaviour of the active students of an institute.
// Submissions by students outside activeStudents are ignored. Missed is measured over every
// (past-due assignment, active student) pair.
func ComputeAssignmentStats(now time.Time, assignments []models.Assignment, submissions []models.Submission, activeStudents []models.User) models.AssignmentStats {
	active := make(map[string]struct{}, len(activeStudents))
	for _, s := range activeStudents {
		active[s.ID] = struct{}{}
	}

	submitted := make(map[submissionKey]struct{}, len(submissions))
	var onTime, late int
	for _, sub := range submissions {
		submitted[submissionKey{sub.AssignmentID, sub.StudentID}] = struct{}{}
		if _, ok := active[sub.StudentID]; !ok {
			continue
		}
		switch sub.Status {
		case models.SubmissionOnTime:
			onTime++
		case models.SubmissionLate:
			late++
		}
	}

	var stats models.AssignmentStats
	stats.OnTimePercent = percent(onTime, onTime+late)
	stats.LatePercent = percent(late, onTime+late)

	var pastDue []models.Assignment
	for _, a := range assignments {
		if a.DueDate.Before(now) {
			pastDue = append(pastDue, a)
		}
	}
	if len(activeStudents) == 0 || len(pastDue) == 0 {
		return stats
	}

	missed := 0
	for _, student := range activeStudents {
		for _, a := range pastDue {
			if _, ok := submitted[submissionKey{a.ID, student.ID}]; !ok {
				missed++
			}
		}
	}
	stats.TotalActiveStudentsWithAssignments = len(activeStudents)
	stats.MissedPercent = percent(missed, len(activeStudents)*len(pastDue))
	return stats
}

type submissionKey struct {
	assignmentID string
	studentID    string
}

// SubmissionStatusAt decides the persisted status of a submission made at submittedAt.
func SubmissionStatusAt(submittedAt, dueDate time.Time) models.SubmissionStatus {
	if submittedAt.After(dueDate) {
		return models.SubmissionLate
	}
	return models.SubmissionOnTime
}

// BuildStudentAssignments annotates each assignment with the student's status and orders the
// result by due date.
func BuildStudentAssignments(now time.Time, assignments []models.Assignment, submissions []models.Submission) []models.DisplayableAssignment {
	byAssignment := make(map[string]models.Submission, len(submissions))
	for _, sub := range submissions {
		byAssignment[sub.AssignmentID] = sub
	}

	result := make([]models.DisplayableAssignment, 0, len(assignments))
	for _, a := range assignments {
		item := models.DisplayableAssignment{Assignment: a, Status: models.AssignmentPending}
		if sub, ok := byAssignment[a.ID]; ok {
			submittedAt := sub.SubmittedAt
			item.SubmittedAt = &submittedAt
			item.Status = models.AssignmentStatus(sub.Status)
		} else if a.DueDate.Before(now) {
			item.Status = models.AssignmentMissed
		}
		result = append(result, item)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result
}

var alertRank = map[models.AlertType]int{
	models.AlertError:   0,
	models.AlertWarning: 1,
	models.AlertInfo:    2,
	models.AlertSuccess: 3,
}

// BuildAssignmentAlerts derives notifications from a student's assignment list: pending work due
// within two days, missed deadlines and submissions made in the last day.
func BuildAssignmentAlerts(now time.Time, items []models.DisplayableAssignment) []models.AssignmentAlert {
	alerts := make([]models.AssignmentAlert, 0)
	for _, item := range items {
		due := item.DueDate
		dueText := due.Format(alertDateLayout)

		switch item.Status {
		case models.AssignmentPending:
			if !due.Before(now) && !due.After(now.Add(dueSoonWindow)) {
				alerts = append(alerts, models.AssignmentAlert{
					ID:           "alert_upcoming_" + item.ID,
					AssignmentID: item.ID,
					Title:        item.Title,
					Message:      fmt.Sprintf("Reminder: %q is due on %s.", item.Title, dueText),
					Type:         models.AlertWarning,
					DueDate:      &due,
				})
			}
		case models.AssignmentMissed:
			alerts = append(alerts, models.AssignmentAlert{
				ID:           "alert_missed_" + item.ID,
				AssignmentID: item.ID,
				Title:        item.Title,
				Message:      fmt.Sprintf("Attention: You missed the deadline for %q which was due on %s.", item.Title, dueText),
				Type:         models.AlertError,
				DueDate:      &due,
			})
		}

		if item.SubmittedAt == nil || now.Sub(*item.SubmittedAt) >= recentSubmitWindow {
			continue
		}
		switch item.Status {
		case models.AssignmentOnTime:
			alerts = append(alerts, models.AssignmentAlert{
				ID:           "alert_submitted_ontime_" + item.ID,
				AssignmentID: item.ID,
				Title:        item.Title,
				Message:      fmt.Sprintf("Great job! You submitted %q on time.", item.Title),
				Type:         models.AlertSuccess,
			})
		case models.AssignmentLate:
			alerts = append(alerts, models.AssignmentAlert{
				ID:           "alert_submitted_late_" + item.ID,
				AssignmentID: item.ID,
				Title:        item.Title,
				Message:      fmt.Sprintf("You submitted %q late. Remember to check due dates.", item.Title),
				Type:         models.AlertInfo,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if alertRank[a.Type] != alertRank[b.Type] {
			return alertRank[a.Type] < alertRank[b.Type]
		}
		if a.DueDate != nil && b.DueDate != nil {
			return a.DueDate.Before(*b.DueDate)
		}
		return false
	})
	return alerts
}
