package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

var statsNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestComputeAssignmentStatsMissedSinglePair(t *testing.T) {
	assignments := []models.Assignment{{ID: "a1", DueDate: statsNow.Add(-24 * time.Hour)}}
	students := []models.User{{ID: "s1"}}

	stats := ComputeAssignmentStats(statsNow, assignments, nil, students)

	assert.Equal(t, 100.0, stats.MissedPercent)
	assert.Zero(t, stats.OnTimePercent)
	assert.Zero(t, stats.LatePercent)
	assert.Equal(t, 1, stats.TotalActiveStudentsWithAssignments)
}

func TestComputeAssignmentStatsIgnoresInactiveSubmitters(t *testing.T) {
	assignments := []models.Assignment{
		{ID: "past", DueDate: statsNow.Add(-48 * time.Hour)},
		{ID: "future", DueDate: statsNow.Add(48 * time.Hour)},
	}
	submissions := []models.Submission{
		{AssignmentID: "past", StudentID: "s1", Status: models.SubmissionLate},
		{AssignmentID: "future", StudentID: "s1", Status: models.SubmissionOnTime},
		{AssignmentID: "future", StudentID: "s2", Status: models.SubmissionOnTime},
		{AssignmentID: "past", StudentID: "gone", Status: models.SubmissionLate},
	}
	students := []models.User{{ID: "s1"}, {ID: "s2"}}

	stats := ComputeAssignmentStats(statsNow, assignments, submissions, students)

	assert.InDelta(t, 66.666, stats.OnTimePercent, 0.01)
	assert.InDelta(t, 33.333, stats.LatePercent, 0.01)
	assert.Equal(t, 50.0, stats.MissedPercent)
	assert.Equal(t, 2, stats.TotalActiveStudentsWithAssignments)
}

func TestComputeAssignmentStatsNoPastDue(t *testing.T) {
	assignments := []models.Assignment{{ID: "a1", DueDate: statsNow.Add(time.Hour)}}
	stats := ComputeAssignmentStats(statsNow, assignments, nil, []models.User{{ID: "s1"}})
	assert.Equal(t, models.AssignmentStats{}, stats)
}

func TestSubmissionStatusAt(t *testing.T) {
	due := statsNow
	assert.Equal(t, models.SubmissionOnTime, SubmissionStatusAt(due.Add(-time.Minute), due))
	assert.Equal(t, models.SubmissionOnTime, SubmissionStatusAt(due, due))
	assert.Equal(t, models.SubmissionLate, SubmissionStatusAt(due.Add(time.Millisecond), due))
}

func TestBuildStudentAssignmentsAndAlerts(t *testing.T) {
	assignments := []models.Assignment{
		{ID: "later", Title: "Essay", DueDate: statsNow.Add(10 * 24 * time.Hour)},
		{ID: "soon", Title: "Algebra", DueDate: statsNow.Add(24 * time.Hour)},
		{ID: "missed", Title: "Lab", DueDate: statsNow.Add(-2 * 24 * time.Hour)},
		{ID: "done", Title: "Quiz", DueDate: statsNow.Add(-3 * 24 * time.Hour)},
	}
	submissions := []models.Submission{
		{AssignmentID: "done", Status: models.SubmissionLate, SubmittedAt: statsNow.Add(-2 * time.Hour)},
	}

	items := BuildStudentAssignments(statsNow, assignments, submissions)
	require.Len(t, items, 4)
	assert.Equal(t, []string{"done", "missed", "soon", "later"}, []string{items[0].ID, items[1].ID, items[2].ID, items[3].ID})
	assert.Equal(t, models.AssignmentLate, items[0].Status)
	require.NotNil(t, items[0].SubmittedAt)
	assert.Equal(t, models.AssignmentMissed, items[1].Status)
	assert.Equal(t, models.AssignmentPending, items[2].Status)
	assert.Equal(t, models.AssignmentPending, items[3].Status)

	alerts := BuildAssignmentAlerts(statsNow, items)
	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertError, alerts[0].Type)
	assert.Equal(t, "alert_missed_missed", alerts[0].ID)
	assert.Equal(t, models.AlertWarning, alerts[1].Type)
	assert.Equal(t, `Reminder: "Algebra" is due on 5/11/2024.`, alerts[1].Message)
	assert.Equal(t, models.AlertInfo, alerts[2].Type)
	assert.Equal(t, "alert_submitted_late_done", alerts[2].ID)
}
