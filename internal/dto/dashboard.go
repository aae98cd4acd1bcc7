package dto

import (
	"time"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

// StudentDashboardResponse is the personal dashboard of a student.
type StudentDashboardResponse struct {
	StudentID        string                   `json:"studentId"`
	JournalCount     int                      `json:"journalCount"`
	RecentMoods      []RecentMood             `json:"recentMoods"`
	MoodTrend        []MoodTrendPoint         `json:"moodTrend"`
	MoodDistribution []MoodDistributionBin    `json:"moodDistribution"`
	PendingCount     int                      `json:"pendingAssignments"`
	Alerts           []models.AssignmentAlert `json:"alerts"`
}

// RecentMood is a compact journal entry projection.
type RecentMood struct {
	EntryID string      `json:"entryId"`
	Date    time.Time   `json:"date"`
	Mood    models.Mood `json:"mood"`
}

// MoodTrendPoint plots one entry on the 1-5 mood scale.
type MoodTrendPoint struct {
	Date         time.Time   `json:"date"`
	MoodScore    int         `json:"moodScore"`
	OriginalMood models.Mood `json:"originalMood"`
}

// MoodDistributionBin counts entries per mood.
type MoodDistributionBin struct {
	Name  models.Mood `json:"name"`
	Value int         `json:"value"`
}

// InstituteDashboardResponse aggregates institute wide wellbeing signals for staff.
type InstituteDashboardResponse struct {
	InstituteName string                                            `json:"instituteName"`
	Attitude      models.AttitudeStats                              `json:"attitudeStats"`
	Assignments   models.AssignmentStats                            `json:"assignmentStats"`
	DropoutRisk   *models.InsightResult[models.DropoutRiskAnalysis] `json:"dropoutRisk,omitempty"`
	GeneratedAt   time.Time                                         `json:"generatedAt"`
}
