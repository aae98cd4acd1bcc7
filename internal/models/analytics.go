package models

// Attitude is the overall sentiment bucket a student is classified into.
type Attitude string

const (
	AttitudePositive Attitude = "Positive"
	AttitudeNegative Attitude = "Negative"
	AttitudeNeutral  Attitude = "Neutral"

	// AttitudeUnclassified marks students with too few entries to classify.
	AttitudeUnclassified Attitude = "Insufficient data"
)

// AttitudeStats summarises classified students of an institute.
// Percentages are relative to AnalyzedStudentCount.
type AttitudeStats struct {
	PositivePercent          float64 `json:"positivePercent"`
	NegativePercent          float64 `json:"negativePercent"`
	NeutralPercent           float64 `json:"neutralPercent"`
	AnalyzedStudentCount     int     `json:"analyzedStudentCount"`
	TotalStudentsInInstitute int     `json:"totalStudentsInInstitute"`
}

// AssignmentStats summarises submission behaviour of active students.
type AssignmentStats struct {
	OnTimePercent                      float64 `json:"onTimePercent"`
	LatePercent                        float64 `json:"latePercent"`
	MissedPercent                      float64 `json:"missedPercent"`
	TotalActiveStudentsWithAssignments int     `json:"totalActiveStudentsWithAssignments"`
}
