package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

func moods(spec map[models.Mood]int) []models.Mood {
	var out []models.Mood
	for m, n := range spec {
		for i := 0; i < n; i++ {
			out = append(out, m)
		}
	}
	return out
}

func TestClassifyAttitude(t *testing.T) {
	tests := []struct {
		name     string
		moods    []models.Mood
		want     models.Attitude
		analyzed bool
	}{
		{"too few entries", moods(map[models.Mood]int{models.MoodHappy: 2}), models.AttitudeUnclassified, false},
		{"four of six positive", moods(map[models.Mood]int{models.MoodHappy: 2, models.MoodCalm: 2, models.MoodSad: 2}), models.AttitudePositive, true},
		{"three of five negative", moods(map[models.Mood]int{models.MoodExcited: 2, models.MoodStressed: 3}), models.AttitudeNegative, true},
		{"tie is neutral", moods(map[models.Mood]int{models.MoodGrateful: 2, models.MoodAnxious: 2}), models.AttitudeNeutral, true},
		{"positive below sixty percent", moods(map[models.Mood]int{models.MoodHappy: 2, models.MoodNeutral: 2}), models.AttitudeNeutral, true},
		{"negative at half", moods(map[models.Mood]int{models.MoodSad: 2, models.MoodNeutral: 2}), models.AttitudeNegative, true},
		{"all neutral", moods(map[models.Mood]int{models.MoodNeutral: 5}), models.AttitudeNeutral, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ClassifyAttitude(tc.moods)
			assert.Equal(t, tc.analyzed, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAggregateAttitudeNoStudents(t *testing.T) {
	stats := AggregateAttitude(nil, map[string]MoodTally{"ghost": {Positive: 5, Total: 5}})
	assert.Equal(t, models.AttitudeStats{}, stats)
}

func TestAggregateAttitudeExcludesUnclassifiedStudents(t *testing.T) {
	students := []models.User{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	tallies := TalliesFromCounts([]models.MoodCount{
		{UserID: "a", Mood: models.MoodHappy, Total: 4},
		{UserID: "b", Mood: models.MoodSad, Total: 3},
		{UserID: "b", Mood: models.MoodHappy, Total: 1},
		{UserID: "c", Mood: models.MoodHappy, Total: 2},
		{UserID: "inactive", Mood: models.MoodSad, Total: 9},
	})

	stats := AggregateAttitude(students, tallies)

	assert.Equal(t, 4, stats.TotalStudentsInInstitute)
	assert.Equal(t, 2, stats.AnalyzedStudentCount)
	assert.InDelta(t, 50, stats.PositivePercent, 0.001)
	assert.InDelta(t, 50, stats.NegativePercent, 0.001)
	assert.Zero(t, stats.NeutralPercent)
}

func TestTalliesFromCountsIgnoresNeutralPolarity(t *testing.T) {
	tallies := TalliesFromCounts([]models.MoodCount{
		{UserID: "a", Mood: models.MoodNeutral, Total: 3},
		{UserID: "a", Mood: models.MoodCalm, Total: 1},
	})
	assert.Equal(t, MoodTally{Positive: 1, Negative: 0, Total: 4}, tallies["a"])
}
