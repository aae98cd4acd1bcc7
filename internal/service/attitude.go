package service

import "github.com/noah-isme/mindsetu-api/internal/models"

// minEntriesForAttitude is the number of journal entries a student needs before being classified.
const minEntriesForAttitude = 3

// MoodTally counts a student's journal entries by polarity.
type MoodTally struct {
	Positive int
	Negative int
	Total    int
}

// Add records n entries of mood m.
func (t *MoodTally) Add(m models.Mood, n int) {
	t.Total += n
	switch {
	case m.IsPositive():
		t.Positive += n
	case m.IsNegative():
		t.Negative += n
	}
}

// TallyMoods builds a tally from individual entry moods.
func TallyMoods(moods []models.Mood) MoodTally {
	var t MoodTally
	for _, m := range moods {
		t.Add(m, 1)
	}
	return t
}

// TalliesFromCounts groups per-mood entry counts by user.
func TalliesFromCounts(counts []models.MoodCount) map[string]MoodTally {
	tallies := make(map[string]MoodTally)
	for _, c := range counts {
		t := tallies[c.UserID]
		t.Add(c.Mood, c.Total)
		tallies[c.UserID] = t
	}
	return tallies
}

// ClassifyAttitude buckets a student by the moods of their journal entries.
// The boolean is false when the student has too few entries to be classified.
func ClassifyAttitude(moods []models.Mood) (models.Attitude, bool) {
	return TallyMoods(moods).Classify()
}

// Classify applies the attitude thresholds to a tally.
func (t MoodTally) Classify() (models.Attitude, bool) {
	if t.Total < minEntriesForAttitude {
		return models.AttitudeUnclassified, false
	}
	n := float64(t.Total)
	switch {
	case t.Positive > t.Negative && float64(t.Positive) >= 0.6*n:
		return models.AttitudePositive, true
	case t.Negative > t.Positive && float64(t.Negative) >= 0.5*n:
		return models.AttitudeNegative, true
	default:
		return models.AttitudeNeutral, true
	}
}

// AggregateAttitude classifies every active student and reports the share of each bucket among
// the students that could be classified. Tallies of users outside students are ignored.
func AggregateAttitude(students []models.User, tallies map[string]MoodTally) models.AttitudeStats {
	stats := models.AttitudeStats{TotalStudentsInInstitute: len(students)}
	if len(students) == 0 {
		return stats
	}

	var positive, negative, neutral int
	for _, student := range students {
		attitude, ok := tallies[student.ID].Classify()
		if !ok {
			continue
		}
		switch attitude {
		case models.AttitudePositive:
			positive++
		case models.AttitudeNegative:
			negative++
		default:
			neutral++
		}
	}

	analyzed := positive + negative + neutral
	stats.AnalyzedStudentCount = analyzed
	stats.PositivePercent = percent(positive, analyzed)
	stats.NegativePercent = percent(negative, analyzed)
	stats.NeutralPercent = percent(neutral, analyzed)
	return stats
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
