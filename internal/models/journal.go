package models

import "time"

// Mood is one of the fixed labels a journal entry can carry.
type Mood string

const (
	MoodHappy    Mood = "Happy"
	MoodSad      Mood = "Sad"
	MoodAnxious  Mood = "Anxious"
	MoodCalm     Mood = "Calm"
	MoodNeutral  Mood = "Neutral"
	MoodExcited  Mood = "Excited"
	MoodStressed Mood = "Stressed"
	MoodGrateful Mood = "Grateful"
)

// MoodOptions lists moods in picker order.
var MoodOptions = []Mood{
	MoodHappy,
	MoodExcited,
	MoodGrateful,
	MoodCalm,
	MoodNeutral,
	MoodAnxious,
	MoodStressed,
	MoodSad,
}

// Valid reports whether m is a known mood label.
func (m Mood) Valid() bool {
	for _, option := range MoodOptions {
		if option == m {
			return true
		}
	}
	return false
}

// IsPositive reports membership in the positive mood set.
func (m Mood) IsPositive() bool {
	switch m {
	case MoodHappy, MoodExcited, MoodGrateful, MoodCalm:
		return true
	}
	return false
}

// IsNegative reports membership in the negative mood set. Neutral is neither.
func (m Mood) IsNegative() bool {
	switch m {
	case MoodSad, MoodAnxious, MoodStressed:
		return true
	}
	return false
}

// Score maps a mood onto the 1-5 scale used by the mood trend chart.
func (m Mood) Score() int {
	switch m {
	case MoodSad, MoodStressed:
		return 1
	case MoodAnxious:
		return 2
	case MoodCalm, MoodGrateful:
		return 4
	case MoodHappy, MoodExcited:
		return 5
	default:
		return 3
	}
}

// JournalEntry is a mood journal record owned by a single user.
type JournalEntry struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Date         time.Time `db:"entry_date" json:"date"`
	Mood         Mood      `db:"mood" json:"mood"`
	Text         string    `db:"text" json:"text"`
	AIReflection *string   `db:"ai_reflection" json:"ai_reflection,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CreateJournalEntryRequest is the payload for a new entry. Date defaults to now.
type CreateJournalEntryRequest struct {
	Mood Mood       `json:"mood" validate:"required,oneof=Happy Sad Anxious Calm Neutral Excited Stressed Grateful"`
	Text string     `json:"text" validate:"required,max=10000"`
	Date *time.Time `json:"date,omitempty"`
}

// UpdateJournalEntryRequest edits the text and/or mood of an entry.
type UpdateJournalEntryRequest struct {
	Mood *Mood   `json:"mood,omitempty" validate:"omitempty,oneof=Happy Sad Anxious Calm Neutral Excited Stressed Grateful"`
	Text *string `json:"text,omitempty" validate:"omitempty,max=10000"`
}

// MoodCount pairs a user with how many entries of a given polarity they wrote.
type MoodCount struct {
	UserID string `db:"user_id"`
	Mood   Mood   `db:"mood"`
	Total  int    `db:"total"`
}
