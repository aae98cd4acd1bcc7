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

const journalColumns = `id, user_id, entry_date, mood, text, ai_reflection, created_at, updated_at`

// JournalRepository persists mood journal entries.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs the repository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// ListByUser returns a user's entries newest first.
func (r *JournalRepository) ListByUser(ctx context.Context, userID string) ([]models.JournalEntry, error) {
	const query = `SELECT ` + journalColumns + ` FROM journal_entries WHERE user_id = $1 ORDER BY entry_date DESC`
	var entries []models.JournalEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}

// FindForUser loads an entry only when it belongs to userID.
func (r *JournalRepository) FindForUser(ctx context.Context, id, userID string) (*models.JournalEntry, error) {
	const query = `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1 AND user_id = $2`
	var entry models.JournalEntry
	if err := r.db.GetContext(ctx, &entry, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find journal entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a journal entry.
func (r *JournalRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.Date.IsZero() {
		entry.Date = now
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO journal_entries (` + journalColumns + `) VALUES (:id, :user_id, :entry_date, :mood, :text, :ai_reflection, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create journal entry: %w", err)
	}
	return nil
}

// Update saves mood and text of an owned entry.
func (r *JournalRepository) Update(ctx context.Context, entry *models.JournalEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE journal_entries SET mood = :mood, text = :text, updated_at = :updated_at WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update journal entry: %w", err)
	}
	return requireAffected(res, "update journal entry")
}

// SetReflection stores the AI reflection of an owned entry.
func (r *JournalRepository) SetReflection(ctx context.Context, id, userID, reflection string) error {
	const query = `UPDATE journal_entries SET ai_reflection = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, reflection, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set journal reflection: %w", err)
	}
	return requireAffected(res, "set journal reflection")
}

// Delete removes an owned entry.
func (r *JournalRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return requireAffected(res, "delete journal entry")
}

// MoodCountsByInstitute tallies moods per active student of an institute.
func (r *JournalRepository) MoodCountsByInstitute(ctx context.Context, institute string) ([]models.MoodCount, error) {
	const query = `SELECT j.user_id, j.mood, COUNT(*) AS total
FROM journal_entries j
JOIN users u ON u.id = j.user_id
WHERE u.institute_name = $1 AND u.role = 'STUDENT' AND u.is_activated = TRUE
GROUP BY j.user_id, j.mood`
	var counts []models.MoodCount
	if err := r.db.SelectContext(ctx, &counts, query, institute); err != nil {
		return nil, fmt.Errorf("count moods by institute: %w", err)
	}
	return counts, nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
