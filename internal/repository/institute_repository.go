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

// InstituteRepository persists registered institutes.
type InstituteRepository struct {
	db *sqlx.DB
}

// NewInstituteRepository constructs the repository.
func NewInstituteRepository(db *sqlx.DB) *InstituteRepository {
	return &InstituteRepository{db: db}
}

// FindByName looks up an institute by its normalised name.
func (r *InstituteRepository) FindByName(ctx context.Context, name string) (*models.Institute, error) {
	const query = `SELECT id, name, created_by, created_at FROM institutes WHERE name = $1 LIMIT 1`
	var institute models.Institute
	if err := r.db.GetContext(ctx, &institute, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find institute: %w", err)
	}
	return &institute, nil
}

// List returns all institutes ordered by name.
func (r *InstituteRepository) List(ctx context.Context) ([]models.Institute, error) {
	const query = `SELECT id, name, created_by, created_at FROM institutes ORDER BY name`
	var institutes []models.Institute
	if err := r.db.SelectContext(ctx, &institutes, query); err != nil {
		return nil, fmt.Errorf("list institutes: %w", err)
	}
	return institutes, nil
}

// CreateWithAdmin registers an institute together with its first admin in one transaction.
// A second admin for the same institute yields ErrDuplicate.
func (r *InstituteRepository) CreateWithAdmin(ctx context.Context, institute *models.Institute, admin *models.User) error {
	if institute.ID == "" {
		institute.ID = uuid.NewString()
	}
	if institute.CreatedAt.IsZero() {
		institute.CreatedAt = time.Now().UTC()
	}
	prepareUser(admin)
	institute.CreatedBy = &admin.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin institute tx: %w", err)
	}
	const insertInstitute = `INSERT INTO institutes (id, name, created_by, created_at) VALUES (:id, :name, :created_by, :created_at) ON CONFLICT (name) DO NOTHING`
	if _, err := tx.NamedExecContext(ctx, insertInstitute, institute); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create institute: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertUserQuery, admin); err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create institute admin: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit institute tx: %w", err)
	}
	return nil
}
