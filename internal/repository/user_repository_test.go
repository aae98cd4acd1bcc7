package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func strPtr(v string) *string { return &v }

var userRowColumns = []string{"id", "email", "password_hash", "first_name", "last_name", "role", "institute_name", "is_activated", "is_pre_registered", "last_login", "created_at", "updated_at"}

func TestFindByEmailAndInstitute(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "bob@greenwood.edu", "hash", "Bob", "Smith", string(models.RoleStudent), "greenwood high", true, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, first_name, last_name, role, institute_name, is_activated, is_pre_registered, last_login, created_at, updated_at FROM users WHERE email = $1 AND institute_name = $2 LIMIT 1")).
		WithArgs("bob@greenwood.edu", "greenwood high").
		WillReturnRows(rows)

	user, err := repo.FindByEmailAndInstitute(context.Background(), "bob@greenwood.edu", "greenwood high")
	require.NoError(t, err)
	assert.Equal(t, "Bob Smith", user.FullName())
	assert.True(t, user.HasPassword())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPreRegisteredUserHasNoPassword(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u3", "diana@greenwood.edu", nil, "Diana", "Prince", string(models.RoleStudent), "greenwood high", false, true, nil, now, now)
	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs("u3").WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "u3")
	require.NoError(t, err)
	assert.False(t, user.HasPassword())
	assert.Nil(t, user.LastLogin)
}

func TestFindByIDNotFoundIsUnwrapped(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestAdminChecks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE role = 'ADMIN' AND institute_name = $1)")).
		WithArgs("greenwood high").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM users WHERE role = 'ADMIN' AND email = $1)")).
		WithArgs("new@school.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.AdminExistsForInstitute(context.Background(), "greenwood high")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.AdminEmailExists(context.Background(), "new@school.edu")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "bob@greenwood.edu", "hash", "Bob", "Smith", "STUDENT", "greenwood high", true, true, nil, now, now).
		AddRow("u2", "charlie@greenwood.edu", "hash", "Charlie", "Brown", "STUDENT", "greenwood high", true, true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE institute_name = $1 AND role = 'STUDENT' AND is_activated = TRUE")).
		WithArgs("greenwood high").
		WillReturnRows(rows)

	students, err := repo.ListActiveStudents(context.Background(), "greenwood high")
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestCreateUserDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "bob@greenwood.edu", Role: models.RoleStudent, InstituteName: "greenwood high"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestActivateAlreadyActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = ?, first_name = ?, last_name = ?, is_activated = TRUE, updated_at = ? WHERE id = ? AND is_activated = FALSE AND password_hash IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	user := &models.User{ID: "u3", PasswordHash: strPtr("hash"), FirstName: "Diana", LastName: "Prince"}
	err := repo.Activate(context.Background(), user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, user.IsActivated)
}

func TestActivate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("hash", "Diana", "Prince", sqlmock.AnyArg(), "u3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{ID: "u3", PasswordHash: strPtr("hash"), FirstName: "Diana", LastName: "Prince"}
	require.NoError(t, repo.Activate(context.Background(), user))
	assert.True(t, user.IsActivated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActivatedMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET is_activated").
		WithArgs("ghost", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SetActivated(context.Background(), "ghost", false), sql.ErrNoRows)
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersScopedToInstitute(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	role := models.RoleStudent
	listRows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "bob@greenwood.edu", "hash", "Bob", "Smith", "STUDENT", "greenwood high", true, true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE 1=1 AND institute_name = $1 AND role = $2 ORDER BY last_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("greenwood high", "STUDENT").
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND institute_name = $1 AND role = $2")).
		WithArgs("greenwood high", "STUDENT").
		WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{InstituteName: "greenwood high", Role: &role, SortBy: "last_name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
