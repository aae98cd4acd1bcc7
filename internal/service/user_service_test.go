package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/jobs"
)

type mockUserRepo struct {
	users      map[string]*models.User
	listFilter models.UserFilter
	revoked    []string
	auditLogs  []*models.AuditLog
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.listFilter = filter
	var out []models.User
	for _, u := range m.users {
		if u.InstituteName == filter.InstituteName {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmailAndInstitute(ctx context.Context, email, institute string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.InstituteName == institute {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) SetActivated(ctx context.Context, id string, active bool) error {
	m.users[id].IsActivated = active
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

var (
	adminClaims   = &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin, FullName: "Alice Admin", InstituteName: "greenwood high"}
	teacherClaims = &models.JWTClaims{UserID: "teacher", Role: models.RoleTeacher, InstituteName: "greenwood high"}
	studentClaims = &models.JWTClaims{UserID: "bob", Role: models.RoleStudent, InstituteName: "greenwood high"}
)

func TestUserServicePreRegisterStudent(t *testing.T) {
	repo := newMockUserRepo()
	queue := &recordingQueue{}
	svc := NewUserService(repo, queue, nil, validator.New(), zap.NewNop())

	res, err := svc.PreRegisterStudent(context.Background(), adminClaims, PreRegisterRequest{FirstName: "Diana", LastName: "Prince", Email: "Diana@Greenwood.edu"}, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Student Diana pre-registered. They can now complete their signup.", res.Message)
	assert.Equal(t, "diana@greenwood.edu", res.User.Email)
	assert.False(t, res.User.IsActivated)

	stored := repo.users[res.User.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.IsPreRegistered)
	assert.Nil(t, stored.PasswordHash)
	assert.Equal(t, "greenwood high", stored.InstituteName)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, InviteJobType, queue.jobs[0].Type)
	payload := queue.jobs[0].Payload.(InvitationPayload)
	assert.Equal(t, "Alice Admin", payload.InvitedBy)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionPreRegister, repo.auditLogs[0].Action)
}

func TestUserServicePreRegisterDuplicates(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "1", Email: "bob@x.io", InstituteName: "greenwood high", IsActivated: true},
		&models.User{ID: "2", Email: "diana@x.io", InstituteName: "greenwood high", IsPreRegistered: true},
		&models.User{ID: "3", Email: "odd@x.io", InstituteName: "greenwood high"},
	)
	svc := NewUserService(repo, nil, nil, nil, nil)
	register := func(email string) error {
		_, err := svc.PreRegisterStudent(context.Background(), teacherClaims, PreRegisterRequest{FirstName: "X", Email: email}, models.LoginRequest{})
		return err
	}

	assertAppError(t, register("bob@x.io"), appErrors.ErrConflict.Code, "Student with email bob@x.io already exists and is active at greenwood high.")
	assertAppError(t, register("diana@x.io"), appErrors.ErrConflict.Code, "Student with email diana@x.io is already pre-registered and pending activation by the student.")
	assertAppError(t, register("odd@x.io"), appErrors.ErrConflict.Code, "An account for odd@x.io at greenwood high already exists with an undetermined status. Please review.")
}

func TestUserServicePreRegisterAuthorization(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil, nil, nil)
	req := PreRegisterRequest{FirstName: "X", Email: "x@y.io"}

	_, err := svc.PreRegisterStudent(context.Background(), studentClaims, req, models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "Unauthorized: Only Admins can add students.")

	_, err = svc.PreRegisterTeacher(context.Background(), teacherClaims, req, models.LoginRequest{})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "Unauthorized: Only Admins can add teachers.")

	res, err := svc.PreRegisterTeacher(context.Background(), adminClaims, req, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	assert.Equal(t, "Teacher X pre-registered. They can now complete their signup.", res.Message)
}

func TestUserServiceListRosterScopesToInstitute(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "1", InstituteName: "greenwood high"},
		&models.User{ID: "2", InstituteName: "oakwood academy"},
	)
	svc := NewUserService(repo, nil, nil, nil, nil)

	users, pagination, err := svc.ListRoster(context.Background(), teacherClaims, models.UserFilter{InstituteName: "oakwood academy"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "greenwood high", repo.listFilter.InstituteName)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)

	_, _, err = svc.ListRoster(context.Background(), studentClaims, models.UserFilter{})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "")
}

func TestUserServiceDeactivate(t *testing.T) {
	repo := newMockUserRepo(
		&models.User{ID: "bob", InstituteName: "greenwood high", IsActivated: true},
		&models.User{ID: "eve", InstituteName: "oakwood academy", IsActivated: true},
	)
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewUserService(repo, nil, cache, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), adminClaims, "bob", models.LoginRequest{}))
	assert.False(t, repo.users["bob"].IsActivated)
	assert.Equal(t, []string{"bob"}, repo.revoked)
	assert.Contains(t, cacheRepo.deleted, CacheKey("*", "greenwood high"))

	assertAppError(t, svc.Deactivate(context.Background(), adminClaims, "eve", models.LoginRequest{}), appErrors.ErrNotFound.Code, "")
	assertAppError(t, svc.Deactivate(context.Background(), teacherClaims, "bob", models.LoginRequest{}), appErrors.ErrForbidden.Code, "")
	assertAppError(t, svc.Deactivate(context.Background(), adminClaims, "admin", models.LoginRequest{}), appErrors.ErrValidation.Code, "")
}
