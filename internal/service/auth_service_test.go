package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/identity"
)

type mockAuthRepo struct {
	users               map[string]*models.User
	refreshTokens       map[string]*models.RefreshToken
	findErr             error
	revokeUserTokensErr error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: make(map[string]*models.User), refreshTokens: make(map[string]*models.RefreshToken)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmailAndInstitute(ctx context.Context, email, institute string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email && u.InstituteName == institute {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) AdminExistsForInstitute(ctx context.Context, institute string) (bool, error) {
	for _, u := range m.users {
		if u.Role == models.RoleAdmin && u.InstituteName == institute {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepo) AdminEmailExists(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Role == models.RoleAdmin && u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepo) Activate(ctx context.Context, user *models.User) error {
	stored, ok := m.users[user.ID]
	if !ok || stored.IsActivated {
		return sql.ErrNoRows
	}
	user.IsActivated = true
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = &passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockInstituteRepo struct {
	institutes map[string]*models.Institute
	users      *mockAuthRepo
	createErr  error
}

func (m *mockInstituteRepo) FindByName(ctx context.Context, name string) (*models.Institute, error) {
	if inst, ok := m.institutes[name]; ok {
		return inst, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInstituteRepo) CreateWithAdmin(ctx context.Context, institute *models.Institute, admin *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if admin.ID == "" {
		admin.ID = "admin-" + institute.Name
	}
	if m.institutes == nil {
		m.institutes = make(map[string]*models.Institute)
	}
	m.institutes[institute.Name] = institute
	if m.users != nil {
		m.users.users[admin.ID] = admin
	}
	return nil
}

type stubVerifier struct {
	identity *identity.Identity
	err      error
}

func (s stubVerifier) Verify(ctx context.Context, idToken string) (*identity.Identity, error) {
	return s.identity, s.err
}

func hashPassword(t *testing.T, raw string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	value := string(hash)
	return &value
}

func newTestAuthService(repo *mockAuthRepo, institutes *mockInstituteRepo, verifier identity.Verifier) *AuthService {
	if institutes == nil {
		institutes = &mockInstituteRepo{users: repo}
	}
	return NewAuthService(repo, institutes, verifier, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(&models.User{
		ID: "u1", Email: "bob@example.com", PasswordHash: hashPassword(t, "password123"),
		FirstName: "Bob", LastName: "Johnson", Role: models.RoleStudent, InstituteName: "greenwood high", IsActivated: true,
	})
	svc := newTestAuthService(repo, nil, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Bob@example.com", Password: "password123", InstituteName: "Greenwood High "})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "greenwood high", res.User.InstituteName)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Bob Johnson", claims.FullName)
	assert.Equal(t, "greenwood high", claims.InstituteName)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	repo := newMockAuthRepo(
		&models.User{ID: "active", Email: "a@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleStudent, InstituteName: "oak", IsActivated: true},
		&models.User{ID: "pre", Email: "pre@x.io", Role: models.RoleStudent, InstituteName: "oak", IsPreRegistered: true},
		&models.User{ID: "claimed", Email: "claimed@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleStudent, InstituteName: "oak", IsPreRegistered: true},
		&models.User{ID: "off", Email: "off@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleStudent, InstituteName: "oak"},
		&models.User{ID: "teacher", Email: "t@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleTeacher, InstituteName: "oak"},
		&models.User{ID: "nopass", Email: "np@x.io", Role: models.RoleStudent, InstituteName: "oak", IsActivated: true},
	)
	svc := newTestAuthService(repo, nil, nil)

	tests := []struct {
		name    string
		email   string
		pass    string
		code    string
		message string
	}{
		{"unknown user", "nobody@x.io", "secret1", appErrors.ErrInvalidCredentials.Code, "Invalid email, institute, or user not found."},
		{"wrong password", "a@x.io", "nope", appErrors.ErrInvalidCredentials.Code, "Invalid password."},
		{"pre-registered student", "pre@x.io", "secret1", appErrors.ErrInactiveAccount.Code, "Your account has been pre-registered. Please complete the signup process to activate your account and set your password."},
		{"claimed then deactivated student", "claimed@x.io", "secret1", appErrors.ErrInactiveAccount.Code, "Your student account is not active. Please contact your institute administrator."},
		{"deactivated student", "off@x.io", "secret1", appErrors.ErrInactiveAccount.Code, "Your student account is not active. Please contact your institute administrator."},
		{"inactive teacher", "t@x.io", "secret1", appErrors.ErrInactiveAccount.Code, "This account is not currently active."},
		{"no password set", "np@x.io", "anything", appErrors.ErrInvalidCredentials.Code, "Invalid password."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), models.LoginRequest{Email: tc.email, Password: tc.pass, InstituteName: "oak"})
			assertAppError(t, err, tc.code, tc.message)
		})
	}
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo(), nil, nil)
	base := models.SignupRequest{FirstName: "A", Email: "a@x.io", Password: "secret1", ConfirmPassword: "secret1", Role: models.RoleAdmin, InstituteName: "Oak"}

	short := base
	short.Password, short.ConfirmPassword = "123", "123"
	_, err := svc.Signup(context.Background(), short)
	assertAppError(t, err, appErrors.ErrValidation.Code, "Password must be at least 6 characters long.")

	mismatch := base
	mismatch.ConfirmPassword = "secret2"
	_, err = svc.Signup(context.Background(), mismatch)
	assertAppError(t, err, appErrors.ErrValidation.Code, "Passwords do not match.")

	noInstitute := base
	noInstitute.InstituteName = "  "
	_, err = svc.Signup(context.Background(), noInstitute)
	assertAppError(t, err, appErrors.ErrValidation.Code, "Institute name is required.")
}

func TestAuthServiceSignupAdmin(t *testing.T) {
	repo := newMockAuthRepo()
	institutes := &mockInstituteRepo{users: repo}
	svc := newTestAuthService(repo, institutes, nil)
	req := models.SignupRequest{FirstName: "Alice", LastName: "Admin", Email: "alice@x.io", Password: "secret1", ConfirmPassword: "secret1", Role: models.RoleAdmin, InstituteName: "Greenwood High"}

	res, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "greenwood high", res.User.InstituteName)
	assert.True(t, res.User.IsActivated)
	assert.Contains(t, institutes.institutes, "greenwood high")

	again := req
	again.Email = "other@x.io"
	_, err = svc.Signup(context.Background(), again)
	assertAppError(t, err, appErrors.ErrConflict.Code, "An admin for institute 'Greenwood High' already exists.")

	sameEmail := req
	sameEmail.InstituteName = "Oakwood"
	_, err = svc.Signup(context.Background(), sameEmail)
	assertAppError(t, err, appErrors.ErrConflict.Code, "This email is already registered by an administrator.")
}

func TestAuthServiceSignupAdminRaceMapsToConflict(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo, &mockInstituteRepo{createErr: repository.ErrDuplicate}, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{FirstName: "A", Email: "a@x.io", Password: "secret1", ConfirmPassword: "secret1", Role: models.RoleAdmin, InstituteName: "Oak"})
	assertAppError(t, err, appErrors.ErrConflict.Code, "An admin for institute 'Oak' already exists.")
}

func TestAuthServiceClaimStudentAccount(t *testing.T) {
	pre := &models.User{ID: "s1", Email: "diana@x.io", FirstName: "Diana", Role: models.RoleStudent, InstituteName: "greenwood high", IsPreRegistered: true}
	repo := newMockAuthRepo(pre)
	institutes := &mockInstituteRepo{institutes: map[string]*models.Institute{"greenwood high": {Name: "greenwood high"}}}
	svc := newTestAuthService(repo, institutes, nil)
	req := models.SignupRequest{FirstName: "Diana", LastName: "Prince", Email: "diana@x.io", Password: "secret1", ConfirmPassword: "secret1", Role: models.RoleStudent, InstituteName: "Greenwood High"}

	res, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Account activated successfully! You can now log in.", res.Message)
	assert.True(t, repo.users["s1"].IsActivated)
	assert.Equal(t, "Prince", repo.users["s1"].LastName)

	_, err = svc.Signup(context.Background(), req)
	assertAppError(t, err, appErrors.ErrConflict.Code, "This account is already active. Please try logging in.")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "diana@x.io", Password: "secret1", InstituteName: "greenwood high"})
	require.NoError(t, err)
}

func TestAuthServiceDeactivatedStudentCannotReclaim(t *testing.T) {
	pre := &models.User{ID: "s1", Email: "bob@x.io", FirstName: "Bob", Role: models.RoleStudent, InstituteName: "oak", IsPreRegistered: true}
	authRepo := newMockAuthRepo(pre)
	institutes := &mockInstituteRepo{institutes: map[string]*models.Institute{"oak": {Name: "oak"}}}
	auth := newTestAuthService(authRepo, institutes, nil)
	roster := NewUserService(&mockUserRepo{users: authRepo.users}, nil, nil, validator.New(), zap.NewNop())
	signup := models.SignupRequest{FirstName: "Bob", Email: "bob@x.io", Password: "secret1", ConfirmPassword: "secret1", Role: models.RoleStudent, InstituteName: "oak"}

	_, err := auth.Signup(context.Background(), signup)
	require.NoError(t, err)

	admin := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin, InstituteName: "oak"}
	require.NoError(t, roster.Deactivate(context.Background(), admin, "s1", models.LoginRequest{}))
	require.False(t, authRepo.users["s1"].IsActivated)

	again := signup
	again.Password, again.ConfirmPassword = "newpass1", "newpass1"
	_, err = auth.Signup(context.Background(), again)
	assertAppError(t, err, appErrors.ErrInactiveAccount.Code, "Your student account is not active. Please contact your institute administrator.")
	assert.False(t, authRepo.users["s1"].IsActivated)

	_, err = auth.Login(context.Background(), models.LoginRequest{Email: "bob@x.io", Password: "secret1", InstituteName: "oak"})
	assertAppError(t, err, appErrors.ErrInactiveAccount.Code, "Your student account is not active. Please contact your institute administrator.")
	_, err = auth.Login(context.Background(), models.LoginRequest{Email: "bob@x.io", Password: "newpass1", InstituteName: "oak"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials.Code, "Invalid password.")
}

func TestAuthServiceClaimFailures(t *testing.T) {
	repo := newMockAuthRepo(
		&models.User{ID: "self", Email: "self@x.io", Role: models.RoleStudent, InstituteName: "oak"},
		&models.User{ID: "teacher", Email: "teach@x.io", Role: models.RoleTeacher, InstituteName: "oak", IsPreRegistered: true},
	)
	institutes := &mockInstituteRepo{institutes: map[string]*models.Institute{"oak": {Name: "oak"}}}
	svc := newTestAuthService(repo, institutes, nil)
	claim := func(email, institute string, role models.UserRole) error {
		_, err := svc.Signup(context.Background(), models.SignupRequest{FirstName: "X", Email: email, Password: "secret1", ConfirmPassword: "secret1", Role: role, InstituteName: institute})
		return err
	}

	assertAppError(t, claim("self@x.io", "Pine", models.RoleStudent), appErrors.ErrNotFound.Code, "Institute 'Pine' is not registered with Mindsetu. Please contact your institute administrator.")
	assertAppError(t, claim("ghost@x.io", "oak", models.RoleStudent), appErrors.ErrNotFound.Code, "You have not been pre-registered by an administrator for this institute. Please contact them.")
	assertAppError(t, claim("teach@x.io", "oak", models.RoleStudent), appErrors.ErrNotFound.Code, "")
	assertAppError(t, claim("self@x.io", "oak", models.RoleStudent), appErrors.ErrForbidden.Code, "This account was not pre-registered by an administrator. Please contact them.")
	require.NoError(t, claim("teach@x.io", "oak", models.RoleTeacher))
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "a@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleAdmin, InstituteName: "oak", IsActivated: true})
	svc := newTestAuthService(repo, nil, nil)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.io", Password: "secret1", InstituteName: "oak"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assertAppError(t, err, appErrors.ErrUnauthorized.Code, "refresh token is expired or revoked")
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "a@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleAdmin, InstituteName: "oak", IsActivated: true})
	svc := newTestAuthService(repo, nil, nil)
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.io", Password: "secret1", InstituteName: "oak"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", "", "")
	assertAppError(t, err, appErrors.ErrForbidden.Code, "")

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1", "127.0.0.1", "test"))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "a@x.io", PasswordHash: hashPassword(t, "secret1"), Role: models.RoleAdmin, InstituteName: "oak", IsActivated: true})
	svc := newTestAuthService(repo, nil, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "secret2"})
	assertAppError(t, err, appErrors.ErrForbidden.Code, "")

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "secret1", NewPassword: "secret2"}))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(*repo.users["u1"].PasswordHash), []byte("secret2")))
}

func TestAuthServiceExchangeFirebaseToken(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "a@x.io", Role: models.RoleTeacher, InstituteName: "oak", IsActivated: true})

	disabled := newTestAuthService(repo, nil, nil)
	_, err := disabled.ExchangeFirebaseToken(context.Background(), models.FirebaseLoginRequest{IDToken: "t", InstituteName: "oak"})
	assertAppError(t, err, appErrors.ErrFeatureDisabled.Code, "")

	rejected := newTestAuthService(repo, nil, stubVerifier{err: errors.New("expired")})
	_, err = rejected.ExchangeFirebaseToken(context.Background(), models.FirebaseLoginRequest{IDToken: "t", InstituteName: "oak"})
	assertAppError(t, err, appErrors.ErrUnauthorized.Code, "")

	svc := newTestAuthService(repo, nil, stubVerifier{identity: &identity.Identity{UID: "fb", Email: "a@x.io"}})
	res, err := svc.ExchangeFirebaseToken(context.Background(), models.FirebaseLoginRequest{IDToken: "t", InstituteName: "Oak"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
}

func TestAuthServiceMe(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "a@x.io", FirstName: "Ann", Role: models.RoleStudent, InstituteName: "oak", IsActivated: true})
	svc := newTestAuthService(repo, nil, nil)

	me, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", me.FirstName)

	_, err = svc.Me(context.Background(), "missing")
	assertAppError(t, err, appErrors.ErrNotFound.Code, "")
}
