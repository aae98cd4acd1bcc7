package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
	"github.com/noah-isme/mindsetu-api/pkg/jobs"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailAndInstitute(ctx context.Context, email, institute string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetActivated(ctx context.Context, id string, active bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

var ErrUserNotFound = appErrors.Clone(appErrors.ErrNotFound, "user not found")

// JobEnqueuer accepts background jobs.
type JobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// PreRegisterRequest names a student or teacher an administrator adds to the roster.
type PreRegisterRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
}

// PreRegisterResponse returns the shell account and a confirmation message.
type PreRegisterResponse struct {
	User    models.UserInfo `json:"user"`
	Message string          `json:"message"`
}

// UserService manages the roster of an institute.
type UserService struct {
	repo      userRepository
	queue     JobEnqueuer
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService. queue and cache are optional.
func NewUserService(repo userRepository, queue JobEnqueuer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, queue: queue, cache: cache, validator: validate, logger: logger}
}

// PreRegisterStudent creates an inactive student record the student later claims at signup.
func (s *UserService) PreRegisterStudent(ctx context.Context, actor *models.JWTClaims, req PreRegisterRequest, meta models.LoginRequest) (*PreRegisterResponse, error) {
	if actor == nil || (actor.Role != models.RoleAdmin && actor.Role != models.RoleTeacher) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can add students.")
	}
	return s.preRegister(ctx, actor, models.RoleStudent, req, meta)
}

// PreRegisterTeacher creates an inactive teacher record.
func (s *UserService) PreRegisterTeacher(ctx context.Context, actor *models.JWTClaims, req PreRegisterRequest, meta models.LoginRequest) (*PreRegisterResponse, error) {
	if actor == nil || (actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can add teachers.")
	}
	return s.preRegister(ctx, actor, models.RoleTeacher, req, meta)
}

func (s *UserService) preRegister(ctx context.Context, actor *models.JWTClaims, role models.UserRole, req PreRegisterRequest, meta models.LoginRequest) (*PreRegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pre-registration payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	institute := actor.InstituteName

	existing, err := s.repo.FindByEmailAndInstitute(ctx, email, institute)
	switch {
	case err == nil:
		return nil, duplicateRosterError(existing, role, email, institute)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}

	user := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Role:            role,
		InstituteName:   institute,
		IsPreRegistered: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("An account for %s at %s already exists with an undetermined status. Please review.", email, institute))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pre-register user")
	}

	payload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	s.audit(ctx, actor.UserID, models.AuditActionPreRegister, user.ID, nil, payload, meta)

	if s.queue != nil {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: InviteJobType,
			Payload: InvitationPayload{
				Email:     user.Email,
				FirstName: user.FirstName,
				Role:      role,
				Institute: institute,
				InvitedBy: actor.FullName,
			},
			Enqueued: time.Now().UTC(),
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue invitation email", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return &PreRegisterResponse{
		User:    models.NewUserInfo(user),
		Message: fmt.Sprintf("%s %s pre-registered. They can now complete their signup.", role.Label(), user.FirstName),
	}, nil
}

func duplicateRosterError(existing *models.User, role models.UserRole, email, institute string) error {
	switch {
	case existing.IsActivated:
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s with email %s already exists and is active at %s.", role.Label(), email, institute))
	case existing.AwaitingClaim():
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s with email %s is already pre-registered and pending activation by the %s.", role.Label(), email, strings.ToLower(role.Label())))
	default:
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("An account for %s at %s already exists with an undetermined status. Please review.", email, institute))
	}
}

// ListRoster returns paginated users of the actor's institute.
func (s *UserService) ListRoster(ctx context.Context, actor *models.JWTClaims, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can view the roster.")
	}
	filter.InstituteName = actor.InstituteName

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Deactivate removes a user of the admin's institute from every aggregate and revokes their sessions.
func (s *UserService) Deactivate(ctx context.Context, actor *models.JWTClaims, id string, meta models.LoginRequest) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can deactivate users.")
	}
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "You cannot deactivate your own account.")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.InstituteName != actor.InstituteName {
		return ErrUserNotFound
	}
	if !user.IsActivated {
		return nil
	}

	if err := s.repo.SetActivated(ctx, id, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("user_id", id), zap.Error(err))
	}
	s.cache.InvalidateInstitute(ctx, user.InstituteName)

	oldPayload, _ := json.Marshal(map[string]interface{}{"active": true})
	newPayload, _ := json.Marshal(map[string]interface{}{"active": false})
	s.audit(ctx, actor.UserID, models.AuditActionDeactivate, id, oldPayload, newPayload, meta)
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, oldValues, newValues []byte, meta models.LoginRequest) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record roster audit log", zap.String("action", action), zap.Error(err))
	}
}
