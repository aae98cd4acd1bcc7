package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest registers an admin or claims a pre-registered student/teacher account.
type SignupRequest struct {
	FirstName       string   `json:"first_name" validate:"required"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
	Role            UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT"`
	InstituteName   string   `json:"institute_name"`
}

// SignupResponse describes the created or activated account.
type SignupResponse struct {
	User    UserInfo `json:"user"`
	Message string   `json:"message,omitempty"`
}

// LoginRequest holds credentials for authenticating a user within an institute.
type LoginRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	InstituteName string `json:"institute_name" validate:"required"`
	IP            string `json:"-"`
	UserAgent     string `json:"-"`
}

// FirebaseLoginRequest exchanges a Firebase ID token for an API session.
type FirebaseLoginRequest struct {
	IDToken       string `json:"id_token" validate:"required"`
	InstituteName string `json:"institute_name" validate:"required"`
	IP            string `json:"-"`
	UserAgent     string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FirstName     string   `json:"first_name"`
	LastName      string   `json:"last_name"`
	Role          UserRole `json:"role"`
	InstituteName string   `json:"institute_name"`
	IsActivated   bool     `json:"is_activated"`
}

// NewUserInfo projects a user onto its public representation.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		InstituteName: u.InstituteName,
		IsActivated:   u.IsActivated,
	}
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID        string   `json:"user_id"`
	Role          UserRole `json:"role"`
	Email         string   `json:"email"`
	FullName      string   `json:"full_name"`
	InstituteName string   `json:"institute_name"`
	jwt.RegisteredClaims
}
