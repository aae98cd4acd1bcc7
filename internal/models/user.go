package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// Label returns the human readable role name used in user-facing messages.
func (r UserRole) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "SuperAdmin"
	case RoleAdmin:
		return "Admin"
	case RoleTeacher:
		return "Teacher"
	case RoleStudent:
		return "Student"
	default:
		return string(r)
	}
}

// IsStaff reports whether the role manages an institute rather than belonging to it as a student.
func (r UserRole) IsStaff() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleTeacher
}

// User represents an application user stored in the users table.
// Pre-registered users have no password hash until they claim the account.
type User struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    *string    `db:"password_hash" json:"-"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Role            UserRole   `db:"role" json:"role"`
	InstituteName   string     `db:"institute_name" json:"institute_name"`
	IsActivated     bool       `db:"is_activated" json:"is_activated"`
	IsPreRegistered bool       `db:"is_pre_registered" json:"is_pre_registered"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPassword reports whether credentials were set for the account.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// AwaitingClaim reports whether a pre-registered account was never claimed. A claimed
// account that was later deactivated keeps its password and is not claimable again.
func (u User) AwaitingClaim() bool {
	return u.IsPreRegistered && !u.IsActivated && !u.HasPassword()
}

// UserFilter captures filtering criteria for listing users of an institute.
type UserFilter struct {
	InstituteName string
	Role          *UserRole
	Active        *bool
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizeInstitute lowercases and trims an institute name the way it is stored.
func NormalizeInstitute(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
