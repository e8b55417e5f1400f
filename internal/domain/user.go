package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the closed set of community roles.
type Role string

const (
	RoleMember        Role = "MEMBER"
	RoleSecurityGuard Role = "SECURITY_GUARD"
	RoleSystemAdmin   Role = "SYSTEM_ADMIN"
)

// ParseRole normalizes a stored or submitted role value into the closed set.
// The legacy ADMIN value still occurs in older rows and maps to SYSTEM_ADMIN;
// the legacy GUEST value (and anything else) is a decode failure, which keeps
// unknown roles locked out of every gated action.
func ParseRole(value string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(RoleMember):
		return RoleMember, nil
	case string(RoleSecurityGuard):
		return RoleSecurityGuard, nil
	case string(RoleSystemAdmin), "ADMIN":
		return RoleSystemAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// ParseUserStatus validates a submitted status value.
func ParseUserStatus(value string) (UserStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(UserStatusActive):
		return UserStatusActive, nil
	case string(UserStatusSuspended):
		return UserStatusSuspended, nil
	default:
		return "", fmt.Errorf("unknown user status %q", value)
	}
}

// AuthProvider identifies which credential verifier produced the account.
type AuthProvider string

const (
	ProviderPassword AuthProvider = "PASSWORD"
	ProviderOIDC     AuthProvider = "OIDC"
)

// User is the domain model for members, guards and administrators.
// Accounts are never hard-deleted; suspension is status-based.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Provider        AuthProvider
	Role            Role
	Status          UserStatus
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmailVerified reports whether the account completed email verification.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
