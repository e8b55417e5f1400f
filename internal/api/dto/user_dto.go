package dto

import (
	"time"

	"github.com/spec-kit/community-access/internal/domain"
)

// RegisterRequest payload for new members.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenLoginRequest payload for the external identity provider exchange.
type TokenLoginRequest struct {
	IDToken string `json:"id_token"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResendVerificationRequest payload for the public resend endpoint.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse is the safe projection of an account.
type UserResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Provider      domain.AuthProvider `json:"provider"`
	Role          domain.Role         `json:"role"`
	Status        domain.UserStatus   `json:"status"`
	EmailVerified bool                `json:"email_verified"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Provider:      user.Provider,
		Role:          user.Role,
		Status:        user.Status,
		EmailVerified: user.EmailVerified(),
		CreatedAt:     user.CreatedAt,
	}
}
