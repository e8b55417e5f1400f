package dto

import (
	"time"

	"github.com/spec-kit/community-access/internal/domain"
)

// CreateVisitorRequest payload.
type CreateVisitorRequest struct {
	AddressID    string    `json:"address_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AccessCode   string    `json:"access_code"`
	GenerateCode bool      `json:"generate_code"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UpdateVisitorRequest partial update payload.
type UpdateVisitorRequest struct {
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	AccessCode *string    `json:"access_code"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// BulkVisitorRequest applies one action to a set of visitor ids.
type BulkVisitorRequest struct {
	Action    string     `json:"action"`
	IDs       []string   `json:"ids"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// InactivateVisitorRequest payload for the single-id revoke route.
type InactivateVisitorRequest struct {
	ID string `json:"id"`
}

// VerifyAccessCodeRequest is the guard-facing verification payload.
type VerifyAccessCodeRequest struct {
	AccessCode string `json:"access_code"`
	AddressID  string `json:"address_id"`
}

// VisitorResponse projection of a visitor record.
type VisitorResponse struct {
	ID         string     `json:"id"`
	AddressID  string     `json:"address_id"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	AccessCode string     `json:"access_code"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewVisitorResponse maps a domain visitor.
func NewVisitorResponse(visitor *domain.Visitor) VisitorResponse {
	return VisitorResponse{
		ID:         visitor.ID,
		AddressID:  visitor.AddressID,
		FirstName:  visitor.FirstName,
		LastName:   visitor.LastName,
		AccessCode: visitor.AccessCode,
		IsActive:   visitor.IsActive,
		ExpiresAt:  visitor.ExpiresAt,
		LastUsed:   visitor.LastUsed,
		CreatedAt:  visitor.CreatedAt,
		UpdatedAt:  visitor.UpdatedAt,
	}
}

// VerifyAccessCodeResponse is the guard-facing verification answer.
type VerifyAccessCodeResponse struct {
	Valid   bool             `json:"valid"`
	Visitor *VisitorResponse `json:"visitor,omitempty"`
	Message string           `json:"message,omitempty"`
}
