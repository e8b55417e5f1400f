package dto

import (
	"time"

	"github.com/spec-kit/community-access/internal/domain"
)

// CreateAddressRequest payload.
type CreateAddressRequest struct {
	AddressText string `json:"address_text"`
}

// AddressResponse projection of an address record.
type AddressResponse struct {
	ID          string               `json:"id"`
	AddressText string               `json:"address_text"`
	Status      domain.AddressStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewAddressResponse maps a domain address.
func NewAddressResponse(address *domain.Address) AddressResponse {
	return AddressResponse{
		ID:          address.ID,
		AddressText: address.AddressText,
		Status:      address.Status,
		CreatedAt:   address.CreatedAt,
		UpdatedAt:   address.UpdatedAt,
	}
}

// AddressSearchResult is one guard-facing search hit.
type AddressSearchResult struct {
	ID          string `json:"id"`
	AddressText string `json:"address_text"`
}

// AllowedVisitor is the guard-facing view of a usable visitor.
type AllowedVisitor struct {
	Name       string `json:"name"`
	AccessCode string `json:"access_code"`
}

// AddressDetailsResponse serves the address-details lookup.
type AddressDetailsResponse struct {
	Address         AddressResponse  `json:"address"`
	AllowedVisitors []AllowedVisitor `json:"allowed_visitors"`
}
