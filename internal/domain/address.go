package domain

import (
	"fmt"
	"strings"
	"time"
)

// AddressStatus enumerates the approval workflow states.
type AddressStatus string

const (
	AddressStatusPending  AddressStatus = "PENDING"
	AddressStatusApproved AddressStatus = "APPROVED"
	AddressStatusRejected AddressStatus = "REJECTED"
)

// ParseAddressStatus normalizes a stored status value. Older rows were
// written with inconsistent casing, so decoding is case-insensitive even
// though writes always store the canonical uppercase form.
func ParseAddressStatus(value string) (AddressStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(AddressStatusPending):
		return AddressStatusPending, nil
	case string(AddressStatusApproved):
		return AddressStatusApproved, nil
	case string(AddressStatusRejected):
		return AddressStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown address status %q", value)
	}
}

// Address is a member-owned physical address awaiting or holding approval.
type Address struct {
	ID            string
	OwnerMemberID string
	AddressText   string
	Status        AddressStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Approved reports whether the address passed the admin approval workflow.
// Guard lookup and access verification only operate on approved addresses.
func (a *Address) Approved() bool {
	return a.Status == AddressStatusApproved
}
