package events

import (
	"time"

	"github.com/spec-kit/community-access/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventVisitorCreated     EventType = "visitor_created"
	EventVisitorRevoked     EventType = "visitor_revoked"
	EventVisitorsBulkUpdate EventType = "visitors_bulk_updated"
	EventAccessGranted      EventType = "access_granted"
	EventAccessDenied       EventType = "access_denied"
	EventAddressApproved    EventType = "address_approved"
	EventAddressRejected    EventType = "address_rejected"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AddressID string      `json:"address_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// VisitorCreatedPayload payload.
type VisitorCreatedPayload struct {
	VisitorID string    `json:"visitor_id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VisitorRevokedPayload payload.
type VisitorRevokedPayload struct {
	VisitorID string `json:"visitor_id"`
}

// VisitorsBulkUpdatePayload payload.
type VisitorsBulkUpdatePayload struct {
	Action     string   `json:"action"`
	VisitorIDs []string `json:"visitor_ids"`
}

// AccessDecisionPayload payload for access_granted / access_denied.
type AccessDecisionPayload struct {
	VisitorID string `json:"visitor_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AddressStatusPayload payload for approval decisions.
type AddressStatusPayload struct {
	OldStatus domain.AddressStatus `json:"old_status"`
	NewStatus domain.AddressStatus `json:"new_status"`
}
