package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// AddressService covers the member-facing address registry, the
// guard-facing directory lookups and the admin approval workflow.
type AddressService struct {
	addresses  repository.AddressRepository
	visitors   repository.VisitorRepository
	dispatcher events.Dispatcher
}

// AddressDependencies bundles repositories for the address service.
type AddressDependencies struct {
	AddressRepo repository.AddressRepository
	VisitorRepo repository.VisitorRepository
	Dispatcher  events.Dispatcher
}

// NewAddressService constructs the service.
func NewAddressService(deps AddressDependencies) *AddressService {
	return &AddressService{
		addresses:  deps.AddressRepo,
		visitors:   deps.VisitorRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create registers a new address for the member, pending admin approval.
func (s *AddressService) Create(ctx context.Context, memberID, addressText string) (*domain.Address, error) {
	addressText = strings.TrimSpace(addressText)
	if addressText == "" {
		return nil, apperrors.NewValidationError("address_text required", nil)
	}

	address := &domain.Address{
		OwnerMemberID: memberID,
		AddressText:   addressText,
		Status:        domain.AddressStatusPending,
	}
	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, apperrors.MapError(err)
	}
	return address, nil
}

// ListForMember returns the member's own addresses with their statuses.
func (s *AddressService) ListForMember(ctx context.Context, memberID string) ([]domain.Address, error) {
	addresses, err := s.addresses.ListByOwner(ctx, memberID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return addresses, nil
}

// Search is the guard-facing partial-match lookup over approved addresses.
func (s *AddressService) Search(ctx context.Context, partial string, limit int) ([]domain.Address, error) {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return nil, apperrors.NewValidationError("query required", nil)
	}
	addresses, err := s.addresses.SearchApproved(ctx, partial, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return addresses, nil
}

// AddressDetails is the guard-facing view of an approved address and its
// currently usable visitors.
type AddressDetails struct {
	Address         *domain.Address
	AllowedVisitors []domain.Visitor
}

// DetailsByID returns the address and its usable visitors. Addresses that
// are missing or not approved both read as not found to the guard.
func (s *AddressService) DetailsByID(ctx context.Context, id string) (*AddressDetails, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	address, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("address", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !address.Approved() {
		return nil, apperrors.NewNotFound("address", map[string]any{"id": id})
	}

	visitors, err := s.visitors.ListUsableByAddress(ctx, address.ID, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &AddressDetails{Address: address, AllowedVisitors: visitors}, nil
}

// Approve transitions the address to APPROVED. Approving an already
// approved address is a no-op success; a rejected address cannot be
// approved without going back through review.
func (s *AddressService) Approve(ctx context.Context, adminID, addressID string) (*domain.Address, error) {
	return s.transition(ctx, adminID, addressID, domain.AddressStatusApproved, events.EventAddressApproved)
}

// Reject transitions the address to REJECTED, idempotently.
func (s *AddressService) Reject(ctx context.Context, adminID, addressID string) (*domain.Address, error) {
	return s.transition(ctx, adminID, addressID, domain.AddressStatusRejected, events.EventAddressRejected)
}

func (s *AddressService) transition(ctx context.Context, adminID, addressID string, target domain.AddressStatus, eventType events.EventType) (*domain.Address, error) {
	address, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("address", map[string]any{"id": addressID})
		}
		return nil, apperrors.MapError(err)
	}

	if address.Status == target {
		return address, nil
	}
	if address.Status != domain.AddressStatusPending {
		return nil, apperrors.NewConflict("address already reviewed",
			map[string]any{"status": address.Status})
	}

	oldStatus := address.Status
	if err := s.addresses.UpdateStatus(ctx, address.ID, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	address.Status = target

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			AddressID: address.ID,
			Actor:     events.Actor{UserID: adminID, Role: domain.RoleSystemAdmin},
			Timestamp: time.Now(),
			Payload:   events.AddressStatusPayload{OldStatus: oldStatus, NewStatus: target},
		})
	}
	return address, nil
}
