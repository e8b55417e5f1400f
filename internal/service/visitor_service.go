package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// VisitorService owns the visitor lifecycle: creation, edits, bulk
// operations and listing, always scoped to addresses the acting member owns.
type VisitorService struct {
	visitors   repository.VisitorRepository
	addresses  repository.AddressRepository
	dispatcher events.Dispatcher
}

// VisitorDependencies bundles repositories for the visitor service.
type VisitorDependencies struct {
	VisitorRepo repository.VisitorRepository
	AddressRepo repository.AddressRepository
	Dispatcher  events.Dispatcher
}

// NewVisitorService constructs the service.
func NewVisitorService(deps VisitorDependencies) *VisitorService {
	return &VisitorService{
		visitors:   deps.VisitorRepo,
		addresses:  deps.AddressRepo,
		dispatcher: deps.Dispatcher,
	}
}

// VisitorCreateInput describes visitor creation payload.
type VisitorCreateInput struct {
	AddressID    string
	FirstName    string
	LastName     string
	AccessCode   string
	GenerateCode bool
	ExpiresAt    time.Time
}

// VisitorUpdateInput describes a partial update.
type VisitorUpdateInput struct {
	FirstName  *string
	LastName   *string
	AccessCode *string
	ExpiresAt  *time.Time
}

// BulkActionInput applies one action to a set of visitor ids.
type BulkActionInput struct {
	Action    string // extend, revoke or delete
	IDs       []string
	ExpiresAt *time.Time
}

const (
	BulkActionExtend = "extend"
	BulkActionRevoke = "revoke"
	BulkActionDelete = "delete"
)

// accessCodeAlphabet avoids easily confused characters while staying
// alphanumeric; 8 positions over 31 symbols leave collisions within one
// address's visitor set improbable.
const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const accessCodeLength = 8

// GenerateAccessCode produces a random code from the code alphabet.
func GenerateAccessCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < accessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Create registers a visitor against one of the member's approved addresses.
func (s *VisitorService) Create(ctx context.Context, memberID string, input VisitorCreateInput) (*domain.Visitor, error) {
	if input.AddressID == "" {
		return nil, apperrors.NewValidationError("address_id required", nil)
	}
	if !input.ExpiresAt.After(time.Now()) {
		return nil, apperrors.NewValidationError("expires_at must be in the future", nil)
	}

	address, err := s.ownedAddress(ctx, memberID, input.AddressID)
	if err != nil {
		return nil, err
	}
	if !address.Approved() {
		return nil, apperrors.NewValidationError("address is not approved", map[string]any{"status": address.Status})
	}

	code := strings.TrimSpace(input.AccessCode)
	if code == "" {
		if !input.GenerateCode {
			return nil, apperrors.NewValidationError("access_code or generate_code required", nil)
		}
		code, err = GenerateAccessCode()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	visitor := &domain.Visitor{
		AddressID:  address.ID,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		AccessCode: code,
		IsActive:   true,
		ExpiresAt:  input.ExpiresAt,
	}
	if err := s.visitors.Create(ctx, visitor); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventVisitorCreated,
		AddressID: address.ID,
		Actor:     events.Actor{UserID: memberID, Role: domain.RoleMember},
		Payload: events.VisitorCreatedPayload{
			VisitorID: visitor.ID,
			Name:      visitor.FullName(),
			ExpiresAt: visitor.ExpiresAt,
		},
	})
	return visitor, nil
}

// Update applies a partial edit after re-checking ownership.
func (s *VisitorService) Update(ctx context.Context, memberID, visitorID string, input VisitorUpdateInput) (*domain.Visitor, error) {
	visitor, err := s.ownedVisitor(ctx, memberID, visitorID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		visitor.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		visitor.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.AccessCode != nil {
		code := strings.TrimSpace(*input.AccessCode)
		if code == "" {
			return nil, apperrors.NewValidationError("access_code cannot be empty", nil)
		}
		visitor.AccessCode = code
	}
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(time.Now()) {
			return nil, apperrors.NewValidationError("expires_at must be in the future", nil)
		}
		visitor.ExpiresAt = *input.ExpiresAt
	}

	if err := s.visitors.Update(ctx, visitor); err != nil {
		return nil, apperrors.MapError(err)
	}
	return visitor, nil
}

// BulkAction applies extend/revoke/delete to a set of visitors atomically.
// Ownership is resolved for every id before anything is written; a single
// failing id fails the whole batch with the offenders enumerated.
func (s *VisitorService) BulkAction(ctx context.Context, memberID string, input BulkActionInput) error {
	ids := dedupe(input.IDs)
	if len(ids) == 0 {
		return apperrors.NewValidationError("ids required", nil)
	}

	switch input.Action {
	case BulkActionExtend:
		if input.ExpiresAt == nil || !input.ExpiresAt.After(time.Now()) {
			return apperrors.NewValidationError("extend requires a future expires_at", nil)
		}
	case BulkActionRevoke, BulkActionDelete:
	default:
		return apperrors.NewValidationError("unknown bulk action", map[string]any{"action": input.Action})
	}

	visitors, err := s.visitors.GetManyByIDs(ctx, ids)
	if err != nil {
		return apperrors.MapError(err)
	}

	found := make(map[string]domain.Visitor, len(visitors))
	for _, v := range visitors {
		found[v.ID] = v
	}

	ownedAddresses := map[string]bool{}
	failing := []string{}
	for _, id := range ids {
		visitor, ok := found[id]
		if !ok {
			failing = append(failing, id)
			continue
		}
		owned, checked := ownedAddresses[visitor.AddressID]
		if !checked {
			address, err := s.addresses.GetByID(ctx, visitor.AddressID)
			if err != nil {
				return apperrors.MapError(err)
			}
			owned = address.OwnerMemberID == memberID
			ownedAddresses[visitor.AddressID] = owned
		}
		if !owned {
			failing = append(failing, id)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		return apperrors.NewValidationError("one or more visitors are not yours to change",
			map[string]any{"failed_ids": failing})
	}

	switch input.Action {
	case BulkActionExtend:
		err = s.visitors.BulkExtend(ctx, ids, *input.ExpiresAt)
	case BulkActionRevoke:
		err = s.visitors.BulkRevoke(ctx, ids)
	case BulkActionDelete:
		err = s.visitors.BulkDelete(ctx, ids)
	}
	if err != nil {
		return apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:  events.EventVisitorsBulkUpdate,
		Actor: events.Actor{UserID: memberID, Role: domain.RoleMember},
		Payload: events.VisitorsBulkUpdatePayload{
			Action:     input.Action,
			VisitorIDs: ids,
		},
	})
	return nil
}

// Inactivate is the single-id revoke used by the inactivate-visitor route.
func (s *VisitorService) Inactivate(ctx context.Context, memberID, visitorID string) (*domain.Visitor, error) {
	visitor, err := s.ownedVisitor(ctx, memberID, visitorID)
	if err != nil {
		return nil, err
	}
	if !visitor.IsActive {
		return visitor, nil
	}

	visitor.IsActive = false
	if err := s.visitors.Update(ctx, visitor); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventVisitorRevoked,
		AddressID: visitor.AddressID,
		Actor:     events.Actor{UserID: memberID, Role: domain.RoleMember},
		Payload:   events.VisitorRevokedPayload{VisitorID: visitor.ID},
	})
	return visitor, nil
}

// ListFilter describes member listing parameters.
type ListFilter struct {
	Search    *string
	Status    string // active, expired or all
	SortBy    string // name, created or expires
	SortOrder string // asc or desc
	AddressID *string
	Limit     int
	Offset    int
}

// List returns visitors across the member's addresses.
func (s *VisitorService) List(ctx context.Context, memberID string, filter ListFilter) ([]domain.Visitor, error) {
	status := repository.VisitorStatusAll
	switch strings.ToLower(filter.Status) {
	case "", "all":
	case "active":
		status = repository.VisitorStatusActive
	case "expired":
		status = repository.VisitorStatusExpired
	default:
		return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": filter.Status})
	}

	if filter.AddressID != nil {
		if _, err := s.ownedAddress(ctx, memberID, *filter.AddressID); err != nil {
			return nil, err
		}
	}

	visitors, err := s.visitors.ListWithFilter(ctx, repository.VisitorFilter{
		OwnerMemberID: memberID,
		AddressID:     filter.AddressID,
		Search:        filter.Search,
		Status:        status,
		SortBy:        filter.SortBy,
		SortOrder:     filter.SortOrder,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return visitors, nil
}

func (s *VisitorService) ownedAddress(ctx context.Context, memberID, addressID string) (*domain.Address, error) {
	address, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("address", map[string]any{"id": addressID})
		}
		return nil, apperrors.MapError(err)
	}
	if address.OwnerMemberID != memberID {
		return nil, apperrors.NewForbidden("address belongs to another member")
	}
	return address, nil
}

func (s *VisitorService) ownedVisitor(ctx context.Context, memberID, visitorID string) (*domain.Visitor, error) {
	visitor, err := s.visitors.GetByID(ctx, visitorID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("visitor", map[string]any{"id": visitorID})
		}
		return nil, apperrors.MapError(err)
	}
	if _, err := s.ownedAddress(ctx, memberID, visitor.AddressID); err != nil {
		return nil, err
	}
	return visitor, nil
}

func (s *VisitorService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
