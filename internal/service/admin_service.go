package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// AdminService handles role/status mutation, the bootstrap promotion
// endpoint and reporting aggregation.
type AdminService struct {
	users       repository.UserRepository
	addresses   repository.AddressRepository
	visitors    repository.VisitorRepository
	setupSecret string
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	UserRepo    repository.UserRepository
	AddressRepo repository.AddressRepository
	VisitorRepo repository.VisitorRepository
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.AdminSetupConfig, deps AdminDependencies) *AdminService {
	return &AdminService{
		users:       deps.UserRepo,
		addresses:   deps.AddressRepo,
		visitors:    deps.VisitorRepo,
		setupSecret: cfg.Secret,
	}
}

// UpdateUserInput mutates one field of a user record.
type UpdateUserInput struct {
	UserID string
	Field  string // role or status
	Value  string
}

// UpdateUser validates the submitted value against the closed enums
// before writing anything.
func (s *AdminService) UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	if input.UserID == "" {
		return nil, apperrors.NewValidationError("user_id required", nil)
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": input.UserID})
		}
		return nil, apperrors.MapError(err)
	}

	switch strings.ToLower(input.Field) {
	case "role":
		role, err := domain.ParseRole(input.Value)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"value": input.Value})
		}
		user.Role = role
	case "status":
		status, err := domain.ParseUserStatus(input.Value)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"value": input.Value})
		}
		user.Status = status
	default:
		return nil, apperrors.NewValidationError("field must be role or status", map[string]any{"field": input.Field})
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// PromoteWithSetupSecret promotes a user to SYSTEM_ADMIN when the caller
// presents the configured bootstrap secret. The endpoint reads as missing
// when no secret is configured.
func (s *AdminService) PromoteWithSetupSecret(ctx context.Context, userEmail, secret string) (*domain.User, error) {
	if s.setupSecret == "" {
		return nil, apperrors.NewNotFound("resource", nil)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.setupSecret)) != 1 {
		return nil, apperrors.NewForbidden("invalid setup secret")
	}

	user, err := s.users.GetByEmail(ctx, userEmail)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": userEmail})
		}
		return nil, apperrors.MapError(err)
	}
	if user.Role == domain.RoleSystemAdmin {
		return user, nil
	}

	user.Role = domain.RoleSystemAdmin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Report aggregates counts across users, addresses and visitors.
type Report struct {
	UsersByRole       map[domain.Role]int64          `json:"users_by_role"`
	AddressesByStatus map[domain.AddressStatus]int64 `json:"addresses_by_status"`
	VisitorsUsable    int64                          `json:"visitors_usable"`
	VisitorsExpired   int64                          `json:"visitors_expired"`
	GeneratedAt       time.Time                      `json:"generated_at"`
}

// BuildReport assembles the admin dashboard aggregation.
func (s *AdminService) BuildReport(ctx context.Context) (*Report, error) {
	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	addressesByStatus, err := s.addresses.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	usable, expired, err := s.visitors.CountUsable(ctx, time.Now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &Report{
		UsersByRole:       usersByRole,
		AddressesByStatus: addressesByStatus,
		VisitorsUsable:    usable,
		VisitorsExpired:   expired,
		GeneratedAt:       time.Now(),
	}, nil
}
