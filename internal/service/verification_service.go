package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/ratelimit"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// Verification outcome messages. Tests assert these three denial reasons
// separately, so they stay distinct.
const (
	MessageCodeNotFound = "access code not found"
	MessageCodeExpired  = "access code expired"
	MessageCodeInactive = "access code inactive"
	MessageAccessValid  = "access granted"
)

// VerificationResult is the guard-facing answer for a presented code.
type VerificationResult struct {
	Valid   bool
	Visitor *domain.Visitor
	Message string
}

// VerificationService validates presented access codes against an
// address's visitors and records usage.
type VerificationService struct {
	visitors   repository.VisitorRepository
	addresses  repository.AddressRepository
	dispatcher events.Dispatcher
	limiter    ratelimit.Limiter
	limits     config.RateLimitConfig
	logger     *zap.Logger
}

// VerificationDependencies bundles collaborators for the service.
type VerificationDependencies struct {
	VisitorRepo repository.VisitorRepository
	AddressRepo repository.AddressRepository
	Dispatcher  events.Dispatcher
	Limiter     ratelimit.Limiter
	Limits      config.RateLimitConfig
	Logger      *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &VerificationService{
		visitors:   deps.VisitorRepo,
		addresses:  deps.AddressRepo,
		dispatcher: deps.Dispatcher,
		limiter:    limiter,
		limits:     deps.Limits,
		logger:     deps.Logger,
	}
}

// VerifyAccessCode checks a presented code against the address's visitors.
//
// Candidates are ordered most-recently-created first, which makes the
// duplicate-code tie-break deterministic: the freshest usable match wins,
// and when nothing is usable the freshest candidate decides whether the
// denial reads expired or inactive. On success last_used is written in the
// background; that write never delays or downgrades the result.
func (s *VerificationService) VerifyAccessCode(ctx context.Context, actor events.Actor, addressID, accessCode string) (*VerificationResult, error) {
	accessCode = strings.TrimSpace(accessCode)
	if accessCode == "" {
		return nil, apperrors.NewValidationError("access_code required", nil)
	}
	if addressID == "" {
		return nil, apperrors.NewValidationError("address_id required", nil)
	}

	address, err := s.addresses.GetByID(ctx, addressID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("address", map[string]any{"id": addressID})
		}
		return nil, apperrors.MapError(err)
	}
	if !address.Approved() {
		return nil, apperrors.NewNotFound("address", map[string]any{"id": addressID})
	}

	candidates, err := s.visitors.ListByAddressAndCode(ctx, address.ID, accessCode)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	for i := range candidates {
		if candidates[i].Usable(now) {
			visitor := candidates[i]
			s.touchLastUsed(visitor.ID, now)
			s.publishDecision(ctx, actor, address.ID, events.EventAccessGranted,
				events.AccessDecisionPayload{VisitorID: visitor.ID})
			return &VerificationResult{Valid: true, Visitor: &visitor, Message: MessageAccessValid}, nil
		}
	}

	message := MessageCodeNotFound
	if len(candidates) > 0 {
		// freshest candidate decides the denial reason
		if candidates[0].IsActive {
			message = MessageCodeExpired
		} else {
			message = MessageCodeInactive
		}
	}

	if err := s.recordFailure(ctx, address.ID); err != nil {
		return nil, err
	}
	s.publishDecision(ctx, actor, address.ID, events.EventAccessDenied,
		events.AccessDecisionPayload{Reason: message})
	return &VerificationResult{Valid: false, Message: message}, nil
}

// recordFailure throttles repeated failed checks against a single address.
func (s *VerificationService) recordFailure(ctx context.Context, addressID string) error {
	window := time.Duration(s.limits.VerifyWindowMinutes) * time.Minute
	if window <= 0 {
		window = 5 * time.Minute
	}
	if !s.limiter.Allow(ctx, "verify_fail:"+addressID, s.limits.VerifyMaxFailures, window) {
		return apperrors.NewTooManyRequests("too many failed verification attempts for this address")
	}
	return nil
}

// touchLastUsed is best-effort telemetry: detached from the request
// context so a slow write cannot block the response, and logged rather
// than surfaced on failure.
func (s *VerificationService) touchLastUsed(visitorID string, usedAt time.Time) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.visitors.TouchLastUsed(ctx, visitorID, usedAt); err != nil {
			s.logger.Warn("failed to record visitor last_used",
				zap.String("visitor_id", visitorID), zap.Error(err))
		}
	}()
}

func (s *VerificationService) publishDecision(ctx context.Context, actor events.Actor, addressID string, eventType events.EventType, payload events.AccessDecisionPayload) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AddressID: addressID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
