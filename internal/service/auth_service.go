package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/auth"
	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/mailer"
	"github.com/spec-kit/community-access/internal/ratelimit"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// AuthService coordinates registration, both login paths and the email
// verification flow.
type AuthService struct {
	users         repository.UserRepository
	verifications repository.VerificationRepository
	tokenMgr      *auth.TokenManager
	password      *auth.PasswordVerifier
	oidc          *auth.OIDCVerifier
	mail          mailer.Service
	limiter       ratelimit.Limiter
	logger        *zap.Logger

	bcryptCost      int
	verificationTTL time.Duration
	resendMax       int
	resendWindow    time.Duration
	baseURL         string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	VerificationRepo repository.VerificationRepository
	Mailer           mailer.Service
	Limiter          ratelimit.Limiter
	Logger           *zap.Logger
}

// NewAuthService builds the service and its credential verifiers.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &AuthService{
		users:           deps.UserRepo,
		verifications:   deps.VerificationRepo,
		tokenMgr:        auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		password:        auth.NewPasswordVerifier(deps.UserRepo),
		oidc:            auth.NewOIDCVerifier(deps.UserRepo, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCAudience, cfg.Auth.OIDCSharedSecret),
		mail:            deps.Mailer,
		limiter:         limiter,
		logger:          deps.Logger,
		bcryptCost:      cfg.Auth.BcryptCost,
		verificationTTL: time.Duration(cfg.Auth.VerificationTTLMinutes) * time.Minute,
		resendMax:       cfg.RateLimit.ResendMaxPerWindow,
		resendWindow:    time.Duration(cfg.RateLimit.ResendWindowMinutes) * time.Minute,
		baseURL:         cfg.App.BaseURL,
	}
}

// Register creates a new MEMBER account with a password credential.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Provider:     domain.ProviderPassword,
		Role:         domain.RoleMember,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	s.issueVerificationEmail(ctx, user)

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// Login authenticates through the password verifier.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	return s.login(ctx, s.password, auth.Credentials{Email: email, Password: password})
}

// LoginWithIDToken authenticates through the external identity provider.
func (s *AuthService) LoginWithIDToken(ctx context.Context, idToken string) (*domain.User, string, time.Time, error) {
	return s.login(ctx, s.oidc, auth.Credentials{IDToken: idToken})
}

func (s *AuthService) login(ctx context.Context, verifier auth.CredentialVerifier, creds auth.Credentials) (*domain.User, string, time.Time, error) {
	user, err := verifier.Verify(ctx, creds)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account suspended")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// ResendVerificationEmail is the public resend endpoint. The response shape
// never reveals whether the email exists; rate limiting keys on both the
// client and the target address.
func (s *AuthService) ResendVerificationEmail(ctx context.Context, email, clientKey string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	for _, key := range []string{"resend:email:" + email, "resend:client:" + clientKey} {
		if !s.limiter.Allow(ctx, key, s.resendMax, s.resendWindow) {
			return apperrors.NewTooManyRequests("too many verification emails requested")
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			// pretend success to avoid account enumeration
			return nil
		}
		return apperrors.MapError(err)
	}
	if user.EmailVerified() {
		return nil
	}

	s.issueVerificationEmail(ctx, user)
	return nil
}

// VerifyEmail redeems a single-use verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) error {
	if strings.TrimSpace(tokenStr) == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	token, err := s.verifications.GetByToken(ctx, tokenStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewValidationError("invalid verification token", nil)
		}
		return apperrors.MapError(err)
	}
	if !token.Consumable(time.Now()) {
		return apperrors.NewValidationError("verification token expired or used", nil)
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !user.EmailVerified() {
		now := time.Now()
		user.EmailVerifiedAt = &now
		if err := s.users.Update(ctx, user); err != nil {
			return apperrors.MapError(err)
		}
	}
	return apperrors.MapError(s.verifications.MarkUsed(ctx, token.ID))
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("new password must be at least 8 characters", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if user.PasswordHash == "" {
		return apperrors.NewValidationError("account has no password credential", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.Update(ctx, user))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// issueVerificationEmail persists a token and mails the link, best-effort.
func (s *AuthService) issueVerificationEmail(ctx context.Context, user *domain.User) {
	token := &domain.EmailVerificationToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.verificationTTL),
	}
	if err := s.verifications.Create(ctx, token); err != nil {
		s.logger.Warn("failed to persist verification token",
			zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	link := fmt.Sprintf("%s/auth/verify-email?token=%s", s.baseURL, token.Token)
	msg := mailer.Message{
		ToEmail: user.Email,
		ToName:  user.Name,
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Welcome to the community portal. Verify your email: %s", link),
		HTML:    fmt.Sprintf(`<p>Welcome to the community portal.</p><p><a href=%q>Verify your email</a></p>`, link),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send verification email",
			zap.String("user_id", user.ID), zap.Error(err))
	}
}
