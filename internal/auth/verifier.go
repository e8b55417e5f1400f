package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/repository"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// Credentials carries the raw material presented by a login attempt.
// Password logins fill Email/Password; OIDC logins fill IDToken.
type Credentials struct {
	Email    string
	Password string
	IDToken  string
}

// CredentialVerifier resolves a login attempt to a verified user. Both
// implementations produce the same principal shape; nothing downstream may
// branch on which one ran except for displaying user.Provider.
type CredentialVerifier interface {
	Provider() domain.AuthProvider
	Verify(ctx context.Context, creds Credentials) (*domain.User, error)
}

// PasswordVerifier authenticates directly against stored bcrypt hashes.
type PasswordVerifier struct {
	users repository.UserRepository
}

// NewPasswordVerifier constructs the direct-credentials verifier.
func NewPasswordVerifier(users repository.UserRepository) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// Provider identifies the verifier.
func (v *PasswordVerifier) Provider() domain.AuthProvider {
	return domain.ProviderPassword
}

// Verify checks email/password against the users table.
func (v *PasswordVerifier) Verify(ctx context.Context, creds Credentials) (*domain.User, error) {
	if creds.Email == "" || creds.Password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}
	user, err := v.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if user.PasswordHash == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := ComparePassword(user.PasswordHash, creds.Password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return user, nil
}

// OIDCVerifier accepts an externally issued identity token signed with a
// shared secret, validates its issuer/audience, and maps it to a local
// account, provisioning a MEMBER on first sight.
type OIDCVerifier struct {
	users    repository.UserRepository
	issuer   string
	audience string
	secret   []byte
}

// NewOIDCVerifier constructs the external-identity verifier.
func NewOIDCVerifier(users repository.UserRepository, issuer, audience, secret string) *OIDCVerifier {
	return &OIDCVerifier{users: users, issuer: issuer, audience: audience, secret: []byte(secret)}
}

// Provider identifies the verifier.
func (v *OIDCVerifier) Provider() domain.AuthProvider {
	return domain.ProviderOIDC
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Verify validates the presented id token and resolves the account.
func (v *OIDCVerifier) Verify(ctx context.Context, creds Credentials) (*domain.User, error) {
	if len(v.secret) == 0 {
		return nil, apperrors.NewUnauthorized("identity provider not configured")
	}
	if creds.IDToken == "" {
		return nil, apperrors.NewValidationError("id_token required", nil)
	}

	parsed, err := jwt.ParseWithClaims(creds.IDToken, &idTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid id token")
	}
	claims, ok := parsed.Claims.(*idTokenClaims)
	if !ok || !parsed.Valid {
		return nil, apperrors.NewUnauthorized("invalid id token")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, apperrors.NewUnauthorized("id token missing email")
	}

	user, err := v.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	// first login through the external provider: provision a member whose
	// email the provider already verified
	now := time.Now()
	user = &domain.User{
		Name:            strings.TrimSpace(claims.Name),
		Email:           email,
		Provider:        domain.ProviderOIDC,
		Role:            domain.RoleMember,
		Status:          domain.UserStatusActive,
		EmailVerifiedAt: &now,
	}
	if user.Name == "" {
		user.Name = email
	}
	if err := v.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
