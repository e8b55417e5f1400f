package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/community-access/internal/domain"
)

// VerificationRepository manages email verification token persistence.
type VerificationRepository interface {
	Create(ctx context.Context, token *domain.EmailVerificationToken) error
	GetByToken(ctx context.Context, token string) (*domain.EmailVerificationToken, error)
	MarkUsed(ctx context.Context, id string) error
}

type verificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository constructs repository.
func NewVerificationRepository(pool *pgxpool.Pool) VerificationRepository {
	return &verificationRepository{pool: pool}
}

func (r *verificationRepository) Create(ctx context.Context, token *domain.EmailVerificationToken) error {
	const query = `
        INSERT INTO email_verification_tokens (user_id, token, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.UserID,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *verificationRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.EmailVerificationToken, error) {
	const query = `
        SELECT id, user_id, token, expires_at, used_at, created_at
        FROM email_verification_tokens WHERE token=$1`
	var token domain.EmailVerificationToken
	if err := r.pool.QueryRow(ctx, query, tokenStr).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *verificationRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE email_verification_tokens SET used_at=NOW()
        WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
