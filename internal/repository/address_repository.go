package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/community-access/internal/domain"
)

// AddressRepository encapsulates address persistence.
type AddressRepository interface {
	Create(ctx context.Context, address *domain.Address) error
	GetByID(ctx context.Context, id string) (*domain.Address, error)
	UpdateStatus(ctx context.Context, id string, status domain.AddressStatus) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Address, error)
	SearchApproved(ctx context.Context, partial string, limit int) ([]domain.Address, error)
	CountByStatus(ctx context.Context) (map[domain.AddressStatus]int64, error)
}

type addressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository instantiates repository.
func NewAddressRepository(pool *pgxpool.Pool) AddressRepository {
	return &addressRepository{pool: pool}
}

func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	const query = `
        INSERT INTO addresses (owner_member_id, address_text, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		address.OwnerMemberID,
		address.AddressText,
		address.Status,
	).Scan(&address.ID, &address.CreatedAt, &address.UpdatedAt)
}

func (r *addressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	const query = `
        SELECT id, owner_member_id, address_text, status, created_at, updated_at
        FROM addresses WHERE id=$1`
	return scanAddress(r.pool.QueryRow(ctx, query, id))
}

func (r *addressRepository) UpdateStatus(ctx context.Context, id string, status domain.AddressStatus) error {
	const query = `UPDATE addresses SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *addressRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Address, error) {
	const query = `
        SELECT id, owner_member_id, address_text, status, created_at, updated_at
        FROM addresses WHERE owner_member_id=$1
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAddresses(rows)
}

func (r *addressRepository) SearchApproved(ctx context.Context, partial string, limit int) ([]domain.Address, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, owner_member_id, address_text, status, created_at, updated_at
        FROM addresses
        WHERE status=$1 AND address_text ILIKE '%' || $2 || '%'
        ORDER BY address_text ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.AddressStatusApproved, partial, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAddresses(rows)
}

func (r *addressRepository) CountByStatus(ctx context.Context) (map[domain.AddressStatus]int64, error) {
	const query = `SELECT upper(status), COUNT(*) FROM addresses GROUP BY upper(status)`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AddressStatus]int64)
	for rows.Next() {
		var raw string
		var count int64
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, err
		}
		counts[domain.AddressStatus(raw)] += count
	}
	return counts, rows.Err()
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var address domain.Address
	var rawStatus string
	if err := row.Scan(
		&address.ID,
		&address.OwnerMemberID,
		&address.AddressText,
		&rawStatus,
		&address.CreatedAt,
		&address.UpdatedAt,
	); err != nil {
		return nil, err
	}
	status, err := domain.ParseAddressStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	address.Status = status
	return &address, nil
}

func collectAddresses(rows pgx.Rows) ([]domain.Address, error) {
	addresses := []domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *address)
	}
	return addresses, rows.Err()
}
