package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/community-access/internal/domain"
)

// VisitorStatusFilter narrows listings to usable or expired visitors.
type VisitorStatusFilter string

const (
	VisitorStatusAll     VisitorStatusFilter = "all"
	VisitorStatusActive  VisitorStatusFilter = "active"
	VisitorStatusExpired VisitorStatusFilter = "expired"
)

// VisitorFilter captures member listing parameters. Results are always
// scoped to addresses owned by OwnerMemberID.
type VisitorFilter struct {
	OwnerMemberID string
	AddressID     *string
	Search        *string
	Status        VisitorStatusFilter
	SortBy        string // name, created or expires
	SortOrder     string // asc or desc
	Limit         int
	Offset        int
}

// VisitorRepository encapsulates visitor persistence.
type VisitorRepository interface {
	Create(ctx context.Context, visitor *domain.Visitor) error
	Update(ctx context.Context, visitor *domain.Visitor) error
	GetByID(ctx context.Context, id string) (*domain.Visitor, error)
	GetManyByIDs(ctx context.Context, ids []string) ([]domain.Visitor, error)
	ListWithFilter(ctx context.Context, filter VisitorFilter) ([]domain.Visitor, error)
	ListByAddressAndCode(ctx context.Context, addressID, accessCode string) ([]domain.Visitor, error)
	ListUsableByAddress(ctx context.Context, addressID string, now time.Time) ([]domain.Visitor, error)
	BulkExtend(ctx context.Context, ids []string, expiresAt time.Time) error
	BulkRevoke(ctx context.Context, ids []string) error
	BulkDelete(ctx context.Context, ids []string) error
	TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error
	CountUsable(ctx context.Context, now time.Time) (usable int64, expired int64, err error)
}

type visitorRepository struct {
	pool *pgxpool.Pool
}

// NewVisitorRepository instantiates repository.
func NewVisitorRepository(pool *pgxpool.Pool) VisitorRepository {
	return &visitorRepository{pool: pool}
}

const visitorColumns = `id, address_id, first_name, last_name, access_code, is_active, expires_at, last_used, created_at, updated_at`

func (r *visitorRepository) Create(ctx context.Context, visitor *domain.Visitor) error {
	const query = `
        INSERT INTO visitors (address_id, first_name, last_name, access_code, is_active, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		visitor.AddressID,
		visitor.FirstName,
		visitor.LastName,
		visitor.AccessCode,
		visitor.IsActive,
		visitor.ExpiresAt,
	).Scan(&visitor.ID, &visitor.CreatedAt, &visitor.UpdatedAt)
}

func (r *visitorRepository) Update(ctx context.Context, visitor *domain.Visitor) error {
	const query = `
        UPDATE visitors SET first_name=$1, last_name=$2, access_code=$3, is_active=$4,
            expires_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		visitor.FirstName,
		visitor.LastName,
		visitor.AccessCode,
		visitor.IsActive,
		visitor.ExpiresAt,
		visitor.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *visitorRepository) GetByID(ctx context.Context, id string) (*domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id=$1`
	return scanVisitor(r.pool.QueryRow(ctx, query, id))
}

func (r *visitorRepository) GetManyByIDs(ctx context.Context, ids []string) ([]domain.Visitor, error) {
	if len(ids) == 0 {
		return []domain.Visitor{}, nil
	}
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisitors(rows)
}

func (r *visitorRepository) ListWithFilter(ctx context.Context, filter VisitorFilter) ([]domain.Visitor, error) {
	clauses := []string{"a.owner_member_id = $1"}
	args := []any{filter.OwnerMemberID}

	if filter.AddressID != nil {
		args = append(args, *filter.AddressID)
		clauses = append(clauses, fmt.Sprintf("v.address_id = $%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, strings.TrimSpace(*filter.Search))
		clauses = append(clauses, fmt.Sprintf("(v.first_name ILIKE '%%' || $%d || '%%' OR v.last_name ILIKE '%%' || $%d || '%%')", len(args), len(args)))
	}
	switch filter.Status {
	case VisitorStatusActive:
		clauses = append(clauses, "v.is_active AND v.expires_at > NOW()")
	case VisitorStatusExpired:
		clauses = append(clauses, "NOT (v.is_active AND v.expires_at > NOW())")
	}

	orderColumn := "v.created_at"
	switch filter.SortBy {
	case "name":
		orderColumn = "lower(v.first_name || ' ' || v.last_name)"
	case "expires":
		orderColumn = "v.expires_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + prefixedVisitorColumns("v") + `
        FROM visitors v
        JOIN addresses a ON a.id = v.address_id
        WHERE ` + strings.Join(clauses, " AND ") + `
        ORDER BY ` + orderColumn + ` ` + direction +
		fmt.Sprintf(" LIMIT %d OFFSET %d", limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisitors(rows)
}

func (r *visitorRepository) ListByAddressAndCode(ctx context.Context, addressID, accessCode string) ([]domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + `
        FROM visitors WHERE address_id=$1 AND access_code=$2
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, addressID, accessCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisitors(rows)
}

func (r *visitorRepository) ListUsableByAddress(ctx context.Context, addressID string, now time.Time) ([]domain.Visitor, error) {
	query := `SELECT ` + visitorColumns + `
        FROM visitors WHERE address_id=$1 AND is_active AND expires_at > $2
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, addressID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVisitors(rows)
}

// BulkExtend sets a new expiry on every target inside one transaction, so
// either all rows move or none do.
func (r *visitorRepository) BulkExtend(ctx context.Context, ids []string, expiresAt time.Time) error {
	return r.bulkExec(ctx, ids,
		`UPDATE visitors SET expires_at=$1, updated_at=NOW() WHERE id = ANY($2)`,
		expiresAt, ids)
}

func (r *visitorRepository) BulkRevoke(ctx context.Context, ids []string) error {
	return r.bulkExec(ctx, ids,
		`UPDATE visitors SET is_active=FALSE, updated_at=NOW() WHERE id = ANY($1)`,
		ids)
}

func (r *visitorRepository) BulkDelete(ctx context.Context, ids []string) error {
	return r.bulkExec(ctx, ids,
		`DELETE FROM visitors WHERE id = ANY($1)`,
		ids)
}

func (r *visitorRepository) bulkExec(ctx context.Context, ids []string, query string, args ...any) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("bulk mutation touched %d of %d rows", cmd.RowsAffected(), len(ids))
	}
	return tx.Commit(ctx)
}

func (r *visitorRepository) TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	const query = `UPDATE visitors SET last_used=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, usedAt, id)
	return err
}

func (r *visitorRepository) CountUsable(ctx context.Context, now time.Time) (int64, int64, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE is_active AND expires_at > $1),
            COUNT(*) FILTER (WHERE NOT (is_active AND expires_at > $1))
        FROM visitors`
	var usable, expired int64
	if err := r.pool.QueryRow(ctx, query, now).Scan(&usable, &expired); err != nil {
		return 0, 0, err
	}
	return usable, expired, nil
}

func prefixedVisitorColumns(alias string) string {
	cols := strings.Split(visitorColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func scanVisitor(row pgx.Row) (*domain.Visitor, error) {
	var visitor domain.Visitor
	if err := row.Scan(
		&visitor.ID,
		&visitor.AddressID,
		&visitor.FirstName,
		&visitor.LastName,
		&visitor.AccessCode,
		&visitor.IsActive,
		&visitor.ExpiresAt,
		&visitor.LastUsed,
		&visitor.CreatedAt,
		&visitor.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &visitor, nil
}

func collectVisitors(rows pgx.Rows) ([]domain.Visitor, error) {
	visitors := []domain.Visitor{}
	for rows.Next() {
		visitor, err := scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, *visitor)
	}
	return visitors, rows.Err()
}
