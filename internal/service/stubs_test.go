package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/mailer"
	"github.com/spec-kit/community-access/internal/repository"
)

// In-memory repository stand-ins. They mirror the SQL behavior the
// services rely on: pgx.ErrNoRows for misses, newest-first candidate
// ordering and all-or-nothing bulk writes.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) add(user *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	r.users[user.ID] = user
	return user
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.add(user)
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) CountByRole(context.Context) (map[domain.Role]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.Role]int64)
	for _, user := range r.users {
		counts[user.Role]++
	}
	return counts, nil
}

type memAddressRepo struct {
	mu        sync.Mutex
	addresses map[string]*domain.Address
	seq       int
}

func newMemAddressRepo() *memAddressRepo {
	return &memAddressRepo{addresses: make(map[string]*domain.Address)}
}

func (r *memAddressRepo) add(address *domain.Address) *domain.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	if address.ID == "" {
		r.seq++
		address.ID = fmt.Sprintf("addr-%d", r.seq)
	}
	r.addresses[address.ID] = address
	return address
}

func (r *memAddressRepo) Create(_ context.Context, address *domain.Address) error {
	r.add(address)
	return nil
}

func (r *memAddressRepo) GetByID(_ context.Context, id string) (*domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if address, ok := r.addresses[id]; ok {
		copied := *address
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memAddressRepo) UpdateStatus(_ context.Context, id string, status domain.AddressStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	address, ok := r.addresses[id]
	if !ok {
		return pgx.ErrNoRows
	}
	address.Status = status
	return nil
}

func (r *memAddressRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Address
	for _, address := range r.addresses {
		if address.OwnerMemberID == ownerID {
			out = append(out, *address)
		}
	}
	return out, nil
}

func (r *memAddressRepo) SearchApproved(_ context.Context, partial string, limit int) ([]domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Address
	for _, address := range r.addresses {
		if address.Status != domain.AddressStatusApproved {
			continue
		}
		if strings.Contains(strings.ToLower(address.AddressText), strings.ToLower(partial)) {
			out = append(out, *address)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memAddressRepo) CountByStatus(context.Context) (map[domain.AddressStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.AddressStatus]int64)
	for _, address := range r.addresses {
		counts[address.Status]++
	}
	return counts, nil
}

type memVisitorRepo struct {
	mu       sync.Mutex
	visitors map[string]*domain.Visitor
	seq      int
	touched  []string
}

func newMemVisitorRepo() *memVisitorRepo {
	return &memVisitorRepo{visitors: make(map[string]*domain.Visitor)}
}

func (r *memVisitorRepo) add(visitor *domain.Visitor) *domain.Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if visitor.ID == "" {
		visitor.ID = fmt.Sprintf("vis-%d", r.seq)
	}
	if visitor.CreatedAt.IsZero() {
		visitor.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	}
	r.visitors[visitor.ID] = visitor
	return visitor
}

func (r *memVisitorRepo) get(id string) *domain.Visitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visitors[id]
}

func (r *memVisitorRepo) Create(_ context.Context, visitor *domain.Visitor) error {
	r.add(visitor)
	return nil
}

func (r *memVisitorRepo) Update(_ context.Context, visitor *domain.Visitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visitors[visitor.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *visitor
	r.visitors[visitor.ID] = &copied
	return nil
}

func (r *memVisitorRepo) GetByID(_ context.Context, id string) (*domain.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if visitor, ok := r.visitors[id]; ok {
		copied := *visitor
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memVisitorRepo) GetManyByIDs(_ context.Context, ids []string) ([]domain.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Visitor
	for _, id := range ids {
		if visitor, ok := r.visitors[id]; ok {
			out = append(out, *visitor)
		}
	}
	return out, nil
}

func (r *memVisitorRepo) ListWithFilter(_ context.Context, filter repository.VisitorFilter) ([]domain.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []domain.Visitor
	for _, visitor := range r.visitors {
		if filter.AddressID != nil && visitor.AddressID != *filter.AddressID {
			continue
		}
		switch filter.Status {
		case repository.VisitorStatusActive:
			if !visitor.Usable(now) {
				continue
			}
		case repository.VisitorStatusExpired:
			if visitor.ExpiresAt.After(now) {
				continue
			}
		}
		out = append(out, *visitor)
	}
	return out, nil
}

// ListByAddressAndCode returns matches newest first, same as the SQL.
func (r *memVisitorRepo) ListByAddressAndCode(_ context.Context, addressID, accessCode string) ([]domain.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Visitor
	for _, visitor := range r.visitors {
		if visitor.AddressID == addressID && visitor.AccessCode == accessCode {
			out = append(out, *visitor)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *memVisitorRepo) ListUsableByAddress(_ context.Context, addressID string, now time.Time) ([]domain.Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Visitor
	for _, visitor := range r.visitors {
		if visitor.AddressID == addressID && visitor.Usable(now) {
			out = append(out, *visitor)
		}
	}
	return out, nil
}

func (r *memVisitorRepo) bulkAll(ids []string) error {
	for _, id := range ids {
		if _, ok := r.visitors[id]; !ok {
			return fmt.Errorf("bulk write matched fewer than %d rows", len(ids))
		}
	}
	return nil
}

func (r *memVisitorRepo) BulkExtend(_ context.Context, ids []string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bulkAll(ids); err != nil {
		return err
	}
	for _, id := range ids {
		r.visitors[id].ExpiresAt = expiresAt
	}
	return nil
}

func (r *memVisitorRepo) BulkRevoke(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bulkAll(ids); err != nil {
		return err
	}
	for _, id := range ids {
		r.visitors[id].IsActive = false
	}
	return nil
}

func (r *memVisitorRepo) BulkDelete(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bulkAll(ids); err != nil {
		return err
	}
	for _, id := range ids {
		delete(r.visitors, id)
	}
	return nil
}

func (r *memVisitorRepo) TouchLastUsed(_ context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	visitor, ok := r.visitors[id]
	if !ok {
		return pgx.ErrNoRows
	}
	visitor.LastUsed = &usedAt
	r.touched = append(r.touched, id)
	return nil
}

func (r *memVisitorRepo) CountUsable(_ context.Context, now time.Time) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var usable, expired int64
	for _, visitor := range r.visitors {
		if visitor.Usable(now) {
			usable++
		} else if !visitor.ExpiresAt.After(now) {
			expired++
		}
	}
	return usable, expired, nil
}

type memVerificationRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.EmailVerificationToken
	seq    int
}

func newMemVerificationRepo() *memVerificationRepo {
	return &memVerificationRepo{tokens: make(map[string]*domain.EmailVerificationToken)}
}

func (r *memVerificationRepo) Create(_ context.Context, token *domain.EmailVerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if token.ID == "" {
		token.ID = fmt.Sprintf("tok-%d", r.seq)
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *memVerificationRepo) GetByToken(_ context.Context, tokenStr string) (*domain.EmailVerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.Token == tokenStr {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memVerificationRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

// recordingMailer captures outbound messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// countingLimiter enforces limits in memory the way the Redis fixed
// window does, ignoring expiry.
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{counts: make(map[string]int)}
}

func (l *countingLimiter) Allow(_ context.Context, key string, max int, _ time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= max
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
