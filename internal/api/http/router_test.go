package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/community-access/internal/api/http/handlers"
	"github.com/spec-kit/community-access/internal/auth"
	"github.com/spec-kit/community-access/internal/config"
	"github.com/spec-kit/community-access/internal/domain"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/mailer"
	"github.com/spec-kit/community-access/internal/observability"
	"github.com/spec-kit/community-access/internal/ratelimit"
	"github.com/spec-kit/community-access/internal/repository"
	"github.com/spec-kit/community-access/internal/service"
)

// The fixtures below run the real router, middlewares and services over
// in-memory repositories, exercising the whole request path the way a
// deployment would see it.

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]*domain.User
	addresses map[string]*domain.Address
	visitors  map[string]*domain.Visitor
	tokens    map[string]*domain.EmailVerificationToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*domain.User),
		addresses: make(map[string]*domain.Address),
		visitors:  make(map[string]*domain.Visitor),
		tokens:    make(map[string]*domain.EmailVerificationToken),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.nextID("user")
	user.CreatedAt = time.Now()
	r.store.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if user, ok := r.store.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) CountByRole(context.Context) (map[domain.Role]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := make(map[domain.Role]int64)
	for _, user := range r.store.users {
		counts[user.Role]++
	}
	return counts, nil
}

type fakeAddressRepo struct{ store *fakeStore }

func (r *fakeAddressRepo) Create(_ context.Context, address *domain.Address) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	address.ID = r.store.nextID("addr")
	address.CreatedAt = time.Now()
	r.store.addresses[address.ID] = address
	return nil
}

func (r *fakeAddressRepo) GetByID(_ context.Context, id string) (*domain.Address, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if address, ok := r.store.addresses[id]; ok {
		copied := *address
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAddressRepo) UpdateStatus(_ context.Context, id string, status domain.AddressStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	address, ok := r.store.addresses[id]
	if !ok {
		return pgx.ErrNoRows
	}
	address.Status = status
	return nil
}

func (r *fakeAddressRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Address, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Address
	for _, address := range r.store.addresses {
		if address.OwnerMemberID == ownerID {
			out = append(out, *address)
		}
	}
	return out, nil
}

func (r *fakeAddressRepo) SearchApproved(_ context.Context, partial string, limit int) ([]domain.Address, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Address
	for _, address := range r.store.addresses {
		if address.Status == domain.AddressStatusApproved &&
			strings.Contains(strings.ToLower(address.AddressText), strings.ToLower(partial)) {
			out = append(out, *address)
		}
	}
	return out, nil
}

func (r *fakeAddressRepo) CountByStatus(context.Context) (map[domain.AddressStatus]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := make(map[domain.AddressStatus]int64)
	for _, address := range r.store.addresses {
		counts[address.Status]++
	}
	return counts, nil
}

type fakeVisitorRepo struct{ store *fakeStore }

func (r *fakeVisitorRepo) Create(_ context.Context, visitor *domain.Visitor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	visitor.ID = r.store.nextID("vis")
	visitor.CreatedAt = time.Now()
	r.store.visitors[visitor.ID] = visitor
	return nil
}

func (r *fakeVisitorRepo) Update(_ context.Context, visitor *domain.Visitor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.visitors[visitor.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *visitor
	r.store.visitors[visitor.ID] = &copied
	return nil
}

func (r *fakeVisitorRepo) GetByID(_ context.Context, id string) (*domain.Visitor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if visitor, ok := r.store.visitors[id]; ok {
		copied := *visitor
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeVisitorRepo) GetManyByIDs(_ context.Context, ids []string) ([]domain.Visitor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Visitor
	for _, id := range ids {
		if visitor, ok := r.store.visitors[id]; ok {
			out = append(out, *visitor)
		}
	}
	return out, nil
}

func (r *fakeVisitorRepo) ListWithFilter(_ context.Context, filter repository.VisitorFilter) ([]domain.Visitor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Visitor
	for _, visitor := range r.store.visitors {
		address, ok := r.store.addresses[visitor.AddressID]
		if !ok || address.OwnerMemberID != filter.OwnerMemberID {
			continue
		}
		if filter.AddressID != nil && visitor.AddressID != *filter.AddressID {
			continue
		}
		out = append(out, *visitor)
	}
	return out, nil
}

func (r *fakeVisitorRepo) ListByAddressAndCode(_ context.Context, addressID, accessCode string) ([]domain.Visitor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Visitor
	for _, visitor := range r.store.visitors {
		if visitor.AddressID == addressID && visitor.AccessCode == accessCode {
			out = append(out, *visitor)
		}
	}
	return out, nil
}

func (r *fakeVisitorRepo) ListUsableByAddress(_ context.Context, addressID string, now time.Time) ([]domain.Visitor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Visitor
	for _, visitor := range r.store.visitors {
		if visitor.AddressID == addressID && visitor.Usable(now) {
			out = append(out, *visitor)
		}
	}
	return out, nil
}

func (r *fakeVisitorRepo) BulkExtend(_ context.Context, ids []string, expiresAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		if visitor, ok := r.store.visitors[id]; ok {
			visitor.ExpiresAt = expiresAt
		}
	}
	return nil
}

func (r *fakeVisitorRepo) BulkRevoke(_ context.Context, ids []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		if visitor, ok := r.store.visitors[id]; ok {
			visitor.IsActive = false
		}
	}
	return nil
}

func (r *fakeVisitorRepo) BulkDelete(_ context.Context, ids []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		delete(r.store.visitors, id)
	}
	return nil
}

func (r *fakeVisitorRepo) TouchLastUsed(_ context.Context, id string, usedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if visitor, ok := r.store.visitors[id]; ok {
		visitor.LastUsed = &usedAt
	}
	return nil
}

func (r *fakeVisitorRepo) CountUsable(_ context.Context, now time.Time) (int64, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var usable, expired int64
	for _, visitor := range r.store.visitors {
		if visitor.Usable(now) {
			usable++
		} else if !visitor.ExpiresAt.After(now) {
			expired++
		}
	}
	return usable, expired, nil
}

type fakeVerificationRepo struct{ store *fakeStore }

func (r *fakeVerificationRepo) Create(_ context.Context, token *domain.EmailVerificationToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	token.ID = r.store.nextID("tok")
	r.store.tokens[token.ID] = token
	return nil
}

func (r *fakeVerificationRepo) GetByToken(_ context.Context, tokenStr string) (*domain.EmailVerificationToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, token := range r.store.tokens {
		if token.Token == tokenStr {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeVerificationRepo) MarkUsed(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	token, ok := r.store.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

type discardMailer struct{}

func (discardMailer) Send(context.Context, mailer.Message) error { return nil }

func newTestApp(t *testing.T) (*fiber.App, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	userRepo := &fakeUserRepo{store: store}
	addressRepo := &fakeAddressRepo{store: store}
	visitorRepo := &fakeVisitorRepo{store: store}
	verificationRepo := &fakeVerificationRepo{store: store}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	cfg := config.Config{
		App: config.AppConfig{BaseURL: "http://localhost:8080"},
		Auth: config.AuthConfig{
			JWTSecret:              "router-test-secret",
			AccessTokenTTLMinutes:  60,
			VerificationTTLMinutes: 60,
			BcryptCost:             4,
		},
		AdminSetup: config.AdminSetupConfig{Secret: "bootstrap-secret"},
		RateLimit:  config.RateLimitConfig{ResendMaxPerWindow: 100, VerifyMaxFailures: 100},
	}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		VerificationRepo: verificationRepo,
		Mailer:           discardMailer{},
		Limiter:          ratelimit.NoopLimiter{},
		Logger:           logger,
	})
	visitorService := service.NewVisitorService(service.VisitorDependencies{
		VisitorRepo: visitorRepo,
		AddressRepo: addressRepo,
		Dispatcher:  dispatcher,
	})
	addressService := service.NewAddressService(service.AddressDependencies{
		AddressRepo: addressRepo,
		VisitorRepo: visitorRepo,
		Dispatcher:  dispatcher,
	})
	verificationService := service.NewVerificationService(service.VerificationDependencies{
		VisitorRepo: visitorRepo,
		AddressRepo: addressRepo,
		Dispatcher:  dispatcher,
		Limiter:     ratelimit.NoopLimiter{},
		Limits:      cfg.RateLimit,
		Logger:      logger,
	})
	adminService := service.NewAdminService(cfg.AdminSetup, service.AdminDependencies{
		UserRepo:    userRepo,
		AddressRepo: addressRepo,
		VisitorRepo: visitorRepo,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("community-access", "test", nil, nil, observability.NewMetrics()),
		Auth:           handlers.NewAuthHandler(authService),
		Visitors:       handlers.NewVisitorsHandler(visitorService),
		Addresses:      handlers.NewAddressesHandler(addressService, verificationService),
		Admin:          handlers.NewAdminHandler(adminService, addressService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()
	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "strong-password",
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("register %s: status %d (%v)", email, status, body)
	}
	data := body["data"].(map[string]any)
	return data["auth"].(map[string]any)["token"].(string)
}

func loginUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/login", "", map[string]any{
		"email": email, "password": "strong-password",
	})
	if status != nethttp.StatusOK {
		t.Fatalf("login %s: status %d (%v)", email, status, body)
	}
	data := body["data"].(map[string]any)
	return data["auth"].(map[string]any)["token"].(string)
}

func TestRouteGating(t *testing.T) {
	app, store := newTestApp(t)
	memberToken := registerUser(t, app, "Member", "member@example.com")

	// no token at all
	status, _ := doJSON(t, app, nethttp.MethodGet, "/api/visitors", "", nil)
	if status != nethttp.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", status)
	}

	// garbage token
	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/visitors", "not-a-jwt", nil)
	if status != nethttp.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", status)
	}

	// member hitting guard and admin surfaces
	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/addresses/search?q=elm", memberToken, nil)
	if status != nethttp.StatusForbidden {
		t.Errorf("member on guard route = %d, want 403", status)
	}
	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/admin/report", memberToken, nil)
	if status != nethttp.StatusForbidden {
		t.Errorf("member on admin route = %d, want 403", status)
	}

	// suspended accounts lose their sessions
	for _, user := range store.users {
		user.Status = domain.UserStatusSuspended
	}
	status, _ = doJSON(t, app, nethttp.MethodGet, "/api/visitors", memberToken, nil)
	if status != nethttp.StatusUnauthorized {
		t.Errorf("suspended session status = %d, want 401", status)
	}
}

func TestEndToEndAccessFlow(t *testing.T) {
	app, store := newTestApp(t)

	memberToken := registerUser(t, app, "Member", "member@example.com")
	registerUser(t, app, "Guard", "guard@example.com")
	registerUser(t, app, "Admin", "admin@example.com")

	// bootstrap the admin with the setup secret
	status, _ := doJSON(t, app, nethttp.MethodPost, "/admin-setup/promote", "", map[string]any{
		"user_email": "admin@example.com", "secret": "bootstrap-secret",
	})
	if status != nethttp.StatusOK {
		t.Fatalf("promote status = %d", status)
	}
	adminToken := loginUser(t, app, "admin@example.com")

	// member registers an address; it starts pending
	status, body := doJSON(t, app, nethttp.MethodPost, "/api/addresses", memberToken, map[string]any{
		"address_text": "12 Elm Street",
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("create address status = %d (%v)", status, body)
	}
	addressData := body["data"].(map[string]any)
	addressID := addressData["id"].(string)
	if addressData["status"].(string) != "PENDING" {
		t.Fatalf("new address status = %v", addressData["status"])
	}

	// visitors cannot be registered against a pending address
	expiry := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	status, _ = doJSON(t, app, nethttp.MethodPost, "/api/visitors", memberToken, map[string]any{
		"address_id": addressID, "first_name": "Ada", "access_code": "ELMCODE1", "expires_at": expiry,
	})
	if status != nethttp.StatusBadRequest {
		t.Fatalf("visitor on pending address status = %d, want 400", status)
	}

	// admin promotes the guard and approves the address
	var guardID string
	for _, user := range store.users {
		if user.Email == "guard@example.com" {
			guardID = user.ID
		}
	}
	status, _ = doJSON(t, app, nethttp.MethodPatch, "/api/admin/users", adminToken, map[string]any{
		"user_id": guardID, "field": "role", "value": "SECURITY_GUARD",
	})
	if status != nethttp.StatusOK {
		t.Fatalf("promote guard status = %d", status)
	}
	status, _ = doJSON(t, app, nethttp.MethodPost, "/api/admin/addresses/"+addressID+"/approve", adminToken, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("approve status = %d", status)
	}

	// the role change only applies to fresh sessions; log the guard in again
	guardToken := loginUser(t, app, "guard@example.com")

	// now the visitor registration goes through
	status, body = doJSON(t, app, nethttp.MethodPost, "/api/visitors", memberToken, map[string]any{
		"address_id": addressID, "first_name": "Ada", "access_code": "ELMCODE1", "expires_at": expiry,
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("create visitor status = %d (%v)", status, body)
	}
	visitorID := body["data"].(map[string]any)["id"].(string)

	// guard finds the address and sees the allowed visitor
	status, body = doJSON(t, app, nethttp.MethodGet, "/api/address-details?id="+addressID, guardToken, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("address details status = %d (%v)", status, body)
	}
	allowed := body["data"].(map[string]any)["allowed_visitors"].([]any)
	if len(allowed) != 1 {
		t.Fatalf("allowed visitors = %d, want 1", len(allowed))
	}

	// valid code admits
	status, body = doJSON(t, app, nethttp.MethodPost, "/api/verify-access-code", guardToken, map[string]any{
		"address_id": addressID, "access_code": "ELMCODE1",
	})
	if status != nethttp.StatusOK {
		t.Fatalf("verify status = %d (%v)", status, body)
	}
	if body["valid"] != true {
		t.Fatalf("valid code denied: %v", body)
	}

	// member revokes; the same code now reads inactive
	status, _ = doJSON(t, app, nethttp.MethodPost, "/api/inactivate-visitor", memberToken, map[string]any{
		"id": visitorID,
	})
	if status != nethttp.StatusOK {
		t.Fatalf("inactivate status = %d", status)
	}
	status, body = doJSON(t, app, nethttp.MethodPost, "/api/verify-access-code", guardToken, map[string]any{
		"address_id": addressID, "access_code": "ELMCODE1",
	})
	if status != nethttp.StatusOK {
		t.Fatalf("verify after revoke status = %d", status)
	}
	if body["valid"] != false || body["message"] != "access code inactive" {
		t.Fatalf("post-revoke verification = %v", body)
	}

	// and the guard no longer sees it among allowed visitors
	status, body = doJSON(t, app, nethttp.MethodGet, "/api/address-details?id="+addressID, guardToken, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("address details status = %d", status)
	}
	if allowed := body["data"].(map[string]any)["allowed_visitors"].([]any); len(allowed) != 0 {
		t.Fatalf("revoked visitor still listed: %v", allowed)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doJSON(t, app, nethttp.MethodPost, "/auth/login", "", map[string]any{
		"email": "ghost@example.com", "password": "whatever",
	})
	if status != nethttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error envelope: %v", body)
	}
	if errObj["code"] != "UNAUTHORIZED" {
		t.Errorf("code = %v", errObj["code"])
	}
	if errObj["message"] == "" {
		t.Error("empty error message")
	}
}
