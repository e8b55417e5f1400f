package auth

import (
	"errors"
	"testing"

	"github.com/spec-kit/community-access/internal/domain"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

func TestAuthorize(t *testing.T) {
	member := &Principal{User: &domain.User{ID: "u1"}, Role: domain.RoleMember}
	guard := &Principal{User: &domain.User{ID: "u2"}, Role: domain.RoleSecurityGuard}
	admin := &Principal{User: &domain.User{ID: "u3"}, Role: domain.RoleSystemAdmin}

	if err := Authorize(member, domain.RoleMember); err != nil {
		t.Errorf("member denied member route: %v", err)
	}
	if err := Authorize(guard, domain.RoleSecurityGuard, domain.RoleSystemAdmin); err != nil {
		t.Errorf("guard denied guard route: %v", err)
	}
	if err := Authorize(admin, domain.RoleSecurityGuard, domain.RoleSystemAdmin); err != nil {
		t.Errorf("admin denied guard route: %v", err)
	}

	err := Authorize(member, domain.RoleSystemAdmin)
	if err == nil {
		t.Fatal("member allowed on admin route")
	}
	assertStatus(t, err, 403)

	err = Authorize(nil, domain.RoleMember)
	if err == nil {
		t.Fatal("nil principal allowed")
	}
	assertStatus(t, err, 401)

	// admin role does not imply member routes; the sets are explicit
	if err := Authorize(admin, domain.RoleMember); err == nil {
		t.Error("admin allowed on member-only route")
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if domainErr.HTTPStatus != want {
		t.Errorf("status = %d, want %d", domainErr.HTTPStatus, want)
	}
}
