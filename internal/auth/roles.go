package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-access/internal/domain"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// Authorize is the role-level policy check: allow iff the principal's role
// is in the required set. Resource-ownership checks are a second tier
// performed by the services.
func Authorize(principal *Principal, required ...domain.Role) error {
	if principal == nil || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	for _, role := range required {
		if principal.Role == role {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// RequireRole ensures the authenticated principal holds one of the allowed
// roles. Must run after AuthMiddleware.Handle.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if err := Authorize(principal, allowed...); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures the caller presented a valid session,
// regardless of role.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
