package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-access/internal/api/http/handlers"
	"github.com/spec-kit/community-access/internal/auth"
	"github.com/spec-kit/community-access/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Visitors       *handlers.VisitorsHandler
	Addresses      *handlers.AddressesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token-login", cfg.Auth.LoginWithToken)
	authGroup.Post("/resend-verification-email", cfg.Auth.ResendVerification)
	authGroup.Get("/verify-email", cfg.Auth.VerifyEmail)

	// The shared-secret promotion endpoint sits outside the session gate
	// so the first admin can be bootstrapped on a fresh deployment.
	app.Post("/admin-setup/promote", cfg.Admin.Promote)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	api.Post("/auth/change-password", cfg.Auth.ChangePassword)
	api.Get("/debug-profile", cfg.Auth.DebugProfile)

	member := api.Group("", auth.RequireRole(domain.RoleMember))
	member.Post("/addresses", cfg.Addresses.Create)
	member.Get("/addresses", cfg.Addresses.ListOwn)
	member.Post("/visitors", cfg.Visitors.Create)
	member.Get("/visitors", cfg.Visitors.List)
	member.Patch("/visitors/:id", cfg.Visitors.Update)
	member.Post("/visitors/bulk", cfg.Visitors.Bulk)
	member.Post("/inactivate-visitor", cfg.Visitors.Inactivate)

	guard := api.Group("", auth.RequireRole(domain.RoleSecurityGuard, domain.RoleSystemAdmin))
	guard.Get("/addresses/search", cfg.Addresses.Search)
	guard.Get("/address-details", cfg.Addresses.Details)
	guard.Post("/verify-access-code", cfg.Addresses.VerifyAccessCode)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleSystemAdmin))
	admin.Patch("/users", cfg.Admin.UpdateUser)
	admin.Post("/addresses/:id/approve", cfg.Admin.ApproveAddress)
	admin.Post("/addresses/:id/reject", cfg.Admin.RejectAddress)
	admin.Get("/report", cfg.Admin.Report)
}
