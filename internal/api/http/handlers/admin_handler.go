package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-access/internal/api/dto"
	"github.com/spec-kit/community-access/internal/service"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// AdminHandler covers user management, address review and reporting.
type AdminHandler struct {
	admin     *service.AdminService
	addresses *service.AddressService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService, addresses *service.AddressService) *AdminHandler {
	return &AdminHandler{admin: admin, addresses: addresses}
}

// UpdateUser handles PATCH /api/admin/users.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.admin.UpdateUser(c.Context(), service.UpdateUserInput{
		UserID: req.UserID,
		Field:  req.Field,
		Value:  req.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ApproveAddress handles POST /api/admin/addresses/:id/approve.
func (h *AdminHandler) ApproveAddress(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	address, err := h.addresses.Approve(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAddressResponse(address)})
}

// RejectAddress handles POST /api/admin/addresses/:id/reject.
func (h *AdminHandler) RejectAddress(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	address, err := h.addresses.Reject(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAddressResponse(address)})
}

// Report handles GET /api/admin/report.
func (h *AdminHandler) Report(c *fiber.Ctx) error {
	report, err := h.admin.BuildReport(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Promote handles POST /admin-setup/promote. The route is reachable
// without a session; the shared secret is the only gate.
func (h *AdminHandler) Promote(c *fiber.Ctx) error {
	var req dto.PromoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.admin.PromoteWithSetupSecret(c.Context(), req.UserEmail, req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
