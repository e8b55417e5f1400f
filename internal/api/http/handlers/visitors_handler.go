package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-access/internal/api/dto"
	"github.com/spec-kit/community-access/internal/auth"
	"github.com/spec-kit/community-access/internal/service"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// VisitorsHandler exposes the member-facing visitor registry.
type VisitorsHandler struct {
	visitors *service.VisitorService
}

// NewVisitorsHandler constructs handler.
func NewVisitorsHandler(visitors *service.VisitorService) *VisitorsHandler {
	return &VisitorsHandler{visitors: visitors}
}

// Create handles POST /api/visitors.
func (h *VisitorsHandler) Create(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.CreateVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	visitor, err := h.visitors.Create(c.Context(), principal.User.ID, service.VisitorCreateInput{
		AddressID:    req.AddressID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AccessCode:   req.AccessCode,
		GenerateCode: req.GenerateCode,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewVisitorResponse(visitor)})
}

// Update handles PATCH /api/visitors/:id.
func (h *VisitorsHandler) Update(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.UpdateVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	visitor, err := h.visitors.Update(c.Context(), principal.User.ID, c.Params("id"), service.VisitorUpdateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		AccessCode: req.AccessCode,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewVisitorResponse(visitor)})
}

// Bulk handles POST /api/visitors/bulk.
func (h *VisitorsHandler) Bulk(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.BulkVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.visitors.BulkAction(c.Context(), principal.User.ID, service.BulkActionInput{
		Action:    req.Action,
		IDs:       req.IDs,
		ExpiresAt: req.ExpiresAt,
	}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Inactivate handles POST /api/inactivate-visitor.
func (h *VisitorsHandler) Inactivate(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.InactivateVisitorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ID == "" {
		return apperrors.NewValidationError("id required", nil)
	}

	if _, err := h.visitors.Inactivate(c.Context(), principal.User.ID, req.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// List handles GET /api/visitors.
func (h *VisitorsHandler) List(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	filter := service.ListFilter{
		Status:    c.Query("status", "all"),
		SortBy:    c.Query("sort", "created"),
		SortOrder: c.Query("order", "desc"),
		Limit:     queryInt(c, "limit", 50),
		Offset:    queryInt(c, "offset", 0),
	}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	if addressID := c.Query("address_id"); addressID != "" {
		filter.AddressID = &addressID
	}

	visitors, err := h.visitors.List(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}

	responses := make([]dto.VisitorResponse, 0, len(visitors))
	for i := range visitors {
		responses = append(responses, dto.NewVisitorResponse(&visitors[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// mustPrincipal is only called behind AuthMiddleware, where the principal
// is guaranteed to exist.
func mustPrincipal(c *fiber.Ctx) *auth.Principal {
	principal, _ := auth.PrincipalFromContext(c)
	return principal
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	val := c.Query(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
