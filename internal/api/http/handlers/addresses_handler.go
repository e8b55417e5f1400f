package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-access/internal/api/dto"
	"github.com/spec-kit/community-access/internal/events"
	"github.com/spec-kit/community-access/internal/service"
	apperrors "github.com/spec-kit/community-access/pkg/util"
)

// AddressesHandler exposes the member address registry and the
// guard-facing directory.
type AddressesHandler struct {
	addresses    *service.AddressService
	verification *service.VerificationService
}

// NewAddressesHandler constructs handler.
func NewAddressesHandler(addresses *service.AddressService, verification *service.VerificationService) *AddressesHandler {
	return &AddressesHandler{addresses: addresses, verification: verification}
}

// Create handles POST /api/addresses.
func (h *AddressesHandler) Create(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.CreateAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	address, err := h.addresses.Create(c.Context(), principal.User.ID, req.AddressText)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAddressResponse(address)})
}

// ListOwn handles GET /api/addresses.
func (h *AddressesHandler) ListOwn(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	addresses, err := h.addresses.ListForMember(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}

	responses := make([]dto.AddressResponse, 0, len(addresses))
	for i := range addresses {
		responses = append(responses, dto.NewAddressResponse(&addresses[i]))
	}
	return c.JSON(fiber.Map{"data": responses})
}

// Search handles GET /api/addresses/search.
func (h *AddressesHandler) Search(c *fiber.Ctx) error {
	addresses, err := h.addresses.Search(c.Context(), c.Query("q"), queryInt(c, "limit", 20))
	if err != nil {
		return err
	}

	results := make([]dto.AddressSearchResult, 0, len(addresses))
	for _, address := range addresses {
		results = append(results, dto.AddressSearchResult{
			ID:          address.ID,
			AddressText: address.AddressText,
		})
	}
	return c.JSON(fiber.Map{"data": results})
}

// Details handles GET /api/address-details.
func (h *AddressesHandler) Details(c *fiber.Ctx) error {
	details, err := h.addresses.DetailsByID(c.Context(), c.Query("id"))
	if err != nil {
		return err
	}

	allowed := make([]dto.AllowedVisitor, 0, len(details.AllowedVisitors))
	for i := range details.AllowedVisitors {
		visitor := &details.AllowedVisitors[i]
		allowed = append(allowed, dto.AllowedVisitor{
			Name:       visitor.FullName(),
			AccessCode: visitor.AccessCode,
		})
	}
	return c.JSON(fiber.Map{
		"data": dto.AddressDetailsResponse{
			Address:         dto.NewAddressResponse(details.Address),
			AllowedVisitors: allowed,
		},
	})
}

// VerifyAccessCode handles POST /api/verify-access-code.
func (h *AddressesHandler) VerifyAccessCode(c *fiber.Ctx) error {
	principal := mustPrincipal(c)

	var req dto.VerifyAccessCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	actor := events.Actor{UserID: principal.User.ID, Role: principal.Role}
	result, err := h.verification.VerifyAccessCode(c.Context(), actor, req.AddressID, req.AccessCode)
	if err != nil {
		return err
	}

	response := dto.VerifyAccessCodeResponse{
		Valid:   result.Valid,
		Message: result.Message,
	}
	if result.Visitor != nil {
		visitor := dto.NewVisitorResponse(result.Visitor)
		response.Visitor = &visitor
	}
	return c.JSON(response)
}
