package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/service"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// DispatchHandler manages assignment and queue endpoints.
type DispatchHandler struct {
	service *service.DispatchService
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(dispatchService *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{service: dispatchService}
}

// Assign POST /orders/:id/assign.
func (h *DispatchHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	actorID := principal.User.ID
	order, err := h.service.Assign(c.Context(), principal.TenantID(), c.Params("id"), req.TechnicianID, &actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// Unassign POST /orders/:id/unassign.
func (h *DispatchHandler) Unassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	actorID := principal.User.ID
	order, err := h.service.Unassign(c.Context(), principal.TenantID(), c.Params("id"), &actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// Queue GET /dispatch/queue.
func (h *DispatchHandler) Queue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	orders, err := h.service.GetQueue(c.Context(), principal.TenantID())
	if err != nil {
		return err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, orderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
