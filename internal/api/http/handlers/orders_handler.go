package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/repository"
	"github.com/spec-kit/dispatch-service/internal/service"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

const defaultPageSize = 25

// OrdersHandler manages service order endpoints.
type OrdersHandler struct {
	service *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{service: orderService}
}

// CreateOrder POST /orders. An Idempotency-Key header makes a retried create
// return the originally created order.
func (h *OrdersHandler) CreateOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ElevatorID == "" || req.CondominiumID == "" || req.Title == "" {
		return apperrors.NewValidationError("elevator_id, condominium_id, title required", nil)
	}

	input := service.OrderCreateInput{
		ElevatorID:    req.ElevatorID,
		CondominiumID: req.CondominiumID,
		Priority:      req.Priority,
		Type:          req.Type,
		Origin:        req.Origin,
		Title:         req.Title,
		Description:   req.Description,
		CallerName:    req.CallerName,
		CallerPhone:   req.CallerPhone,
	}
	if key := strings.TrimSpace(c.Get("Idempotency-Key")); key != "" {
		input.IdempotencyKey = &key
	}

	actorID := principal.User.ID
	order, err := h.service.CreateOrder(c.Context(), principal.TenantID(), &actorID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": orderResponse(order)})
}

// ListOrders GET /orders.
func (h *OrdersHandler) ListOrders(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseOrderQuery(c)
	orders, err := h.service.ListOrders(c.Context(), principal.TenantID(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, orderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetOrder GET /orders/:id.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.service.GetOrder(c.Context(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// UpdateOrder PATCH /orders/:id.
func (h *OrdersHandler) UpdateOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.OrderUpdateInput{
		Priority:        req.Priority,
		Title:           req.Title,
		Description:     req.Description,
		ResolutionNotes: req.ResolutionNotes,
	}
	order, err := h.service.UpdateOrder(c.Context(), principal.TenantID(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// TransitionStatus PATCH /orders/:id/status.
func (h *OrdersHandler) TransitionStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	actorID := principal.User.ID
	order, err := h.service.TransitionStatus(c.Context(), principal.TenantID(), c.Params("id"), req.Status, &actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// ListActivities GET /orders/:id/activities.
func (h *OrdersHandler) ListActivities(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	activities, err := h.service.ListActivities(c.Context(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.OrderActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, activityResponse(&activities[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteOrder DELETE /orders/:id.
func (h *OrdersHandler) DeleteOrder(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteOrder(c.Context(), principal.TenantID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseOrderQuery(c *fiber.Ctx) repository.OrderFilter {
	filter := repository.OrderFilter{}

	for _, raw := range strings.Split(c.Query("status"), ",") {
		status := domain.OrderStatus(strings.TrimSpace(raw))
		if status.Valid() {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, raw := range strings.Split(c.Query("priority"), ",") {
		priority := domain.Priority(strings.TrimSpace(strings.ToUpper(raw)))
		if priority.Valid() {
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if v := c.Query("elevator_id"); v != "" {
		filter.ElevatorID = &v
	}
	if v := c.Query("condominium_id"); v != "" {
		filter.CondominiumID = &v
	}
	if v := c.Query("technician_id"); v != "" {
		filter.TechnicianID = &v
	}
	if v := c.Query("origin"); v != "" {
		origin := domain.OrderOrigin(v)
		filter.Origin = &origin
	}
	if v := c.Query("search"); v != "" {
		filter.SearchTerm = &v
	}
	if v := c.Query("created_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedFrom = &t
		}
	}
	if v := c.Query("created_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedTo = &t
		}
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	return filter
}

func orderResponse(order *domain.ServiceOrder) dto.OrderResponse {
	return dto.OrderResponse{
		ID:                   order.ID,
		ElevatorID:           order.ElevatorID,
		CondominiumID:        order.CondominiumID,
		AssignedTechnicianID: order.AssignedTechnicianID,
		Priority:             order.Priority,
		PriorityLabel:        order.Priority.Label(),
		Status:               order.Status,
		StatusLabel:          order.Status.Label(),
		Type:                 order.Type,
		Origin:               order.Origin,
		Title:                order.Title,
		Description:          order.Description,
		ResolutionNotes:      order.ResolutionNotes,
		CallerName:           order.CallerName,
		CallerPhone:          order.CallerPhone,
		SLADeadline:          order.SLADeadline,
		SLAViolatedAt:        order.SLAViolatedAt,
		AssignedAt:           order.AssignedAt,
		StartedAt:            order.StartedAt,
		CompletedAt:          order.CompletedAt,
		ClosedAt:             order.ClosedAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func activityResponse(activity *domain.OrderActivity) dto.OrderActivityResponse {
	return dto.OrderActivityResponse{
		ID:          activity.ID,
		ActorUserID: activity.ActorUserID,
		FromStatus:  activity.FromStatus,
		ToStatus:    activity.ToStatus,
		Description: activity.Description,
		CreatedAt:   activity.CreatedAt,
	}
}
