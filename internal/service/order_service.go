package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// IdempotencyStore remembers order ids created under an Idempotency-Key so
// retried creations return the original order.
type IdempotencyStore interface {
	Lookup(ctx context.Context, tenantID, key string) (string, bool, error)
	Remember(ctx context.Context, tenantID, key, orderID string) error
}

// OrderService coordinates service order workflows: creation with SLA
// deadline computation, the status state machine, and soft deletion.
type OrderService struct {
	orders       repository.ServiceOrderRepository
	elevators    repository.ElevatorRepository
	condominiums repository.CondominiumRepository
	activities   repository.OrderActivityRepository
	tx           repository.TxRunner
	dispatcher   events.Dispatcher
	idempotency  IdempotencyStore
	clock        clock.Clock
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	OrderRepo       repository.ServiceOrderRepository
	ElevatorRepo    repository.ElevatorRepository
	CondominiumRepo repository.CondominiumRepository
	ActivityRepo    repository.OrderActivityRepository
	TxRunner        repository.TxRunner
	Dispatcher      events.Dispatcher
	Idempotency     IdempotencyStore
	Clock           clock.Clock
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &OrderService{
		orders:       deps.OrderRepo,
		elevators:    deps.ElevatorRepo,
		condominiums: deps.CondominiumRepo,
		activities:   deps.ActivityRepo,
		tx:           deps.TxRunner,
		dispatcher:   deps.Dispatcher,
		idempotency:  deps.Idempotency,
		clock:        clk,
	}
}

// OrderCreateInput describes order creation payload.
type OrderCreateInput struct {
	ElevatorID     string
	CondominiumID  string
	Priority       domain.Priority
	Type           domain.OrderType
	Origin         domain.OrderOrigin
	Title          string
	Description    string
	CallerName     string
	CallerPhone    string
	IdempotencyKey *string
}

// OrderUpdateInput describes mutable order fields.
type OrderUpdateInput struct {
	Priority        *domain.Priority
	Title           *string
	Description     *string
	ResolutionNotes *string
}

// CreateOrder opens a new service order. The SLA deadline is computed from
// the priority policy at creation time; a P0 priority additionally raises
// the emergency alert.
func (s *OrderService) CreateOrder(ctx context.Context, tenantID string, actorUserID *string, input OrderCreateInput) (*domain.ServiceOrder, error) {
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be one of P0..P3", nil)
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid order type", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	if input.IdempotencyKey != nil && s.idempotency != nil {
		existingID, found, err := s.idempotency.Lookup(ctx, tenantID, *input.IdempotencyKey)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if found {
			existing, err := s.orders.GetByID(ctx, tenantID, existingID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return existing, nil
		}
	}

	elevator, err := s.elevators.GetByID(ctx, tenantID, input.ElevatorID)
	if err != nil {
		return nil, mapLookup(err, "elevator", input.ElevatorID)
	}
	if _, err := s.condominiums.GetByID(ctx, tenantID, input.CondominiumID); err != nil {
		return nil, mapLookup(err, "condominium", input.CondominiumID)
	}
	if elevator.CondominiumID != input.CondominiumID {
		return nil, apperrors.NewValidationError("elevator does not belong to condominium", map[string]any{
			"elevator_id":    input.ElevatorID,
			"condominium_id": input.CondominiumID,
		})
	}

	origin := input.Origin
	if origin == "" {
		origin = domain.OriginPanel
	}

	now := s.clock.Now().UTC()
	deadline := now.Add(input.Priority.SLADuration())
	order := &domain.ServiceOrder{
		TenantID:        tenantID,
		ElevatorID:      input.ElevatorID,
		CondominiumID:   input.CondominiumID,
		CreatedByUserID: actorUserID,
		Priority:        input.Priority,
		Status:          domain.OrderStatusOpen,
		Type:            input.Type,
		Origin:          origin,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		CallerName:      input.CallerName,
		CallerPhone:     input.CallerPhone,
		SLADeadline:     &deadline,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.MapError(err)
	}

	if input.IdempotencyKey != nil && s.idempotency != nil {
		if err := s.idempotency.Remember(ctx, tenantID, *input.IdempotencyKey, order.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publish(ctx, events.Event{
		Name:     events.EventServiceOrderCreated,
		TenantID: tenantID,
		OrderID:  order.ID,
		Payload: events.OrderCreatedPayload{
			ID:          order.ID,
			Title:       order.Title,
			Priority:    order.Priority,
			Status:      order.Status,
			Type:        order.Type,
			Origin:      order.Origin,
			SLADeadline: order.SLADeadline,
			IsEmergency: order.IsEmergency(),
			CreatedAt:   order.CreatedAt,
		},
	})

	// P0 always raises the emergency alert, regardless of origin.
	if order.IsEmergency() {
		s.publish(ctx, events.Event{
			Name:     events.EventEmergencyDetected,
			TenantID: tenantID,
			OrderID:  order.ID,
			Payload: events.EmergencyDetectedPayload{
				OrderID:     order.ID,
				Title:       order.Title,
				Description: order.Description,
				CallerName:  order.CallerName,
				CallerPhone: order.CallerPhone,
				CreatedAt:   order.CreatedAt,
				AlertSound:  true,
				AlertColor:  "red",
			},
		})
	}

	return order, nil
}

// TransitionStatus moves the order along the status graph, recording the
// lifecycle timestamp and the audit entry in one unit of work.
func (s *OrderService) TransitionStatus(ctx context.Context, tenantID, orderID string, next domain.OrderStatus, actorUserID *string) (*domain.ServiceOrder, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}

	var order *domain.ServiceOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return mapLookup(err, "service order", orderID)
		}
		now := s.clock.Now().UTC()
		from := order.Status
		if !order.ApplyTransition(next, now) {
			return apperrors.NewInvalidTransition(string(from), string(next))
		}
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return apperrors.MapError(err)
		}
		return s.appendActivity(ctx, order, from, next, actorUserID, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, order)
	return order, nil
}

// UpdateOrder edits mutable fields. Priority changes do not recompute the
// SLA deadline; it is fixed at creation.
func (s *OrderService) UpdateOrder(ctx context.Context, tenantID, orderID string, input OrderUpdateInput) (*domain.ServiceOrder, error) {
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority must be one of P0..P3", nil)
	}

	var order *domain.ServiceOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return mapLookup(err, "service order", orderID)
		}
		if input.Priority != nil {
			order.Priority = *input.Priority
		}
		if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
			order.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			order.Description = strings.TrimSpace(*input.Description)
		}
		if input.ResolutionNotes != nil {
			order.ResolutionNotes = strings.TrimSpace(*input.ResolutionNotes)
		}
		order.UpdatedAt = s.clock.Now().UTC()
		if err := s.orders.Update(ctx, order); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, order)
	return order, nil
}

// GetOrder loads one order.
func (s *OrderService) GetOrder(ctx context.Context, tenantID, orderID string) (*domain.ServiceOrder, error) {
	order, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, mapLookup(err, "service order", orderID)
	}
	return order, nil
}

// ListOrders lists orders for the tenant.
func (s *OrderService) ListOrders(ctx context.Context, tenantID string, filter repository.OrderFilter) ([]domain.ServiceOrder, error) {
	orders, err := s.orders.ListWithFilter(ctx, tenantID, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

// ListActivities returns the audit trail for an order.
func (s *OrderService) ListActivities(ctx context.Context, tenantID, orderID string) ([]domain.OrderActivity, error) {
	activities, err := s.activities.ListByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return activities, nil
}

// DeleteOrder soft-deletes the order; data is retained.
func (s *OrderService) DeleteOrder(ctx context.Context, tenantID, orderID string) error {
	if err := s.orders.SoftDelete(ctx, tenantID, orderID, s.clock.Now().UTC()); err != nil {
		return mapLookup(err, "service order", orderID)
	}
	return nil
}

func (s *OrderService) appendActivity(ctx context.Context, order *domain.ServiceOrder, from, to domain.OrderStatus, actorUserID *string, now time.Time) error {
	err := s.activities.Append(ctx, &domain.OrderActivity{
		TenantID:    order.TenantID,
		OrderID:     order.ID,
		ActorUserID: actorUserID,
		FromStatus:  from,
		ToStatus:    to,
		Description: statusChangeDescription(to),
		CreatedAt:   now,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *OrderService) publishUpdated(ctx context.Context, order *domain.ServiceOrder) {
	s.publish(ctx, events.Event{
		Name:         events.EventServiceOrderUpdated,
		TenantID:     order.TenantID,
		OrderID:      order.ID,
		TechnicianID: order.AssignedTechnicianID,
		Payload:      events.NewOrderUpdatedPayload(order),
	})
}

func (s *OrderService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapLookup(err error, resource, id string) error {
	if apperrors.ToDomainError(err).Code == "NOT_FOUND" {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func statusChangeDescription(next domain.OrderStatus) string {
	return fmt.Sprintf("status changed to %s", next.Label())
}
