package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// DispatchService orchestrates technician assignment and the operational
// queue view.
type DispatchService struct {
	orders       repository.ServiceOrderRepository
	technicians  repository.TechnicianRepository
	condominiums repository.CondominiumRepository
	activities   repository.OrderActivityRepository
	tx           repository.TxRunner
	dispatcher   events.Dispatcher
	clock        clock.Clock
}

// DispatchDependencies bundles collaborators for the dispatch service.
type DispatchDependencies struct {
	OrderRepo       repository.ServiceOrderRepository
	TechnicianRepo  repository.TechnicianRepository
	CondominiumRepo repository.CondominiumRepository
	ActivityRepo    repository.OrderActivityRepository
	TxRunner        repository.TxRunner
	Dispatcher      events.Dispatcher
	Clock           clock.Clock
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &DispatchService{
		orders:       deps.OrderRepo,
		technicians:  deps.TechnicianRepo,
		condominiums: deps.CondominiumRepo,
		activities:   deps.ActivityRepo,
		tx:           deps.TxRunner,
		dispatcher:   deps.Dispatcher,
		clock:        clk,
	}
}

// Assign attaches a technician to the order. With a nil technicianID the best
// available technician is selected automatically. The state transition, the
// assignment fields and the technician status change commit as one unit of
// work; order and technician rows are locked for its duration so concurrent
// assigns cannot both succeed.
func (s *DispatchService) Assign(ctx context.Context, tenantID, orderID string, technicianID, actorUserID *string) (*domain.ServiceOrder, error) {
	order, err := s.orders.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, mapLookup(err, "service order", orderID)
	}

	var technician *domain.Technician
	if technicianID != nil {
		technician, err = s.technicians.GetByID(ctx, tenantID, *technicianID)
		if err != nil {
			return nil, mapLookup(err, "technician", *technicianID)
		}
	} else {
		technician, err = s.SelectBestTechnician(ctx, tenantID, order)
		if err != nil {
			return nil, err
		}
	}
	if technician == nil {
		return nil, apperrors.NewNoTechnicianAvailable()
	}
	if !technician.IsAvailable() {
		return nil, apperrors.NewTechnicianUnavailable(technician.Name)
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		// lock order first, then technician, so concurrent assigns on the
		// same pair cannot deadlock
		order, err = s.orders.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return mapLookup(err, "service order", orderID)
		}
		technician, err = s.technicians.LockByID(ctx, tenantID, technician.ID)
		if err != nil {
			return mapLookup(err, "technician", technician.ID)
		}
		// the selection read may have raced another assign
		if !technician.IsAvailable() {
			return apperrors.NewTechnicianUnavailable(technician.Name)
		}

		now := s.clock.Now().UTC()
		from := order.Status
		if !order.ApplyTransition(domain.OrderStatusAssigned, now) {
			return apperrors.NewInvalidTransition(string(from), string(domain.OrderStatusAssigned))
		}
		order.AssignedTechnicianID = &technician.ID
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return apperrors.MapError(err)
		}
		if err := s.technicians.SetStatus(ctx, tenantID, technician.ID, domain.TechnicianOnCall); err != nil {
			return apperrors.MapError(err)
		}
		return s.appendDispatchActivity(ctx, order, from, domain.OrderStatusAssigned, actorUserID, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, order)
	return order, nil
}

// Unassign reverts the order to open and releases the technician when they
// carry no other active orders.
func (s *DispatchService) Unassign(ctx context.Context, tenantID, orderID string, actorUserID *string) (*domain.ServiceOrder, error) {
	var order *domain.ServiceOrder
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return mapLookup(err, "service order", orderID)
		}
		previousTechnicianID := order.AssignedTechnicianID
		if previousTechnicianID != nil {
			if _, err := s.technicians.LockByID(ctx, tenantID, *previousTechnicianID); err != nil {
				return mapLookup(err, "technician", *previousTechnicianID)
			}
		}

		now := s.clock.Now().UTC()
		from := order.Status
		if !order.ApplyTransition(domain.OrderStatusOpen, now) {
			return apperrors.NewInvalidTransition(string(from), string(domain.OrderStatusOpen))
		}
		order.AssignedTechnicianID = nil
		order.AssignedAt = nil
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return apperrors.MapError(err)
		}

		if previousTechnicianID != nil {
			remaining, err := s.orders.CountActiveForTechnician(ctx, tenantID, *previousTechnicianID, order.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
			if remaining == 0 {
				if err := s.technicians.SetStatus(ctx, tenantID, *previousTechnicianID, domain.TechnicianAvailable); err != nil {
					return apperrors.MapError(err)
				}
			}
		}
		return s.appendDispatchActivity(ctx, order, from, domain.OrderStatusOpen, actorUserID, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, order)
	return order, nil
}

// GetQueue returns the tenant's active orders in operational priority order:
// priority weight descending, SLA deadline ascending, creation time
// ascending, id ascending. The sort happens at read time on the latest
// committed state.
func (s *DispatchService) GetQueue(ctx context.Context, tenantID string) ([]domain.ServiceOrder, error) {
	active, err := s.orders.ListActive(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.SliceStable(active, func(i, j int) bool {
		return queueLess(&active[i], &active[j])
	})
	return active, nil
}

// queueLess defines the total queue order.
func queueLess(a, b *domain.ServiceOrder) bool {
	if wa, wb := a.Priority.SortWeight(), b.Priority.SortWeight(); wa != wb {
		return wa > wb
	}
	switch {
	case a.SLADeadline == nil && b.SLADeadline != nil:
		return false
	case a.SLADeadline != nil && b.SLADeadline == nil:
		return true
	case a.SLADeadline != nil && b.SLADeadline != nil && !a.SLADeadline.Equal(*b.SLADeadline):
		return a.SLADeadline.Before(*b.SLADeadline)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SelectBestTechnician picks the best available technician for the order:
// active and available, region matching the condominium city first, then the
// fewest currently-active orders, then lexicographic id. Returns nil when no
// candidate passes the filter; the caller treats that as "no technician
// available", not an error.
func (s *DispatchService) SelectBestTechnician(ctx context.Context, tenantID string, order *domain.ServiceOrder) (*domain.Technician, error) {
	city := ""
	if condominium, err := s.condominiums.GetByID(ctx, tenantID, order.CondominiumID); err == nil {
		city = condominium.City
	} else if apperrors.ToDomainError(err).Code != "NOT_FOUND" {
		return nil, apperrors.MapError(err)
	}

	candidates, err := s.technicians.ListAvailable(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	counts, err := s.orders.ActiveCountsByTechnician(ctx, tenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		ma, mb := regionMatches(a.Region, city), regionMatches(b.Region, city)
		if ma != mb {
			return ma
		}
		if ca, cb := counts[a.ID], counts[b.ID]; ca != cb {
			return ca < cb
		}
		return a.ID < b.ID
	})
	best := candidates[0]
	return &best, nil
}

// regionMatches does a case-insensitive substring match of the condominium
// city inside the technician's free-text region. An empty city matches every
// region.
func regionMatches(region, city string) bool {
	return strings.Contains(strings.ToLower(region), strings.ToLower(city))
}

func (s *DispatchService) appendDispatchActivity(ctx context.Context, order *domain.ServiceOrder, from, to domain.OrderStatus, actorUserID *string, now time.Time) error {
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

func (s *DispatchService) publishUpdated(ctx context.Context, order *domain.ServiceOrder) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Name:         events.EventServiceOrderUpdated,
		TenantID:     order.TenantID,
		OrderID:      order.ID,
		TechnicianID: order.AssignedTechnicianID,
		Timestamp:    s.clock.Now().UTC(),
		Payload:      events.NewOrderUpdatedPayload(order),
	})
}
