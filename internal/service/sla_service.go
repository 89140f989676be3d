package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

// SLAService marks overdue active orders as violated and notifies. A sweep
// is idempotent: the conditional mark re-selects nothing on re-run, and a
// crash mid-sweep leaves processed orders final and unprocessed ones for the
// next run.
type SLAService struct {
	orders     repository.ServiceOrderRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Tenants    int
	Violations int
	Failures   int
}

// NewSLAService constructs the service.
func NewSLAService(orders repository.ServiceOrderRepository, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) *SLAService {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{orders: orders, dispatcher: dispatcher, clock: clk, logger: logger}
}

// SweepAll scans every tenant with overdue active orders. Per-tenant and
// per-order failures are logged and isolated; they never abort the rest of
// the run.
func (s *SLAService) SweepAll(ctx context.Context) SweepResult {
	now := s.clock.Now().UTC()
	result := SweepResult{}

	tenants, err := s.orders.TenantsWithOverdue(ctx, now)
	if err != nil {
		s.logger.Error("sla sweep: list tenants", zap.Error(err))
		result.Failures++
		return result
	}

	for _, tenantID := range tenants {
		violations, failures := s.SweepTenant(ctx, tenantID)
		result.Tenants++
		result.Violations += violations
		result.Failures += failures
	}
	return result
}

// SweepTenant marks each overdue active order of one tenant, exactly once.
func (s *SLAService) SweepTenant(ctx context.Context, tenantID string) (violations, failures int) {
	now := s.clock.Now().UTC()

	overdue, err := s.orders.ListOverdue(ctx, tenantID, now)
	if err != nil {
		s.logger.Error("sla sweep: list overdue",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return 0, 1
	}

	for i := range overdue {
		order := &overdue[i]
		marked, err := s.orders.MarkSLAViolated(ctx, tenantID, order.ID, now)
		if err != nil {
			// no in-pass retry: the null predicate re-selects this order on
			// the next scheduled run
			s.logger.Error("sla sweep: mark violated",
				zap.String("tenant_id", tenantID),
				zap.String("order_id", order.ID),
				zap.Error(err))
			failures++
			continue
		}
		if !marked {
			// another writer got there first
			continue
		}
		order.SLAViolatedAt = &now
		order.UpdatedAt = now
		violations++

		s.logger.Warn("sla violated",
			zap.String("tenant_id", tenantID),
			zap.String("order_id", order.ID),
			zap.String("priority", string(order.Priority)))
		s.publishViolation(ctx, order, now)
	}
	return violations, failures
}

func (s *SLAService) publishViolation(ctx context.Context, order *domain.ServiceOrder, now time.Time) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:           uuid.NewString(),
		Name:         events.EventServiceOrderUpdated,
		TenantID:     order.TenantID,
		OrderID:      order.ID,
		TechnicianID: order.AssignedTechnicianID,
		Timestamp:    now,
		Payload:      events.NewOrderUpdatedPayload(order),
	})
}
