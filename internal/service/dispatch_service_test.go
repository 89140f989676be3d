package service

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

type dispatchFixture struct {
	service     *DispatchService
	orders      *memOrderRepo
	technicians *memTechnicianRepo
	condos      *memCondominiumRepo
	activities  *memActivityRepo
	dispatcher  *recordingDispatcher
	clock       *testclock.Clock
	condoID     string
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		orders:      newMemOrderRepo(),
		technicians: newMemTechnicianRepo(),
		condos:      newMemCondominiumRepo(),
		activities:  &memActivityRepo{},
		dispatcher:  &recordingDispatcher{},
		clock:       testclock.NewClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)),
	}

	condo := &domain.Condominium{TenantID: testTenant, Name: "Residencial Aurora", City: "Curitiba"}
	require.NoError(t, f.condos.Create(context.Background(), condo))
	f.condoID = condo.ID

	f.service = NewDispatchService(DispatchDependencies{
		OrderRepo:       f.orders,
		TechnicianRepo:  f.technicians,
		CondominiumRepo: f.condos,
		ActivityRepo:    f.activities,
		TxRunner:        passTxRunner{},
		Dispatcher:      f.dispatcher,
		Clock:           f.clock,
	})
	return f
}

func (f *dispatchFixture) addTechnician(t *testing.T, id, region string) *domain.Technician {
	t.Helper()
	technician := &domain.Technician{
		ID:       id,
		TenantID: testTenant,
		Name:     "Tech " + id,
		Region:   region,
		Status:   domain.TechnicianAvailable,
		Active:   true,
	}
	require.NoError(t, f.technicians.Create(context.Background(), technician))
	return technician
}

func (f *dispatchFixture) addOrder(t *testing.T, id string, priority domain.Priority, status domain.OrderStatus) *domain.ServiceOrder {
	t.Helper()
	now := f.clock.Now().UTC()
	deadline := now.Add(priority.SLADuration())
	order := &domain.ServiceOrder{
		ID:            id,
		TenantID:      testTenant,
		CondominiumID: f.condoID,
		Priority:      priority,
		Status:        status,
		Type:          domain.OrderTypeCorrective,
		Title:         "Ordem " + id,
		SLADeadline:   &deadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func TestAssignExplicitTechnician(t *testing.T) {
	f := newDispatchFixture(t)
	technician := f.addTechnician(t, "tech-a", "Curitiba")
	order := f.addOrder(t, "order-1", domain.PriorityP1, domain.OrderStatusOpen)

	assigned, err := f.service.Assign(context.Background(), testTenant, order.ID, &technician.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedTechnicianID)
	assert.Equal(t, technician.ID, *assigned.AssignedTechnicianID)
	require.NotNil(t, assigned.AssignedAt)

	reloaded, err := f.technicians.GetByID(context.Background(), testTenant, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianOnCall, reloaded.Status)

	updated := f.dispatcher.byName(events.EventServiceOrderUpdated)
	require.Len(t, updated, 1)
	require.NotNil(t, updated[0].TechnicianID)
	assert.Equal(t, technician.ID, *updated[0].TechnicianID)
}

func TestAssignAutoSelectPrefersRegionThenLoadThenID(t *testing.T) {
	f := newDispatchFixture(t)
	f.addTechnician(t, "tech-a", "São Paulo")
	f.addTechnician(t, "tech-b", "Curitiba e região")
	f.addTechnician(t, "tech-c", "Grande Curitiba")

	// tech-b already carries one active order
	busy := f.addOrder(t, "order-busy", domain.PriorityP2, domain.OrderStatusAssigned)
	busyTech := "tech-b"
	busy.AssignedTechnicianID = &busyTech
	require.NoError(t, f.orders.Update(context.Background(), busy))

	order := f.addOrder(t, "order-1", domain.PriorityP1, domain.OrderStatusOpen)
	assigned, err := f.service.Assign(context.Background(), testTenant, order.ID, nil, nil)
	require.NoError(t, err)

	// region matches beat the lower-loaded São Paulo tech; among the two
	// Curitiba matches the idle one wins
	require.NotNil(t, assigned.AssignedTechnicianID)
	assert.Equal(t, "tech-c", *assigned.AssignedTechnicianID)
}

func TestAssignAutoSelectTieBreaksByID(t *testing.T) {
	f := newDispatchFixture(t)
	f.addTechnician(t, "tech-b", "Curitiba")
	f.addTechnician(t, "tech-a", "Curitiba")

	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)
	assigned, err := f.service.Assign(context.Background(), testTenant, order.ID, nil, nil)
	require.NoError(t, err)

	require.NotNil(t, assigned.AssignedTechnicianID)
	assert.Equal(t, "tech-a", *assigned.AssignedTechnicianID)
}

func TestAssignNoTechnicianAvailable(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)

	_, err := f.service.Assign(context.Background(), testTenant, order.ID, nil, nil)
	assert.True(t, apperrors.IsCode(err, "NO_TECHNICIAN_AVAILABLE"))
}

func TestAssignExplicitUnavailableTechnician(t *testing.T) {
	f := newDispatchFixture(t)
	technician := f.addTechnician(t, "tech-a", "Curitiba")
	require.NoError(t, f.technicians.SetStatus(context.Background(), testTenant, technician.ID, domain.TechnicianUnavailable))

	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)
	_, err := f.service.Assign(context.Background(), testTenant, order.ID, &technician.ID, nil)
	assert.True(t, apperrors.IsCode(err, "TECHNICIAN_UNAVAILABLE"))
}

func TestAssignRejectsNonOpenOrder(t *testing.T) {
	f := newDispatchFixture(t)
	technician := f.addTechnician(t, "tech-a", "Curitiba")
	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusCompleted)

	_, err := f.service.Assign(context.Background(), testTenant, order.ID, &technician.ID, nil)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestUnassignReleasesTechnicianWithoutOtherWork(t *testing.T) {
	f := newDispatchFixture(t)
	technician := f.addTechnician(t, "tech-a", "Curitiba")
	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)

	_, err := f.service.Assign(context.Background(), testTenant, order.ID, &technician.ID, nil)
	require.NoError(t, err)

	unassigned, err := f.service.Unassign(context.Background(), testTenant, order.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusOpen, unassigned.Status)
	assert.Nil(t, unassigned.AssignedTechnicianID)
	assert.Nil(t, unassigned.AssignedAt)

	reloaded, err := f.technicians.GetByID(context.Background(), testTenant, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianAvailable, reloaded.Status)
}

func TestUnassignKeepsTechnicianOnCallWithOtherWork(t *testing.T) {
	f := newDispatchFixture(t)
	technician := f.addTechnician(t, "tech-a", "Curitiba")

	first := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)
	second := f.addOrder(t, "order-2", domain.PriorityP2, domain.OrderStatusOpen)

	_, err := f.service.Assign(context.Background(), testTenant, first.ID, &technician.ID, nil)
	require.NoError(t, err)

	// second assign while on call happens through the manual path
	require.NoError(t, f.technicians.SetStatus(context.Background(), testTenant, technician.ID, domain.TechnicianAvailable))
	_, err = f.service.Assign(context.Background(), testTenant, second.ID, &technician.ID, nil)
	require.NoError(t, err)

	_, err = f.service.Unassign(context.Background(), testTenant, first.ID, nil)
	require.NoError(t, err)

	reloaded, err := f.technicians.GetByID(context.Background(), testTenant, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianOnCall, reloaded.Status)
}

func TestGetQueueTotalOrdering(t *testing.T) {
	f := newDispatchFixture(t)
	base := f.clock.Now().UTC()

	mk := func(id string, priority domain.Priority, deadline time.Time, created time.Time) {
		order := &domain.ServiceOrder{
			ID:            id,
			TenantID:      testTenant,
			CondominiumID: f.condoID,
			Priority:      priority,
			Status:        domain.OrderStatusOpen,
			Type:          domain.OrderTypeCorrective,
			Title:         id,
			SLADeadline:   &deadline,
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		require.NoError(t, f.orders.Create(context.Background(), order))
	}

	mk("d-p3", domain.PriorityP3, base.Add(72*time.Hour), base)
	mk("c-p1-late", domain.PriorityP1, base.Add(5*time.Hour), base)
	mk("b-p1-early", domain.PriorityP1, base.Add(2*time.Hour), base)
	mk("a-p0", domain.PriorityP0, base.Add(time.Hour), base)
	// same priority and deadline as b, created later
	mk("e-p1-early-later", domain.PriorityP1, base.Add(2*time.Hour), base.Add(time.Minute))

	// terminal orders never enter the queue
	done := f.addOrder(t, "z-done", domain.PriorityP0, domain.OrderStatusCancelled)
	_ = done

	queue, err := f.service.GetQueue(context.Background(), testTenant)
	require.NoError(t, err)

	ids := make([]string, 0, len(queue))
	for i := range queue {
		ids = append(ids, queue[i].ID)
	}
	assert.Equal(t, []string{"a-p0", "b-p1-early", "e-p1-early-later", "c-p1-late", "d-p3"}, ids)
}

func TestSelectBestTechnicianEmptyPoolIsNil(t *testing.T) {
	f := newDispatchFixture(t)
	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)

	technician, err := f.service.SelectBestTechnician(context.Background(), testTenant, order)
	require.NoError(t, err)
	assert.Nil(t, technician)
}

func TestSelectBestTechnicianIgnoresInactive(t *testing.T) {
	f := newDispatchFixture(t)
	inactive := f.addTechnician(t, "tech-a", "Curitiba")
	inactive.Active = false
	require.NoError(t, f.technicians.Update(context.Background(), inactive))
	f.addTechnician(t, "tech-b", "Curitiba")

	order := f.addOrder(t, "order-1", domain.PriorityP2, domain.OrderStatusOpen)
	technician, err := f.service.SelectBestTechnician(context.Background(), testTenant, order)
	require.NoError(t, err)
	require.NotNil(t, technician)
	assert.Equal(t, "tech-b", technician.ID)
}
