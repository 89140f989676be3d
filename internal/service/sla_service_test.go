package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
)

type slaFixture struct {
	service    *SLAService
	orders     *memOrderRepo
	dispatcher *recordingDispatcher
	clock      *testclock.Clock
}

func newSLAFixture(t *testing.T) *slaFixture {
	t.Helper()
	f := &slaFixture{
		orders:     newMemOrderRepo(),
		dispatcher: &recordingDispatcher{},
		clock:      testclock.NewClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)),
	}
	f.service = NewSLAService(f.orders, f.dispatcher, f.clock, zap.NewNop())
	return f
}

func (f *slaFixture) addOrder(t *testing.T, id, tenantID string, status domain.OrderStatus, deadline time.Time) {
	t.Helper()
	order := &domain.ServiceOrder{
		ID:          id,
		TenantID:    tenantID,
		Priority:    domain.PriorityP1,
		Status:      status,
		Type:        domain.OrderTypeCorrective,
		Title:       id,
		SLADeadline: &deadline,
		CreatedAt:   f.clock.Now().UTC(),
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
}

func TestSweepMarksOverdueActiveOrders(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now().UTC()

	f.addOrder(t, "overdue-open", testTenant, domain.OrderStatusOpen, now.Add(-time.Hour))
	f.addOrder(t, "overdue-progress", testTenant, domain.OrderStatusInProgress, now.Add(-time.Minute))
	f.addOrder(t, "not-due", testTenant, domain.OrderStatusOpen, now.Add(time.Hour))
	f.addOrder(t, "terminal", testTenant, domain.OrderStatusCompleted, now.Add(-time.Hour))

	result := f.service.SweepAll(context.Background())
	assert.Equal(t, 1, result.Tenants)
	assert.Equal(t, 2, result.Violations)
	assert.Equal(t, 0, result.Failures)

	marked, err := f.orders.GetByID(context.Background(), testTenant, "overdue-open")
	require.NoError(t, err)
	assert.NotNil(t, marked.SLAViolatedAt)

	untouched, err := f.orders.GetByID(context.Background(), testTenant, "not-due")
	require.NoError(t, err)
	assert.Nil(t, untouched.SLAViolatedAt)

	assert.Len(t, f.dispatcher.byName(events.EventServiceOrderUpdated), 2)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now().UTC()
	f.addOrder(t, "overdue", testTenant, domain.OrderStatusOpen, now.Add(-time.Hour))

	first := f.service.SweepAll(context.Background())
	assert.Equal(t, 1, first.Violations)

	second := f.service.SweepAll(context.Background())
	assert.Equal(t, 0, second.Violations)
	assert.Equal(t, 0, second.Tenants)

	assert.Len(t, f.dispatcher.byName(events.EventServiceOrderUpdated), 1)
}

func TestSweepCoversMultipleTenants(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now().UTC()
	otherTenant := "22222222-2222-2222-2222-222222222222"

	f.addOrder(t, "a", testTenant, domain.OrderStatusOpen, now.Add(-time.Hour))
	f.addOrder(t, "b", otherTenant, domain.OrderStatusAssigned, now.Add(-time.Hour))

	result := f.service.SweepAll(context.Background())
	assert.Equal(t, 2, result.Tenants)
	assert.Equal(t, 2, result.Violations)
}

func TestSweepIsolatesPerOrderFailures(t *testing.T) {
	f := newSLAFixture(t)
	now := f.clock.Now().UTC()

	f.addOrder(t, "bad", testTenant, domain.OrderStatusOpen, now.Add(-time.Hour))
	f.addOrder(t, "good", testTenant, domain.OrderStatusOpen, now.Add(-time.Hour))
	f.orders.failMark["bad"] = errors.New("write timeout")

	result := f.service.SweepAll(context.Background())
	assert.Equal(t, 1, result.Violations)
	assert.Equal(t, 1, result.Failures)

	good, err := f.orders.GetByID(context.Background(), testTenant, "good")
	require.NoError(t, err)
	assert.NotNil(t, good.SLAViolatedAt)

	// the failed order stays eligible for the next run
	delete(f.orders.failMark, "bad")
	retry := f.service.SweepAll(context.Background())
	assert.Equal(t, 1, retry.Violations)
}
