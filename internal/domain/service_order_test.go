package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusOpen, OrderStatusAssigned, true},
		{OrderStatusOpen, OrderStatusCancelled, true},
		{OrderStatusOpen, OrderStatusInProgress, false},
		{OrderStatusOpen, OrderStatusCompleted, false},
		{OrderStatusAssigned, OrderStatusInProgress, true},
		{OrderStatusAssigned, OrderStatusOpen, true},
		{OrderStatusAssigned, OrderStatusCancelled, true},
		{OrderStatusAssigned, OrderStatusClosed, false},
		{OrderStatusInProgress, OrderStatusCompleted, true},
		{OrderStatusInProgress, OrderStatusAssigned, true},
		{OrderStatusInProgress, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusClosed, true},
		{OrderStatusCompleted, OrderStatusOpen, false},
		{OrderStatusClosed, OrderStatusOpen, false},
		{OrderStatusCancelled, OrderStatusOpen, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.Empty(t, OrderStatusClosed.AllowedTransitions())
	assert.Empty(t, OrderStatusCancelled.AllowedTransitions())
}

func TestOrderStatusIsActive(t *testing.T) {
	assert.True(t, OrderStatusOpen.IsActive())
	assert.True(t, OrderStatusAssigned.IsActive())
	assert.True(t, OrderStatusInProgress.IsActive())
	assert.False(t, OrderStatusCompleted.IsActive())
	assert.False(t, OrderStatusClosed.IsActive())
	assert.False(t, OrderStatusCancelled.IsActive())
}

func TestApplyTransitionRecordsTimestamps(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	order := &ServiceOrder{Status: OrderStatusOpen}

	require.True(t, order.ApplyTransition(OrderStatusAssigned, now))
	require.NotNil(t, order.AssignedAt)
	assert.Equal(t, now, *order.AssignedAt)

	later := now.Add(time.Hour)
	require.True(t, order.ApplyTransition(OrderStatusInProgress, later))
	require.NotNil(t, order.StartedAt)
	assert.Equal(t, later, *order.StartedAt)

	done := later.Add(time.Hour)
	require.True(t, order.ApplyTransition(OrderStatusCompleted, done))
	require.NotNil(t, order.CompletedAt)

	closed := done.Add(time.Hour)
	require.True(t, order.ApplyTransition(OrderStatusClosed, closed))
	require.NotNil(t, order.ClosedAt)
	assert.Equal(t, OrderStatusClosed, order.Status)
}

func TestApplyTransitionRejectsInvalid(t *testing.T) {
	now := time.Now().UTC()
	order := &ServiceOrder{Status: OrderStatusOpen}

	assert.False(t, order.ApplyTransition(OrderStatusCompleted, now))
	assert.Equal(t, OrderStatusOpen, order.Status)
	assert.Nil(t, order.CompletedAt)
}

func TestIsSLAOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-time.Minute)

	order := &ServiceOrder{Status: OrderStatusOpen, SLADeadline: &deadline}
	assert.True(t, order.IsSLAOverdue(now))

	future := now.Add(time.Minute)
	order.SLADeadline = &future
	assert.False(t, order.IsSLAOverdue(now))

	order.SLADeadline = nil
	assert.False(t, order.IsSLAOverdue(now))

	order.SLADeadline = &deadline
	order.Status = OrderStatusCompleted
	assert.False(t, order.IsSLAOverdue(now))
}
