package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrioritySLAHours(t *testing.T) {
	assert.Equal(t, 1, PriorityP0.SLAHours())
	assert.Equal(t, 4, PriorityP1.SLAHours())
	assert.Equal(t, 24, PriorityP2.SLAHours())
	assert.Equal(t, 72, PriorityP3.SLAHours())
}

func TestPrioritySLADuration(t *testing.T) {
	assert.Equal(t, time.Hour, PriorityP0.SLADuration())
	assert.Equal(t, 72*time.Hour, PriorityP3.SLADuration())
}

func TestPrioritySortWeight(t *testing.T) {
	assert.Equal(t, 4, PriorityP0.SortWeight())
	assert.Equal(t, 3, PriorityP1.SortWeight())
	assert.Equal(t, 2, PriorityP2.SortWeight())
	assert.Equal(t, 1, PriorityP3.SortWeight())
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3} {
		assert.True(t, p.Valid(), string(p))
	}
	assert.False(t, Priority("P4").Valid())
	assert.False(t, Priority("").Valid())
	assert.False(t, Priority("p0").Valid())
}

func TestPriorityIsEmergency(t *testing.T) {
	assert.True(t, PriorityP0.IsEmergency())
	assert.False(t, PriorityP1.IsEmergency())
	assert.False(t, PriorityP2.IsEmergency())
	assert.False(t, PriorityP3.IsEmergency())
}

func TestPriorityLabel(t *testing.T) {
	assert.Equal(t, "Emergência", PriorityP0.Label())
	assert.Equal(t, "Urgente", PriorityP1.Label())
	assert.Equal(t, "Normal", PriorityP2.Label())
	assert.Equal(t, "Baixa", PriorityP3.Label())
}
