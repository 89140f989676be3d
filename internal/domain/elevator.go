package domain

import "time"

// Elevator is the serviced asset, always attached to a condominium of the
// same tenant.
type Elevator struct {
	ID               string
	TenantID         string
	CondominiumID    string
	SerialNumber     string
	Manufacturer     string
	Model            string
	FloorCount       int
	NextRevisionDate *time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// IsRevisionOverdue reports whether the scheduled revision date has passed.
func (e *Elevator) IsRevisionOverdue(now time.Time) bool {
	return e.NextRevisionDate != nil && e.NextRevisionDate.Before(now)
}
