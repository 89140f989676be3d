package domain

import "time"

// Condominium is a serviced building. Its city feeds the region match used
// by technician selection.
type Condominium struct {
	ID          string
	TenantID    string
	Name        string
	Address     string
	City        string
	State       string
	ZipCode     string
	Phone       string
	ContactName string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
