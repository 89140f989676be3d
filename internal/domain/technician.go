package domain

import "time"

// TechnicianStatus enumerates availability for dispatch.
type TechnicianStatus string

const (
	TechnicianAvailable   TechnicianStatus = "available"
	TechnicianOnCall      TechnicianStatus = "on_call"
	TechnicianUnavailable TechnicianStatus = "unavailable"
)

// Valid reports whether s is a known status.
func (s TechnicianStatus) Valid() bool {
	switch s {
	case TechnicianAvailable, TechnicianOnCall, TechnicianUnavailable:
		return true
	}
	return false
}

// Label returns the customer-facing label.
func (s TechnicianStatus) Label() string {
	switch s {
	case TechnicianAvailable:
		return "Disponível"
	case TechnicianOnCall:
		return "Em Atendimento"
	default:
		return "Indisponível"
	}
}

// Technician models a field mechanic. Status is mutated only through the
// dispatch orchestrator or explicit profile edits, both under the same
// exclusive-section discipline.
type Technician struct {
	ID        string
	TenantID  string
	UserID    *string
	Name      string
	Phone     string
	Email     string
	Region    string
	Status    TechnicianStatus
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsAvailable reports whether the technician can receive new work.
func (t *Technician) IsAvailable() bool {
	return t.Active && t.Status == TechnicianAvailable
}
