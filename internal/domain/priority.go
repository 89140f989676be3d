package domain

import "time"

// Priority enumerates dispatch urgency for service orders. The SLA policy
// table is fixed per priority and is not a stored entity.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// SLAHours returns the response-time budget for the priority.
func (p Priority) SLAHours() int {
	switch p {
	case PriorityP0:
		return 1
	case PriorityP1:
		return 4
	case PriorityP2:
		return 24
	default:
		return 72
	}
}

// SLADuration returns SLAHours as a duration.
func (p Priority) SLADuration() time.Duration {
	return time.Duration(p.SLAHours()) * time.Hour
}

// SortWeight orders priorities for the dispatch queue. Higher wins.
func (p Priority) SortWeight() int {
	switch p {
	case PriorityP0:
		return 4
	case PriorityP1:
		return 3
	case PriorityP2:
		return 2
	default:
		return 1
	}
}

// IsEmergency reports whether the priority triggers the emergency alert flow.
func (p Priority) IsEmergency() bool {
	return p == PriorityP0
}

// Label returns the customer-facing label.
func (p Priority) Label() string {
	switch p {
	case PriorityP0:
		return "Emergência"
	case PriorityP1:
		return "Urgente"
	case PriorityP2:
		return "Normal"
	default:
		return "Baixa"
	}
}

// Color returns the panel badge color.
func (p Priority) Color() string {
	switch p {
	case PriorityP0:
		return "red"
	case PriorityP1:
		return "orange"
	case PriorityP2:
		return "blue"
	default:
		return "gray"
	}
}
