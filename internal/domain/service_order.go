package domain

import "time"

// OrderStatus enumerates lifecycle states for service orders.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "open"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusClosed     OrderStatus = "closed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusAssigned, OrderStatusInProgress,
		OrderStatusCompleted, OrderStatusClosed, OrderStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the order still counts against technician load
// and SLA enforcement.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusOpen, OrderStatusAssigned, OrderStatusInProgress:
		return true
	}
	return false
}

// ActiveStatuses lists the statuses for which IsActive is true.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusOpen, OrderStatusAssigned, OrderStatusInProgress}
}

// AllowedTransitions returns the statuses reachable from s.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	switch s {
	case OrderStatusOpen:
		return []OrderStatus{OrderStatusAssigned, OrderStatusCancelled}
	case OrderStatusAssigned:
		return []OrderStatus{OrderStatusInProgress, OrderStatusOpen, OrderStatusCancelled}
	case OrderStatusInProgress:
		return []OrderStatus{OrderStatusCompleted, OrderStatusAssigned}
	case OrderStatusCompleted:
		return []OrderStatus{OrderStatusClosed}
	default:
		// closed and cancelled are terminal
		return nil
	}
}

// CanTransitionTo reports whether next is reachable from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range s.AllowedTransitions() {
		if allowed == next {
			return true
		}
	}
	return false
}

// Label returns the customer-facing label.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusOpen:
		return "Aberto"
	case OrderStatusAssigned:
		return "Atribuído"
	case OrderStatusInProgress:
		return "Em Andamento"
	case OrderStatusCompleted:
		return "Concluído"
	case OrderStatusClosed:
		return "Fechado"
	default:
		return "Cancelado"
	}
}

// Color returns the badge color used by clients.
func (s OrderStatus) Color() string {
	switch s {
	case OrderStatusOpen:
		return "blue"
	case OrderStatusAssigned:
		return "orange"
	case OrderStatusInProgress:
		return "yellow"
	case OrderStatusCompleted:
		return "green"
	case OrderStatusClosed:
		return "gray"
	default:
		return "red"
	}
}

// OrderType classifies the maintenance work.
type OrderType string

const (
	OrderTypeCorrective OrderType = "corrective"
	OrderTypePreventive OrderType = "preventive"
	OrderTypeEmergency  OrderType = "emergency"
)

// Valid reports whether t is a known type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeCorrective, OrderTypePreventive, OrderTypeEmergency:
		return true
	}
	return false
}

// OrderOrigin records which channel created the order.
type OrderOrigin string

const (
	OriginPanel    OrderOrigin = "panel"
	OriginWhatsApp OrderOrigin = "whatsapp"
	OriginVoice    OrderOrigin = "voice"
	OriginImport   OrderOrigin = "import"
	OriginAI       OrderOrigin = "ai"
)

// ServiceOrder is the aggregate for field-service requests. Every record is
// owned by exactly one tenant and is never visible cross-tenant.
type ServiceOrder struct {
	ID                   string
	TenantID             string
	ElevatorID           string
	CondominiumID        string
	AssignedTechnicianID *string
	CreatedByUserID      *string
	Priority             Priority
	Status               OrderStatus
	Type                 OrderType
	Origin               OrderOrigin
	Title                string
	Description          string
	ResolutionNotes      string
	CallerName           string
	CallerPhone          string
	SLADeadline          *time.Time
	SLAViolatedAt        *time.Time
	AssignedAt           *time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
	ClosedAt             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// IsEmergency reports whether the order is priority P0.
func (o *ServiceOrder) IsEmergency() bool {
	return o.Priority.IsEmergency()
}

// IsSLAOverdue reports whether the deadline has passed while the order is
// still active. Independent of the sla_violated_at marker.
func (o *ServiceOrder) IsSLAOverdue(now time.Time) bool {
	return o.SLADeadline != nil && o.SLADeadline.Before(now) && o.Status.IsActive()
}

// ApplyTransition moves the order to next, recording the lifecycle timestamp
// the target status owns. The caller must have validated the transition with
// CanTransitionTo; ApplyTransition returns false without mutating the order
// when the transition is outside the allowed graph.
func (o *ServiceOrder) ApplyTransition(next OrderStatus, now time.Time) bool {
	if !o.Status.CanTransitionTo(next) {
		return false
	}
	o.Status = next
	switch next {
	case OrderStatusAssigned:
		o.AssignedAt = &now
	case OrderStatusInProgress:
		o.StartedAt = &now
	case OrderStatusCompleted:
		o.CompletedAt = &now
	case OrderStatusClosed:
		o.ClosedAt = &now
	}
	return true
}
