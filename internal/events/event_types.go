package events

import (
	"time"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// EventName enumerates supported event identifiers. The names match what
// panel consumers subscribe to on the broadcast side.
type EventName string

const (
	EventServiceOrderCreated EventName = "service-order.created"
	EventServiceOrderUpdated EventName = "service-order.updated"
	EventEmergencyDetected   EventName = "emergency.detected"
	EventImportProgress      EventName = "import.progress"
)

// Event is a domain event emitted by services. TenantID scopes delivery;
// TechnicianID, when set, additionally targets the technician channel.
type Event struct {
	ID           string      `json:"id"`
	Name         EventName   `json:"name"`
	TenantID     string      `json:"tenant_id"`
	OrderID      string      `json:"order_id,omitempty"`
	TechnicianID *string     `json:"technician_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// OrderCreatedPayload is broadcast when a service order is opened.
type OrderCreatedPayload struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Priority    domain.Priority    `json:"priority"`
	Status      domain.OrderStatus `json:"status"`
	Type        domain.OrderType   `json:"type"`
	Origin      domain.OrderOrigin `json:"origin"`
	SLADeadline *time.Time         `json:"sla_deadline,omitempty"`
	IsEmergency bool               `json:"is_emergency"`
	CreatedAt   time.Time          `json:"created_at"`
}

// OrderUpdatedPayload is the order's public projection after any mutation,
// including SLA violation marks.
type OrderUpdatedPayload struct {
	ID                   string             `json:"id"`
	Status               domain.OrderStatus `json:"status"`
	Priority             domain.Priority    `json:"priority"`
	AssignedTechnicianID *string            `json:"assigned_technician_id,omitempty"`
	SLADeadline          *time.Time         `json:"sla_deadline,omitempty"`
	SLAViolatedAt        *time.Time         `json:"sla_violated_at,omitempty"`
	AssignedAt           *time.Time         `json:"assigned_at,omitempty"`
	StartedAt            *time.Time         `json:"started_at,omitempty"`
	CompletedAt          *time.Time         `json:"completed_at,omitempty"`
	ClosedAt             *time.Time         `json:"closed_at,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// EmergencyDetectedPayload triggers the audible panel alert for P0 orders.
type EmergencyDetectedPayload struct {
	OrderID     string    `json:"order_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CallerName  string    `json:"caller_name,omitempty"`
	CallerPhone string    `json:"caller_phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	AlertSound  bool      `json:"alert_sound"`
	AlertColor  string    `json:"alert_color"`
}

// ImportProgressPayload reports bulk import progress per batch.
type ImportProgressPayload struct {
	ImportID      string                  `json:"import_id"`
	Type          domain.ImportType       `json:"type"`
	Status        domain.ImportStatus     `json:"status"`
	TotalRows     int                     `json:"total_rows"`
	ProcessedRows int                     `json:"processed_rows"`
	ErrorRows     int                     `json:"error_rows"`
	Percent       int                     `json:"percent"`
	Errors        []domain.ImportRowError `json:"errors,omitempty"`
	FinishedAt    *time.Time              `json:"finished_at,omitempty"`
}

// NewOrderUpdatedPayload projects an order for the updated event.
func NewOrderUpdatedPayload(order *domain.ServiceOrder) OrderUpdatedPayload {
	return OrderUpdatedPayload{
		ID:                   order.ID,
		Status:               order.Status,
		Priority:             order.Priority,
		AssignedTechnicianID: order.AssignedTechnicianID,
		SLADeadline:          order.SLADeadline,
		SLAViolatedAt:        order.SLAViolatedAt,
		AssignedAt:           order.AssignedAt,
		StartedAt:            order.StartedAt,
		CompletedAt:          order.CompletedAt,
		ClosedAt:             order.ClosedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}
