package dto

import (
	"time"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// CreateOrderRequest payload.
type CreateOrderRequest struct {
	ElevatorID    string             `json:"elevator_id"`
	CondominiumID string             `json:"condominium_id"`
	Priority      domain.Priority    `json:"priority"`
	Type          domain.OrderType   `json:"type"`
	Origin        domain.OrderOrigin `json:"origin"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	CallerName    string             `json:"caller_name"`
	CallerPhone   string             `json:"caller_phone"`
}

// UpdateOrderRequest payload; nil fields are left untouched.
type UpdateOrderRequest struct {
	Priority        *domain.Priority `json:"priority"`
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	ResolutionNotes *string          `json:"resolution_notes"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// OrderListQuery captures query filters.
type OrderListQuery struct {
	Statuses      []domain.OrderStatus
	Priorities    []domain.Priority
	ElevatorID    *string
	CondominiumID *string
	TechnicianID  *string
	Origin        *domain.OrderOrigin
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	PageSize      int
}

// OrderResponse represents a service order.
type OrderResponse struct {
	ID                   string             `json:"id"`
	ElevatorID           string             `json:"elevator_id"`
	CondominiumID        string             `json:"condominium_id"`
	AssignedTechnicianID *string            `json:"assigned_technician_id"`
	Priority             domain.Priority    `json:"priority"`
	PriorityLabel        string             `json:"priority_label"`
	Status               domain.OrderStatus `json:"status"`
	StatusLabel          string             `json:"status_label"`
	Type                 domain.OrderType   `json:"type"`
	Origin               domain.OrderOrigin `json:"origin"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	ResolutionNotes      string             `json:"resolution_notes,omitempty"`
	CallerName           string             `json:"caller_name,omitempty"`
	CallerPhone          string             `json:"caller_phone,omitempty"`
	SLADeadline          *time.Time         `json:"sla_deadline"`
	SLAViolatedAt        *time.Time         `json:"sla_violated_at"`
	AssignedAt           *time.Time         `json:"assigned_at"`
	StartedAt            *time.Time         `json:"started_at"`
	CompletedAt          *time.Time         `json:"completed_at"`
	ClosedAt             *time.Time         `json:"closed_at"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// OrderActivityResponse represents one history entry.
type OrderActivityResponse struct {
	ID          string             `json:"id"`
	ActorUserID *string            `json:"actor_user_id"`
	FromStatus  domain.OrderStatus `json:"from_status"`
	ToStatus    domain.OrderStatus `json:"to_status"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
}
