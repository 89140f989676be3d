package domain

import "time"

// OrderActivity is an immutable audit trail entry keyed by order id.
// A nil ActorUserID means the change was system or API originated.
type OrderActivity struct {
	ID          string
	TenantID    string
	OrderID     string
	ActorUserID *string
	FromStatus  OrderStatus
	ToStatus    OrderStatus
	Description string
	CreatedAt   time.Time
}
