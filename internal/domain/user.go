package domain

import "time"

// UserRole enumerates panel operator roles.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleOperator   UserRole = "operator"
	RoleTechnician UserRole = "technician"
)

// User is a tenant-scoped panel account.
type User struct {
	ID           string
	TenantID     string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	TechnicianID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
