package dto

import (
	"time"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Region string `json:"region"`
}

// UpdateTechnicianRequest payload; nil fields are left untouched.
type UpdateTechnicianRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Region *string `json:"region"`
	Active *bool   `json:"active"`
}

// SetTechnicianStatusRequest payload.
type SetTechnicianStatusRequest struct {
	Status domain.TechnicianStatus `json:"status"`
}

// TechnicianResponse represents a technician.
type TechnicianResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Phone       string                  `json:"phone,omitempty"`
	Email       string                  `json:"email,omitempty"`
	Region      string                  `json:"region,omitempty"`
	Status      domain.TechnicianStatus `json:"status"`
	StatusLabel string                  `json:"status_label"`
	Active      bool                    `json:"active"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
