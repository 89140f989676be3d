package service

import (
	"context"
	"strings"

	"github.com/juju/clock"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// TechnicianService manages technician records. Status edits share the
// exclusive-section discipline with the dispatch orchestrator so concurrent
// availability changes never clobber each other.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	tx          repository.TxRunner
	clock       clock.Clock
}

// NewTechnicianService constructs the service.
func NewTechnicianService(technicians repository.TechnicianRepository, tx repository.TxRunner, clk clock.Clock) *TechnicianService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &TechnicianService{technicians: technicians, tx: tx, clock: clk}
}

// TechnicianCreateInput describes technician creation payload.
type TechnicianCreateInput struct {
	Name   string
	Phone  string
	Email  string
	Region string
}

// TechnicianUpdateInput describes mutable profile fields.
type TechnicianUpdateInput struct {
	Name   *string
	Phone  *string
	Email  *string
	Region *string
	Active *bool
}

// CreateTechnician registers a technician, available by default.
func (s *TechnicianService) CreateTechnician(ctx context.Context, tenantID string, input TechnicianCreateInput) (*domain.Technician, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	technician := &domain.Technician{
		TenantID:  tenantID,
		Name:      strings.TrimSpace(input.Name),
		Phone:     input.Phone,
		Email:     input.Email,
		Region:    input.Region,
		Status:    domain.TechnicianAvailable,
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		return nil, apperrors.MapError(err)
	}
	return technician, nil
}

// UpdateTechnician edits profile fields under the row lock.
func (s *TechnicianService) UpdateTechnician(ctx context.Context, tenantID, technicianID string, input TechnicianUpdateInput) (*domain.Technician, error) {
	var technician *domain.Technician
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		technician, err = s.technicians.LockByID(ctx, tenantID, technicianID)
		if err != nil {
			return mapLookup(err, "technician", technicianID)
		}
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			technician.Name = strings.TrimSpace(*input.Name)
		}
		if input.Phone != nil {
			technician.Phone = *input.Phone
		}
		if input.Email != nil {
			technician.Email = *input.Email
		}
		if input.Region != nil {
			technician.Region = *input.Region
		}
		if input.Active != nil {
			technician.Active = *input.Active
		}
		technician.UpdatedAt = s.clock.Now().UTC()
		if err := s.technicians.Update(ctx, technician); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return technician, nil
}

// SetStatus changes availability through the same lock the dispatcher takes.
func (s *TechnicianService) SetStatus(ctx context.Context, tenantID, technicianID string, status domain.TechnicianStatus) (*domain.Technician, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown technician status", map[string]any{"status": status})
	}
	var technician *domain.Technician
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		technician, err = s.technicians.LockByID(ctx, tenantID, technicianID)
		if err != nil {
			return mapLookup(err, "technician", technicianID)
		}
		if err := s.technicians.SetStatus(ctx, tenantID, technicianID, status); err != nil {
			return apperrors.MapError(err)
		}
		technician.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return technician, nil
}

// GetTechnician loads one technician.
func (s *TechnicianService) GetTechnician(ctx context.Context, tenantID, technicianID string) (*domain.Technician, error) {
	technician, err := s.technicians.GetByID(ctx, tenantID, technicianID)
	if err != nil {
		return nil, mapLookup(err, "technician", technicianID)
	}
	return technician, nil
}

// ListTechnicians lists technicians for the tenant.
func (s *TechnicianService) ListTechnicians(ctx context.Context, tenantID string, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	technicians, err := s.technicians.List(ctx, tenantID, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return technicians, nil
}

// DeleteTechnician soft-deletes the technician.
func (s *TechnicianService) DeleteTechnician(ctx context.Context, tenantID, technicianID string) error {
	if err := s.technicians.SoftDelete(ctx, tenantID, technicianID); err != nil {
		return mapLookup(err, "technician", technicianID)
	}
	return nil
}
