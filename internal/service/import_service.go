package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/repository"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// ImportRow is one parsed data row, keyed by header name.
type ImportRow map[string]string

// RowSource yields parsed rows for an import job. File parsing (CSV/XLSX)
// happens outside the core; the source abstracts it away.
type RowSource interface {
	Rows(ctx context.Context) ([]ImportRow, error)
}

// RowSourceResolver opens the row source for a job's file.
type RowSourceResolver func(job *domain.ImportJob) (RowSource, error)

// ImportService runs bulk imports of condominiums, elevators and
// technicians, reporting progress per batch.
type ImportService struct {
	jobs         repository.ImportJobRepository
	condominiums repository.CondominiumRepository
	elevators    repository.ElevatorRepository
	technicians  repository.TechnicianRepository
	dispatcher   events.Dispatcher
	clock        clock.Clock
	logger       *zap.Logger
	batchSize    int
}

// ImportDependencies bundles collaborators for the import service.
type ImportDependencies struct {
	JobRepo         repository.ImportJobRepository
	CondominiumRepo repository.CondominiumRepository
	ElevatorRepo    repository.ElevatorRepository
	TechnicianRepo  repository.TechnicianRepository
	Dispatcher      events.Dispatcher
	Clock           clock.Clock
	Logger          *zap.Logger
	BatchSize       int
}

// NewImportService constructs the service.
func NewImportService(deps ImportDependencies) *ImportService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &ImportService{
		jobs:         deps.JobRepo,
		condominiums: deps.CondominiumRepo,
		elevators:    deps.ElevatorRepo,
		technicians:  deps.TechnicianRepo,
		dispatcher:   deps.Dispatcher,
		clock:        clk,
		logger:       logger,
		batchSize:    batchSize,
	}
}

// CreateJob registers a pending import job.
func (s *ImportService) CreateJob(ctx context.Context, tenantID string, userID *string, importType domain.ImportType, filePath string) (*domain.ImportJob, error) {
	if !importType.Valid() {
		return nil, apperrors.NewValidationError("unknown import type", map[string]any{"type": importType})
	}
	if strings.TrimSpace(filePath) == "" {
		return nil, apperrors.NewValidationError("file_path required", nil)
	}
	job := &domain.ImportJob{
		TenantID:  tenantID,
		UserID:    userID,
		Type:      importType,
		Status:    domain.ImportStatusPending,
		FilePath:  filePath,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperrors.MapError(err)
	}
	return job, nil
}

// GetJob loads one import job.
func (s *ImportService) GetJob(ctx context.Context, tenantID, jobID string) (*domain.ImportJob, error) {
	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, mapLookup(err, "import job", jobID)
	}
	return job, nil
}

// Run processes the job's rows in batches. Row failures are recorded on the
// job and never abort the run; a returned error means the run itself failed
// and may be retried by the worker.
func (s *ImportService) Run(ctx context.Context, tenantID, jobID string, source RowSource) error {
	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return mapLookup(err, "import job", jobID)
	}

	now := s.clock.Now().UTC()
	job.Status = domain.ImportStatusProcessing
	job.StartedAt = &now
	job.Attempts++
	if err := s.jobs.Update(ctx, job); err != nil {
		return apperrors.MapError(err)
	}
	s.publishProgress(ctx, job)

	rows, err := source.Rows(ctx)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	job.TotalRows = len(rows)
	job.ProcessedRows = 0
	job.ErrorRows = 0
	job.RowErrors = nil

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		for i := start; i < end; i++ {
			// +2: row 1 is the header
			rowNumber := i + 2
			if err := s.processRow(ctx, job, rows[i]); err != nil {
				job.ErrorRows++
				job.RowErrors = append(job.RowErrors, domain.ImportRowError{Row: rowNumber, Error: err.Error()})
				continue
			}
			job.ProcessedRows++
		}
		if err := s.jobs.Update(ctx, job); err != nil {
			return apperrors.MapError(err)
		}
		s.publishProgress(ctx, job)
	}

	finished := s.clock.Now().UTC()
	job.Status = domain.ImportStatusDone
	job.FinishedAt = &finished
	if err := s.jobs.Update(ctx, job); err != nil {
		return apperrors.MapError(err)
	}
	s.publishProgress(ctx, job)
	return nil
}

// MarkFailed dead-letters the job after the worker exhausts its attempts.
func (s *ImportService) MarkFailed(ctx context.Context, tenantID, jobID string) error {
	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return mapLookup(err, "import job", jobID)
	}
	finished := s.clock.Now().UTC()
	job.Status = domain.ImportStatusFailed
	job.FinishedAt = &finished
	if err := s.jobs.Update(ctx, job); err != nil {
		return apperrors.MapError(err)
	}
	s.publishProgress(ctx, job)
	return nil
}

func (s *ImportService) processRow(ctx context.Context, job *domain.ImportJob, row ImportRow) error {
	switch job.Type {
	case domain.ImportTypeCondominiums:
		return s.importCondominium(ctx, job.TenantID, row)
	case domain.ImportTypeElevators:
		return s.importElevator(ctx, job.TenantID, row)
	case domain.ImportTypeTechnicians:
		return s.importTechnician(ctx, job.TenantID, row)
	default:
		return fmt.Errorf("unknown import type %q", job.Type)
	}
}

func (s *ImportService) importCondominium(ctx context.Context, tenantID string, row ImportRow) error {
	name := strings.TrimSpace(row["name"])
	if name == "" {
		return fmt.Errorf("name required")
	}
	return s.condominiums.Create(ctx, &domain.Condominium{
		TenantID:    tenantID,
		Name:        name,
		Address:     row["address"],
		City:        row["city"],
		State:       row["state"],
		ZipCode:     row["zip_code"],
		Phone:       row["phone"],
		ContactName: row["contact_name"],
		Active:      true,
		CreatedAt:   s.clock.Now().UTC(),
	})
}

func (s *ImportService) importElevator(ctx context.Context, tenantID string, row ImportRow) error {
	condominiumID := strings.TrimSpace(row["condominium_id"])
	serial := strings.TrimSpace(row["serial_number"])
	if condominiumID == "" || serial == "" {
		return fmt.Errorf("condominium_id and serial_number required")
	}
	// same-tenant reference check
	if _, err := s.condominiums.GetByID(ctx, tenantID, condominiumID); err != nil {
		return fmt.Errorf("condominium %s not found", condominiumID)
	}
	floors := 0
	if raw := strings.TrimSpace(row["floor_count"]); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid floor_count %q", raw)
		}
		floors = parsed
	}
	return s.elevators.Create(ctx, &domain.Elevator{
		TenantID:      tenantID,
		CondominiumID: condominiumID,
		SerialNumber:  serial,
		Manufacturer:  row["manufacturer"],
		Model:         row["model"],
		FloorCount:    floors,
		Active:        true,
		CreatedAt:     s.clock.Now().UTC(),
	})
}

func (s *ImportService) importTechnician(ctx context.Context, tenantID string, row ImportRow) error {
	name := strings.TrimSpace(row["name"])
	if name == "" {
		return fmt.Errorf("name required")
	}
	return s.technicians.Create(ctx, &domain.Technician{
		TenantID:  tenantID,
		Name:      name,
		Phone:     row["phone"],
		Email:     row["email"],
		Region:    row["region"],
		Status:    domain.TechnicianAvailable,
		Active:    true,
		CreatedAt: s.clock.Now().UTC(),
	})
}

func (s *ImportService) publishProgress(ctx context.Context, job *domain.ImportJob) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Name:      events.EventImportProgress,
		TenantID:  job.TenantID,
		Timestamp: s.clock.Now().UTC(),
		Payload: events.ImportProgressPayload{
			ImportID:      job.ID,
			Type:          job.Type,
			Status:        job.Status,
			TotalRows:     job.TotalRows,
			ProcessedRows: job.ProcessedRows,
			ErrorRows:     job.ErrorRows,
			Percent:       job.Percent(),
			Errors:        job.RowErrors,
			FinishedAt:    job.FinishedAt,
		},
	})
}
