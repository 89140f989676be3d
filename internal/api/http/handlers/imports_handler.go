package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/dto"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/service"
	"github.com/spec-kit/dispatch-service/internal/worker"
	apperrors "github.com/spec-kit/dispatch-service/pkg/util"
)

// ImportsHandler manages bulk import endpoints.
type ImportsHandler struct {
	service *service.ImportService
	worker  *worker.ImportWorker
}

// NewImportsHandler constructs handler.
func NewImportsHandler(importService *service.ImportService, importWorker *worker.ImportWorker) *ImportsHandler {
	return &ImportsHandler{service: importService, worker: importWorker}
}

// CreateImport POST /imports. The job is queued and processed in the
// background; progress is observable via GetImport and the progress events.
func (h *ImportsHandler) CreateImport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateImportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	actorID := principal.User.ID
	job, err := h.service.CreateJob(c.Context(), principal.TenantID(), &actorID, req.Type, req.FilePath)
	if err != nil {
		return err
	}

	if !h.worker.Enqueue(worker.ImportTask{TenantID: job.TenantID, JobID: job.ID}) {
		return apperrors.NewConflict("import queue full, retry later", nil)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": importJobResponse(job)})
}

// GetImport GET /imports/:id.
func (h *ImportsHandler) GetImport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	job, err := h.service.GetJob(c.Context(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": importJobResponse(job)})
}

func importJobResponse(job *domain.ImportJob) dto.ImportJobResponse {
	return dto.ImportJobResponse{
		ID:            job.ID,
		Type:          job.Type,
		Status:        job.Status,
		FilePath:      job.FilePath,
		TotalRows:     job.TotalRows,
		ProcessedRows: job.ProcessedRows,
		ErrorRows:     job.ErrorRows,
		Percent:       job.Percent(),
		RowErrors:     job.RowErrors,
		Attempts:      job.Attempts,
		StartedAt:     job.StartedAt,
		FinishedAt:    job.FinishedAt,
		CreatedAt:     job.CreatedAt,
	}
}
