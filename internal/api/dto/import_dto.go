package dto

import (
	"time"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// CreateImportRequest payload.
type CreateImportRequest struct {
	Type     domain.ImportType `json:"type"`
	FilePath string            `json:"file_path"`
}

// ImportJobResponse represents an import job and its progress.
type ImportJobResponse struct {
	ID            string                  `json:"id"`
	Type          domain.ImportType       `json:"type"`
	Status        domain.ImportStatus     `json:"status"`
	FilePath      string                  `json:"file_path"`
	TotalRows     int                     `json:"total_rows"`
	ProcessedRows int                     `json:"processed_rows"`
	ErrorRows     int                     `json:"error_rows"`
	Percent       int                     `json:"percent"`
	RowErrors     []domain.ImportRowError `json:"row_errors,omitempty"`
	Attempts      int                     `json:"attempts"`
	StartedAt     *time.Time              `json:"started_at"`
	FinishedAt    *time.Time              `json:"finished_at"`
	CreatedAt     time.Time               `json:"created_at"`
}
