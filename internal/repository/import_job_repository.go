package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ImportJobRepository tracks bulk import runs, tenant-scoped.
type ImportJobRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	Update(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.ImportJob, error)
}

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository instantiates repository.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

func (r *importJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	rowErrors, err := json.Marshal(job.RowErrors)
	if err != nil {
		return fmt.Errorf("marshal row errors: %w", err)
	}
	const query = `
        INSERT INTO import_jobs (id, tenant_id, user_id, type, status, file_path, total_rows,
            processed_rows, error_rows, row_errors, attempts, started_at, finished_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)`
	_, err = pick(ctx, r.pool).Exec(ctx, query,
		job.ID,
		job.TenantID,
		job.UserID,
		job.Type,
		job.Status,
		job.FilePath,
		job.TotalRows,
		job.ProcessedRows,
		job.ErrorRows,
		rowErrors,
		job.Attempts,
		job.StartedAt,
		job.FinishedAt,
		job.CreatedAt,
	)
	if err != nil {
		return err
	}
	job.UpdatedAt = job.CreatedAt
	return nil
}

func (r *importJobRepository) Update(ctx context.Context, job *domain.ImportJob) error {
	rowErrors, err := json.Marshal(job.RowErrors)
	if err != nil {
		return fmt.Errorf("marshal row errors: %w", err)
	}
	const query = `
        UPDATE import_jobs SET status=$1, total_rows=$2, processed_rows=$3, error_rows=$4,
            row_errors=$5, attempts=$6, started_at=$7, finished_at=$8, updated_at=NOW()
        WHERE tenant_id=$9 AND id=$10`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query,
		job.Status,
		job.TotalRows,
		job.ProcessedRows,
		job.ErrorRows,
		rowErrors,
		job.Attempts,
		job.StartedAt,
		job.FinishedAt,
		job.TenantID,
		job.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *importJobRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.ImportJob, error) {
	const query = `
        SELECT id, tenant_id, user_id, type, status, file_path, total_rows, processed_rows,
               error_rows, row_errors, attempts, started_at, finished_at, created_at, updated_at
        FROM import_jobs WHERE tenant_id=$1 AND id=$2`
	var job domain.ImportJob
	var rowErrors []byte
	if err := pick(ctx, r.pool).QueryRow(ctx, query, tenantID, id).Scan(
		&job.ID,
		&job.TenantID,
		&job.UserID,
		&job.Type,
		&job.Status,
		&job.FilePath,
		&job.TotalRows,
		&job.ProcessedRows,
		&job.ErrorRows,
		&rowErrors,
		&job.Attempts,
		&job.StartedAt,
		&job.FinishedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(rowErrors) > 0 {
		if err := json.Unmarshal(rowErrors, &job.RowErrors); err != nil {
			return nil, fmt.Errorf("unmarshal row errors: %w", err)
		}
	}
	return &job, nil
}
