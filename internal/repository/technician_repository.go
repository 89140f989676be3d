package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// TechnicianFilter captures listing parameters.
type TechnicianFilter struct {
	Status *domain.TechnicianStatus
	Active *bool
	Region *string
	Limit  int
	Offset int
}

// TechnicianRepository encapsulates technician persistence, tenant-scoped.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	Update(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Technician, error)
	// LockByID loads the technician under FOR UPDATE inside a transaction.
	LockByID(ctx context.Context, tenantID, id string) (*domain.Technician, error)
	List(ctx context.Context, tenantID string, filter TechnicianFilter) ([]domain.Technician, error)
	// ListAvailable returns active technicians with status available, ordered
	// by id for deterministic selection.
	ListAvailable(ctx context.Context, tenantID string) ([]domain.Technician, error)
	SetStatus(ctx context.Context, tenantID, id string, status domain.TechnicianStatus) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `id, tenant_id, user_id, name, phone, email, region, status, active, created_at, updated_at, deleted_at`

func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO technicians (id, tenant_id, user_id, name, phone, email, region, status, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`
	_, err := pick(ctx, r.pool).Exec(ctx, query,
		technician.ID,
		technician.TenantID,
		technician.UserID,
		technician.Name,
		technician.Phone,
		technician.Email,
		technician.Region,
		technician.Status,
		technician.Active,
		technician.CreatedAt,
	)
	if err != nil {
		return err
	}
	technician.UpdatedAt = technician.CreatedAt
	return nil
}

func (r *technicianRepository) Update(ctx context.Context, technician *domain.Technician) error {
	const query = `
        UPDATE technicians SET name=$1, phone=$2, email=$3, region=$4, status=$5, active=$6, updated_at=$7
        WHERE tenant_id=$8 AND id=$9 AND deleted_at IS NULL`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query,
		technician.Name,
		technician.Phone,
		technician.Email,
		technician.Region,
		technician.Status,
		technician.Active,
		technician.UpdatedAt,
		technician.TenantID,
		technician.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Technician, error) {
	query := fmt.Sprintf(`SELECT %s FROM technicians WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`, technicianColumns)
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *technicianRepository) LockByID(ctx context.Context, tenantID, id string) (*domain.Technician, error) {
	query := fmt.Sprintf(`SELECT %s FROM technicians WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL FOR UPDATE`, technicianColumns)
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Technician, error) {
	var technician domain.Technician
	if err := scanTechnician(pick(ctx, r.pool).QueryRow(ctx, query, args...), &technician); err != nil {
		return nil, err
	}
	return &technician, nil
}

func (r *technicianRepository) List(ctx context.Context, tenantID string, filter TechnicianFilter) ([]domain.Technician, error) {
	args := []any{tenantID}
	clauses := []string{"tenant_id=$1", "deleted_at IS NULL"}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if filter.Region != nil && strings.TrimSpace(*filter.Region) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.Region))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(region) LIKE $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM technicians WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		technicianColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := pick(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTechnicians(rows)
}

func (r *technicianRepository) ListAvailable(ctx context.Context, tenantID string) ([]domain.Technician, error) {
	query := fmt.Sprintf(`SELECT %s FROM technicians
        WHERE tenant_id=$1 AND deleted_at IS NULL AND active=true AND status='available'
        ORDER BY id ASC`, technicianColumns)
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTechnicians(rows)
}

func (r *technicianRepository) SetStatus(ctx context.Context, tenantID, id string, status domain.TechnicianStatus) error {
	const query = `
        UPDATE technicians SET status=$1, updated_at=NOW()
        WHERE tenant_id=$2 AND id=$3 AND deleted_at IS NULL`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query, status, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	const query = `
        UPDATE technicians SET deleted_at=NOW(), updated_at=NOW()
        WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTechnician(row pgx.Row, technician *domain.Technician) error {
	return row.Scan(
		&technician.ID,
		&technician.TenantID,
		&technician.UserID,
		&technician.Name,
		&technician.Phone,
		&technician.Email,
		&technician.Region,
		&technician.Status,
		&technician.Active,
		&technician.CreatedAt,
		&technician.UpdatedAt,
		&technician.DeletedAt,
	)
}

func scanTechnicians(rows pgx.Rows) ([]domain.Technician, error) {
	var result []domain.Technician
	for rows.Next() {
		var technician domain.Technician
		if err := scanTechnician(rows, &technician); err != nil {
			return nil, err
		}
		result = append(result, technician)
	}
	return result, rows.Err()
}
