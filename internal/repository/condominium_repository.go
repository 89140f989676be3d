package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// CondominiumRepository encapsulates condominium persistence, tenant-scoped.
type CondominiumRepository interface {
	Create(ctx context.Context, condominium *domain.Condominium) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Condominium, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]domain.Condominium, error)
}

type condominiumRepository struct {
	pool *pgxpool.Pool
}

// NewCondominiumRepository instantiates repository.
func NewCondominiumRepository(pool *pgxpool.Pool) CondominiumRepository {
	return &condominiumRepository{pool: pool}
}

const condominiumColumns = `id, tenant_id, name, address, city, state, zip_code, phone, contact_name, active, created_at, updated_at, deleted_at`

func (r *condominiumRepository) Create(ctx context.Context, condominium *domain.Condominium) error {
	if condominium.ID == "" {
		condominium.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO condominiums (id, tenant_id, name, address, city, state, zip_code, phone, contact_name, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`
	_, err := pick(ctx, r.pool).Exec(ctx, query,
		condominium.ID,
		condominium.TenantID,
		condominium.Name,
		condominium.Address,
		condominium.City,
		condominium.State,
		condominium.ZipCode,
		condominium.Phone,
		condominium.ContactName,
		condominium.Active,
		condominium.CreatedAt,
	)
	if err != nil {
		return err
	}
	condominium.UpdatedAt = condominium.CreatedAt
	return nil
}

func (r *condominiumRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Condominium, error) {
	query := `SELECT ` + condominiumColumns + ` FROM condominiums WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`
	var condominium domain.Condominium
	if err := scanCondominium(pick(ctx, r.pool).QueryRow(ctx, query, tenantID, id), &condominium); err != nil {
		return nil, err
	}
	return &condominium, nil
}

func (r *condominiumRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]domain.Condominium, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + condominiumColumns + ` FROM condominiums
        WHERE tenant_id=$1 AND deleted_at IS NULL ORDER BY name ASC LIMIT $2 OFFSET $3`
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Condominium
	for rows.Next() {
		var condominium domain.Condominium
		if err := scanCondominium(rows, &condominium); err != nil {
			return nil, err
		}
		result = append(result, condominium)
	}
	return result, rows.Err()
}

func scanCondominium(row pgx.Row, condominium *domain.Condominium) error {
	return row.Scan(
		&condominium.ID,
		&condominium.TenantID,
		&condominium.Name,
		&condominium.Address,
		&condominium.City,
		&condominium.State,
		&condominium.ZipCode,
		&condominium.Phone,
		&condominium.ContactName,
		&condominium.Active,
		&condominium.CreatedAt,
		&condominium.UpdatedAt,
		&condominium.DeletedAt,
	)
}
