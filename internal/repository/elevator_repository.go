package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// ElevatorRepository encapsulates elevator persistence, tenant-scoped.
type ElevatorRepository interface {
	Create(ctx context.Context, elevator *domain.Elevator) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Elevator, error)
	ListByCondominium(ctx context.Context, tenantID, condominiumID string) ([]domain.Elevator, error)
}

type elevatorRepository struct {
	pool *pgxpool.Pool
}

// NewElevatorRepository instantiates repository.
func NewElevatorRepository(pool *pgxpool.Pool) ElevatorRepository {
	return &elevatorRepository{pool: pool}
}

const elevatorColumns = `id, tenant_id, condominium_id, serial_number, manufacturer, model, floor_count, next_revision_date, active, created_at, updated_at, deleted_at`

func (r *elevatorRepository) Create(ctx context.Context, elevator *domain.Elevator) error {
	if elevator.ID == "" {
		elevator.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO elevators (id, tenant_id, condominium_id, serial_number, manufacturer, model, floor_count, next_revision_date, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`
	_, err := pick(ctx, r.pool).Exec(ctx, query,
		elevator.ID,
		elevator.TenantID,
		elevator.CondominiumID,
		elevator.SerialNumber,
		elevator.Manufacturer,
		elevator.Model,
		elevator.FloorCount,
		elevator.NextRevisionDate,
		elevator.Active,
		elevator.CreatedAt,
	)
	if err != nil {
		return err
	}
	elevator.UpdatedAt = elevator.CreatedAt
	return nil
}

func (r *elevatorRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Elevator, error) {
	query := `SELECT ` + elevatorColumns + ` FROM elevators WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`
	var elevator domain.Elevator
	if err := scanElevator(pick(ctx, r.pool).QueryRow(ctx, query, tenantID, id), &elevator); err != nil {
		return nil, err
	}
	return &elevator, nil
}

func (r *elevatorRepository) ListByCondominium(ctx context.Context, tenantID, condominiumID string) ([]domain.Elevator, error) {
	query := `SELECT ` + elevatorColumns + ` FROM elevators
        WHERE tenant_id=$1 AND condominium_id=$2 AND deleted_at IS NULL ORDER BY serial_number ASC`
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID, condominiumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Elevator
	for rows.Next() {
		var elevator domain.Elevator
		if err := scanElevator(rows, &elevator); err != nil {
			return nil, err
		}
		result = append(result, elevator)
	}
	return result, rows.Err()
}

func scanElevator(row pgx.Row, elevator *domain.Elevator) error {
	return row.Scan(
		&elevator.ID,
		&elevator.TenantID,
		&elevator.CondominiumID,
		&elevator.SerialNumber,
		&elevator.Manufacturer,
		&elevator.Model,
		&elevator.FloorCount,
		&elevator.NextRevisionDate,
		&elevator.Active,
		&elevator.CreatedAt,
		&elevator.UpdatedAt,
		&elevator.DeletedAt,
	)
}
