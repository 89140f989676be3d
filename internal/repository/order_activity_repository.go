package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// OrderActivityRepository persists the append-only audit trail.
type OrderActivityRepository interface {
	Append(ctx context.Context, activity *domain.OrderActivity) error
	ListByOrder(ctx context.Context, tenantID, orderID string) ([]domain.OrderActivity, error)
}

type orderActivityRepository struct {
	pool *pgxpool.Pool
}

// NewOrderActivityRepository instantiates repository.
func NewOrderActivityRepository(pool *pgxpool.Pool) OrderActivityRepository {
	return &orderActivityRepository{pool: pool}
}

func (r *orderActivityRepository) Append(ctx context.Context, activity *domain.OrderActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO order_activities (id, tenant_id, order_id, actor_user_id, from_status, to_status, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := pick(ctx, r.pool).Exec(ctx, query,
		activity.ID,
		activity.TenantID,
		activity.OrderID,
		activity.ActorUserID,
		activity.FromStatus,
		activity.ToStatus,
		activity.Description,
		activity.CreatedAt,
	)
	return err
}

func (r *orderActivityRepository) ListByOrder(ctx context.Context, tenantID, orderID string) ([]domain.OrderActivity, error) {
	const query = `
        SELECT id, tenant_id, order_id, actor_user_id, from_status, to_status, description, created_at
        FROM order_activities
        WHERE tenant_id=$1 AND order_id=$2
        ORDER BY created_at ASC, id ASC`
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OrderActivity
	for rows.Next() {
		var activity domain.OrderActivity
		if err := rows.Scan(
			&activity.ID,
			&activity.TenantID,
			&activity.OrderID,
			&activity.ActorUserID,
			&activity.FromStatus,
			&activity.ToStatus,
			&activity.Description,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
