package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/dispatch-service/internal/domain"
)

// OrderFilter captures listing parameters. TenantID is always applied
// separately and is never optional.
type OrderFilter struct {
	Statuses      []domain.OrderStatus
	Priorities    []domain.Priority
	ElevatorID    *string
	CondominiumID *string
	TechnicianID  *string
	Origin        *domain.OrderOrigin
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// ServiceOrderRepository encapsulates service order persistence. Every method
// takes the tenant id explicitly; tenant isolation is a hard filter on each
// query, not an application convention.
type ServiceOrderRepository interface {
	Create(ctx context.Context, order *domain.ServiceOrder) error
	Update(ctx context.Context, order *domain.ServiceOrder) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.ServiceOrder, error)
	// LockByID loads the order under FOR UPDATE. Only meaningful inside a
	// transaction started via TxRunner.
	LockByID(ctx context.Context, tenantID, id string) (*domain.ServiceOrder, error)
	ListWithFilter(ctx context.Context, tenantID string, filter OrderFilter) ([]domain.ServiceOrder, error)
	ListActive(ctx context.Context, tenantID string) ([]domain.ServiceOrder, error)
	CountActiveForTechnician(ctx context.Context, tenantID, technicianID, excludeOrderID string) (int, error)
	ActiveCountsByTechnician(ctx context.Context, tenantID string) (map[string]int, error)
	TenantsWithOverdue(ctx context.Context, now time.Time) ([]string, error)
	ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]domain.ServiceOrder, error)
	// MarkSLAViolated sets sla_violated_at exactly once. Returns false when
	// another writer already marked the order or it is no longer eligible.
	MarkSLAViolated(ctx context.Context, tenantID, id string, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error
}

type serviceOrderRepository struct {
	pool *pgxpool.Pool
}

// NewServiceOrderRepository instantiates repository.
func NewServiceOrderRepository(pool *pgxpool.Pool) ServiceOrderRepository {
	return &serviceOrderRepository{pool: pool}
}

const orderColumns = `id, tenant_id, elevator_id, condominium_id, assigned_technician_id, created_by_user_id,
	priority, status, type, origin, title, description, resolution_notes, caller_name, caller_phone,
	sla_deadline, sla_violated_at, assigned_at, started_at, completed_at, closed_at,
	created_at, updated_at, deleted_at`

func (r *serviceOrderRepository) Create(ctx context.Context, order *domain.ServiceOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO service_orders (id, tenant_id, elevator_id, condominium_id, assigned_technician_id,
            created_by_user_id, priority, status, type, origin, title, description, resolution_notes,
            caller_name, caller_phone, sla_deadline, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)`
	_, err := pick(ctx, r.pool).Exec(ctx, query,
		order.ID,
		order.TenantID,
		order.ElevatorID,
		order.CondominiumID,
		order.AssignedTechnicianID,
		order.CreatedByUserID,
		order.Priority,
		order.Status,
		order.Type,
		order.Origin,
		order.Title,
		order.Description,
		order.ResolutionNotes,
		order.CallerName,
		order.CallerPhone,
		order.SLADeadline,
		order.CreatedAt,
	)
	if err != nil {
		return err
	}
	order.UpdatedAt = order.CreatedAt
	return nil
}

func (r *serviceOrderRepository) Update(ctx context.Context, order *domain.ServiceOrder) error {
	const query = `
        UPDATE service_orders SET assigned_technician_id=$1, priority=$2, status=$3, title=$4,
            description=$5, resolution_notes=$6, sla_deadline=$7, sla_violated_at=$8,
            assigned_at=$9, started_at=$10, completed_at=$11, closed_at=$12, updated_at=$13
        WHERE tenant_id=$14 AND id=$15 AND deleted_at IS NULL`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query,
		order.AssignedTechnicianID,
		order.Priority,
		order.Status,
		order.Title,
		order.Description,
		order.ResolutionNotes,
		order.SLADeadline,
		order.SLAViolatedAt,
		order.AssignedAt,
		order.StartedAt,
		order.CompletedAt,
		order.ClosedAt,
		order.UpdatedAt,
		order.TenantID,
		order.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceOrderRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.ServiceOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_orders WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL`, orderColumns)
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *serviceOrderRepository) LockByID(ctx context.Context, tenantID, id string) (*domain.ServiceOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_orders WHERE tenant_id=$1 AND id=$2 AND deleted_at IS NULL FOR UPDATE`, orderColumns)
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *serviceOrderRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.ServiceOrder, error) {
	var order domain.ServiceOrder
	if err := scanOrder(pick(ctx, r.pool).QueryRow(ctx, query, args...), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *serviceOrderRepository) ListWithFilter(ctx context.Context, tenantID string, filter OrderFilter) ([]domain.ServiceOrder, error) {
	base := fmt.Sprintf(`SELECT %s FROM service_orders`, orderColumns)
	args := []any{tenantID}
	clauses := []string{"tenant_id=$1", "deleted_at IS NULL"}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ElevatorID != nil {
		args = append(args, *filter.ElevatorID)
		clauses = append(clauses, fmt.Sprintf("elevator_id=$%d", len(args)))
	}
	if filter.CondominiumID != nil {
		args = append(args, *filter.CondominiumID)
		clauses = append(clauses, fmt.Sprintf("condominium_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if filter.Origin != nil {
		args = append(args, *filter.Origin)
		clauses = append(clauses, fmt.Sprintf("origin=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(caller_name) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 25
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s
        ORDER BY CASE priority WHEN 'P0' THEN 4 WHEN 'P1' THEN 3 WHEN 'P2' THEN 2 ELSE 1 END DESC,
                 created_at DESC
        LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := pick(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *serviceOrderRepository) ListActive(ctx context.Context, tenantID string) ([]domain.ServiceOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_orders
        WHERE tenant_id=$1 AND deleted_at IS NULL AND status IN ('open','assigned','in_progress')`, orderColumns)
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *serviceOrderRepository) CountActiveForTechnician(ctx context.Context, tenantID, technicianID, excludeOrderID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM service_orders
        WHERE tenant_id=$1 AND assigned_technician_id=$2 AND id <> $3
          AND deleted_at IS NULL AND status IN ('open','assigned','in_progress')`
	var count int
	if err := pick(ctx, r.pool).QueryRow(ctx, query, tenantID, technicianID, excludeOrderID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *serviceOrderRepository) ActiveCountsByTechnician(ctx context.Context, tenantID string) (map[string]int, error) {
	const query = `
        SELECT assigned_technician_id, COUNT(*) FROM service_orders
        WHERE tenant_id=$1 AND assigned_technician_id IS NOT NULL
          AND deleted_at IS NULL AND status IN ('open','assigned','in_progress')
        GROUP BY assigned_technician_id`
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var technicianID string
		var count int
		if err := rows.Scan(&technicianID, &count); err != nil {
			return nil, err
		}
		counts[technicianID] = count
	}
	return counts, rows.Err()
}

func (r *serviceOrderRepository) TenantsWithOverdue(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
        SELECT DISTINCT tenant_id FROM service_orders
        WHERE sla_violated_at IS NULL AND sla_deadline IS NOT NULL AND sla_deadline < $1
          AND deleted_at IS NULL AND status IN ('open','assigned','in_progress')`
	rows, err := pick(ctx, r.pool).Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenantID)
	}
	return tenants, rows.Err()
}

func (r *serviceOrderRepository) ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]domain.ServiceOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_orders
        WHERE tenant_id=$1 AND sla_violated_at IS NULL AND sla_deadline IS NOT NULL AND sla_deadline < $2
          AND deleted_at IS NULL AND status IN ('open','assigned','in_progress')`, orderColumns)
	rows, err := pick(ctx, r.pool).Query(ctx, query, tenantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *serviceOrderRepository) MarkSLAViolated(ctx context.Context, tenantID, id string, at time.Time) (bool, error) {
	// Narrow conditional update: the sla_violated_at IS NULL predicate makes
	// the mark idempotent and safe against concurrent sweeps and transitions.
	const query = `
        UPDATE service_orders SET sla_violated_at=$1, updated_at=$1
        WHERE tenant_id=$2 AND id=$3 AND deleted_at IS NULL
          AND sla_violated_at IS NULL AND status IN ('open','assigned','in_progress')`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query, at, tenantID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *serviceOrderRepository) SoftDelete(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `
        UPDATE service_orders SET deleted_at=$1, updated_at=$1
        WHERE tenant_id=$2 AND id=$3 AND deleted_at IS NULL`
	cmd, err := pick(ctx, r.pool).Exec(ctx, query, at, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanOrder(row pgx.Row, order *domain.ServiceOrder) error {
	return row.Scan(
		&order.ID,
		&order.TenantID,
		&order.ElevatorID,
		&order.CondominiumID,
		&order.AssignedTechnicianID,
		&order.CreatedByUserID,
		&order.Priority,
		&order.Status,
		&order.Type,
		&order.Origin,
		&order.Title,
		&order.Description,
		&order.ResolutionNotes,
		&order.CallerName,
		&order.CallerPhone,
		&order.SLADeadline,
		&order.SLAViolatedAt,
		&order.AssignedAt,
		&order.StartedAt,
		&order.CompletedAt,
		&order.ClosedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.DeletedAt,
	)
}

func scanOrders(rows pgx.Rows) ([]domain.ServiceOrder, error) {
	var result []domain.ServiceOrder
	for rows.Next() {
		var order domain.ServiceOrder
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}
