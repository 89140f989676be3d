package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/events"
	"github.com/spec-kit/dispatch-service/internal/repository"
)

// In-memory repository fakes. They mirror the SQL predicates of the real
// repositories closely enough to exercise the services without a database.

type memOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*domain.ServiceOrder
	failMark map[string]error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*domain.ServiceOrder{}, failMark: map[string]error{}}
}

func copyOrder(o *domain.ServiceOrder) *domain.ServiceOrder {
	clone := *o
	return &clone
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.ServiceOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, order *domain.ServiceOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, tenantID, id string) (*domain.ServiceOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.TenantID != tenantID || order.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return copyOrder(order), nil
}

func (r *memOrderRepo) LockByID(ctx context.Context, tenantID, id string) (*domain.ServiceOrder, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *memOrderRepo) ListWithFilter(_ context.Context, tenantID string, filter repository.OrderFilter) ([]domain.ServiceOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ServiceOrder
	for _, order := range r.orders {
		if order.TenantID != tenantID || order.DeletedAt != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, order.Status) {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsStatus(statuses []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r *memOrderRepo) ListActive(_ context.Context, tenantID string) ([]domain.ServiceOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ServiceOrder
	for _, order := range r.orders {
		if order.TenantID == tenantID && order.DeletedAt == nil && order.Status.IsActive() {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) CountActiveForTechnician(_ context.Context, tenantID, technicianID, excludeOrderID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, order := range r.orders {
		if order.TenantID != tenantID || order.DeletedAt != nil || !order.Status.IsActive() {
			continue
		}
		if order.ID == excludeOrderID {
			continue
		}
		if order.AssignedTechnicianID != nil && *order.AssignedTechnicianID == technicianID {
			count++
		}
	}
	return count, nil
}

func (r *memOrderRepo) ActiveCountsByTechnician(_ context.Context, tenantID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, order := range r.orders {
		if order.TenantID != tenantID || order.DeletedAt != nil || !order.Status.IsActive() {
			continue
		}
		if order.AssignedTechnicianID != nil {
			counts[*order.AssignedTechnicianID]++
		}
	}
	return counts, nil
}

func (r *memOrderRepo) TenantsWithOverdue(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	for _, order := range r.orders {
		if order.DeletedAt == nil && order.SLAViolatedAt == nil && order.IsSLAOverdue(now) {
			seen[order.TenantID] = true
		}
	}
	tenants := make([]string, 0, len(seen))
	for tenant := range seen {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (r *memOrderRepo) ListOverdue(_ context.Context, tenantID string, now time.Time) ([]domain.ServiceOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ServiceOrder
	for _, order := range r.orders {
		if order.TenantID == tenantID && order.DeletedAt == nil &&
			order.SLAViolatedAt == nil && order.IsSLAOverdue(now) {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderRepo) MarkSLAViolated(_ context.Context, tenantID, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failMark[id]; ok {
		return false, err
	}
	order, ok := r.orders[id]
	if !ok || order.TenantID != tenantID || order.DeletedAt != nil {
		return false, nil
	}
	if order.SLAViolatedAt != nil || !order.Status.IsActive() {
		return false, nil
	}
	violated := at
	order.SLAViolatedAt = &violated
	order.UpdatedAt = at
	return true, nil
}

func (r *memOrderRepo) SoftDelete(_ context.Context, tenantID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	deleted := at
	order.DeletedAt = &deleted
	return nil
}

type memTechnicianRepo struct {
	mu          sync.Mutex
	technicians map[string]*domain.Technician
}

func newMemTechnicianRepo() *memTechnicianRepo {
	return &memTechnicianRepo{technicians: map[string]*domain.Technician{}}
}

func copyTechnician(t *domain.Technician) *domain.Technician {
	clone := *t
	return &clone
}

func (r *memTechnicianRepo) Create(_ context.Context, technician *domain.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	r.technicians[technician.ID] = copyTechnician(technician)
	return nil
}

func (r *memTechnicianRepo) Update(_ context.Context, technician *domain.Technician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.technicians[technician.ID] = copyTechnician(technician)
	return nil
}

func (r *memTechnicianRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	technician, ok := r.technicians[id]
	if !ok || technician.TenantID != tenantID || technician.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return copyTechnician(technician), nil
}

func (r *memTechnicianRepo) LockByID(ctx context.Context, tenantID, id string) (*domain.Technician, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r *memTechnicianRepo) List(_ context.Context, tenantID string, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Technician
	for _, technician := range r.technicians {
		if technician.TenantID != tenantID || technician.DeletedAt != nil {
			continue
		}
		if filter.Status != nil && technician.Status != *filter.Status {
			continue
		}
		if filter.Active != nil && technician.Active != *filter.Active {
			continue
		}
		out = append(out, *technician)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTechnicianRepo) ListAvailable(_ context.Context, tenantID string) ([]domain.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Technician
	for _, technician := range r.technicians {
		if technician.TenantID == tenantID && technician.DeletedAt == nil && technician.IsAvailable() {
			out = append(out, *technician)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTechnicianRepo) SetStatus(_ context.Context, tenantID, id string, status domain.TechnicianStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	technician, ok := r.technicians[id]
	if !ok || technician.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	technician.Status = status
	return nil
}

func (r *memTechnicianRepo) SoftDelete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	technician, ok := r.technicians[id]
	if !ok || technician.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	now := time.Now().UTC()
	technician.DeletedAt = &now
	return nil
}

type memCondominiumRepo struct {
	condominiums map[string]*domain.Condominium
}

func newMemCondominiumRepo() *memCondominiumRepo {
	return &memCondominiumRepo{condominiums: map[string]*domain.Condominium{}}
}

func (r *memCondominiumRepo) Create(_ context.Context, condominium *domain.Condominium) error {
	if condominium.ID == "" {
		condominium.ID = uuid.NewString()
	}
	clone := *condominium
	r.condominiums[condominium.ID] = &clone
	return nil
}

func (r *memCondominiumRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Condominium, error) {
	condominium, ok := r.condominiums[id]
	if !ok || condominium.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *condominium
	return &clone, nil
}

func (r *memCondominiumRepo) List(_ context.Context, tenantID string, _, _ int) ([]domain.Condominium, error) {
	var out []domain.Condominium
	for _, condominium := range r.condominiums {
		if condominium.TenantID == tenantID {
			out = append(out, *condominium)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memElevatorRepo struct {
	elevators map[string]*domain.Elevator
}

func newMemElevatorRepo() *memElevatorRepo {
	return &memElevatorRepo{elevators: map[string]*domain.Elevator{}}
}

func (r *memElevatorRepo) Create(_ context.Context, elevator *domain.Elevator) error {
	if elevator.ID == "" {
		elevator.ID = uuid.NewString()
	}
	clone := *elevator
	r.elevators[elevator.ID] = &clone
	return nil
}

func (r *memElevatorRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Elevator, error) {
	elevator, ok := r.elevators[id]
	if !ok || elevator.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *elevator
	return &clone, nil
}

func (r *memElevatorRepo) ListByCondominium(_ context.Context, tenantID, condominiumID string) ([]domain.Elevator, error) {
	var out []domain.Elevator
	for _, elevator := range r.elevators {
		if elevator.TenantID == tenantID && elevator.CondominiumID == condominiumID {
			out = append(out, *elevator)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memActivityRepo struct {
	mu         sync.Mutex
	activities []domain.OrderActivity
}

func (r *memActivityRepo) Append(_ context.Context, activity *domain.OrderActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	r.activities = append(r.activities, *activity)
	return nil
}

func (r *memActivityRepo) ListByOrder(_ context.Context, tenantID, orderID string) ([]domain.OrderActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderActivity
	for _, activity := range r.activities {
		if activity.TenantID == tenantID && activity.OrderID == orderID {
			out = append(out, activity)
		}
	}
	return out, nil
}

type memImportJobRepo struct {
	jobs map[string]*domain.ImportJob
}

func newMemImportJobRepo() *memImportJobRepo {
	return &memImportJobRepo{jobs: map[string]*domain.ImportJob{}}
}

func (r *memImportJobRepo) Create(_ context.Context, job *domain.ImportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *memImportJobRepo) Update(_ context.Context, job *domain.ImportJob) error {
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *memImportJobRepo) GetByID(_ context.Context, tenantID, id string) (*domain.ImportJob, error) {
	job, ok := r.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

type memIdempotencyStore struct {
	keys map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: map[string]string{}}
}

func (s *memIdempotencyStore) Lookup(_ context.Context, tenantID, key string) (string, bool, error) {
	id, ok := s.keys[tenantID+"/"+key]
	return id, ok, nil
}

func (s *memIdempotencyStore) Remember(_ context.Context, tenantID, key, orderID string) error {
	s.keys[tenantID+"/"+key] = orderID
	return nil
}

// passTxRunner runs the unit of work without a real transaction.
type passTxRunner struct{}

func (passTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventName, events.EventHandler) {}

func (d *recordingDispatcher) byName(name events.EventName) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Name == name {
			out = append(out, event)
		}
	}
	return out
}

// stubRowSource serves a fixed row slice.
type stubRowSource struct {
	rows []ImportRow
	err  error
}

func (s stubRowSource) Rows(context.Context) ([]ImportRow, error) {
	return s.rows, s.err
}
