package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/availability-api/internal/models"
)

// Postgres caps bind parameters per statement at 65535; 10 columns per row.
const slotInsertChunk = 500

const slotColumns = "s.id, s.tenant_id, s.organization_id, s.employee_id, s.start_time, s.end_time, s.all_day, s.type, s.created_at, s.updated_at"

// QueryObserver receives per-statement timings.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AvailabilitySlotRepository persists availability slots in Postgres.
type AvailabilitySlotRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewAvailabilitySlotRepository builds the repository.
func NewAvailabilitySlotRepository(db *sqlx.DB) *AvailabilitySlotRepository {
	return &AvailabilitySlotRepository{db: db}
}

// WithObserver attaches a timing observer.
func (r *AvailabilitySlotRepository) WithObserver(observer QueryObserver) *AvailabilitySlotRepository {
	r.observer = observer
	return r
}

func (r *AvailabilitySlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *AvailabilitySlotRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

type availabilitySlotRow struct {
	models.AvailabilitySlot
	EmployeeFullName sql.NullString `db:"employee_full_name"`
	OrganizationName sql.NullString `db:"organization_name"`
}

func (row availabilitySlotRow) toModel(relations []string) models.AvailabilitySlot {
	slot := row.AvailabilitySlot
	for _, rel := range relations {
		switch rel {
		case models.RelationEmployee:
			if slot.EmployeeID != nil && row.EmployeeFullName.Valid {
				slot.Employee = &models.SlotEmployee{ID: *slot.EmployeeID, FullName: row.EmployeeFullName.String}
			}
		case models.RelationOrganization:
			if slot.OrganizationID != nil && row.OrganizationName.Valid {
				slot.Organization = &models.SlotOrganization{ID: *slot.OrganizationID, Name: row.OrganizationName.String}
			}
		}
	}
	return slot
}

// selectFrom builds the SELECT ... FROM clause with one LEFT JOIN per relation.
func selectFrom(relations []string) (string, error) {
	columns := slotColumns
	joins := ""
	for _, rel := range relations {
		switch rel {
		case models.RelationEmployee:
			columns += ", e.full_name AS employee_full_name"
			joins += " LEFT JOIN employees e ON e.id = s.employee_id"
		case models.RelationOrganization:
			columns += ", o.name AS organization_name"
			joins += " LEFT JOIN organizations o ON o.id = s.organization_id"
		default:
			return "", fmt.Errorf("unsupported relation %q", rel)
		}
	}
	return "SELECT " + columns + " FROM availability_slots s" + joins, nil
}

type whereClause struct {
	conditions []string
	args       []interface{}
}

func (w *whereClause) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (w *whereClause) add(format string, arg interface{}) {
	w.conditions = append(w.conditions, fmt.Sprintf(format, w.next()))
	w.args = append(w.args, arg)
}

// addOverlap is the only place the interval overlap predicate is written in
// SQL: existing.start <= candidate.end AND candidate.start <= existing.end.
func (w *whereClause) addOverlap(start, end time.Time) {
	endParam := w.next()
	w.args = append(w.args, end)
	startParam := w.next()
	w.args = append(w.args, start)
	w.conditions = append(w.conditions, fmt.Sprintf("s.start_time <= %s AND s.end_time >= %s", endParam, startParam))
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// FindConflicts returns slots in scope whose span overlaps the query window.
func (r *AvailabilitySlotRepository) FindConflicts(ctx context.Context, exec sqlx.ExtContext, q models.ConflictQuery) ([]models.AvailabilitySlot, error) {
	defer r.observe("availability_slots.find_conflicts", time.Now())

	base, err := selectFrom(q.Relations)
	if err != nil {
		return nil, err
	}

	where := &whereClause{}
	where.add("s.tenant_id = %s", q.TenantID)
	if q.EmployeeID != nil {
		where.add("s.employee_id = %s", *q.EmployeeID)
	} else {
		where.conditions = append(where.conditions, "s.employee_id IS NULL")
	}
	if q.OrganizationID != nil {
		where.add("s.organization_id = %s", *q.OrganizationID)
	}
	if q.Type != nil {
		where.add("s.type = %s", string(*q.Type))
	}
	if len(q.ExcludeIDs) > 0 {
		where.add("NOT (s.id = ANY(%s))", pq.Array(q.ExcludeIDs))
	}
	where.addOverlap(q.StartTime, q.EndTime)

	query := base + where.String() + " ORDER BY s.start_time ASC"
	var rows []availabilitySlotRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, where.args...); err != nil {
		return nil, fmt.Errorf("find conflicting availability slots: %w", err)
	}
	return toModels(rows, q.Relations), nil
}

// FindByID fetches one slot of a tenant. It returns sql.ErrNoRows when absent.
func (r *AvailabilitySlotRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, tenantID, id string, relations ...string) (*models.AvailabilitySlot, error) {
	defer r.observe("availability_slots.find_by_id", time.Now())

	base, err := selectFrom(relations)
	if err != nil {
		return nil, err
	}
	query := base + " WHERE s.id = $1 AND s.tenant_id = $2"
	var row availabilitySlotRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id, tenantID); err != nil {
		return nil, err
	}
	slot := row.toModel(relations)
	return &slot, nil
}

// List returns a page of slots matching filter and the total count.
func (r *AvailabilitySlotRepository) List(ctx context.Context, filter models.AvailabilitySlotFilter) ([]models.AvailabilitySlot, int, error) {
	defer r.observe("availability_slots.list", time.Now())

	base, err := selectFrom(filter.Relations)
	if err != nil {
		return nil, 0, err
	}

	where := &whereClause{}
	where.add("s.tenant_id = %s", filter.TenantID)
	if filter.OrganizationID != nil {
		where.add("s.organization_id = %s", *filter.OrganizationID)
	}
	if filter.EmployeeID != nil {
		where.add("s.employee_id = %s", *filter.EmployeeID)
	}
	if filter.Type != nil {
		where.add("s.type = %s", string(*filter.Type))
	}
	switch {
	case filter.From != nil && filter.To != nil:
		where.addOverlap(*filter.From, *filter.To)
	case filter.From != nil:
		where.add("s.end_time >= %s", *filter.From)
	case filter.To != nil:
		where.add("s.start_time <= %s", *filter.To)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY s.start_time ASC, s.id ASC LIMIT %d OFFSET %d", base, where.String(), size, offset)
	var rows []availabilitySlotRow
	if err := r.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list availability slots: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM availability_slots s" + where.String()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count availability slots: %w", err)
	}

	return toModels(rows, filter.Relations), total, nil
}

// DeleteByIDs removes the given slots and returns how many rows went away.
func (r *AvailabilitySlotRepository) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	defer r.observe("availability_slots.delete_many", time.Now())

	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM availability_slots WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete availability slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete availability slots rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes one slot of a tenant.
func (r *AvailabilitySlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, tenantID, id string) (int64, error) {
	defer r.observe("availability_slots.delete", time.Now())

	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return 0, fmt.Errorf("delete availability slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete availability slot rows affected: %w", err)
	}
	return affected, nil
}

// Upsert inserts the slot or fully overwrites the row with the same id.
func (r *AvailabilitySlotRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.AvailabilitySlot) error {
	defer r.observe("availability_slots.upsert", time.Now())

	stampSlot(slot, time.Now().UTC())

	const query = `
INSERT INTO availability_slots (id, tenant_id, organization_id, employee_id, start_time, end_time, all_day, type, created_at, updated_at)
VALUES (:id, :tenant_id, :organization_id, :employee_id, :start_time, :end_time, :all_day, :type, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE
SET tenant_id = EXCLUDED.tenant_id,
    organization_id = EXCLUDED.organization_id,
    employee_id = EXCLUDED.employee_id,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    all_day = EXCLUDED.all_day,
    type = EXCLUDED.type,
    updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("upsert availability slot: %w", err)
	}
	return nil
}

// InsertBatch inserts slots with multi-row statements. Nothing is checked for overlap.
func (r *AvailabilitySlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}
	defer r.observe("availability_slots.insert_batch", time.Now())

	now := time.Now().UTC()
	for i := range slots {
		stampSlot(&slots[i], now)
	}

	const query = `
INSERT INTO availability_slots (id, tenant_id, organization_id, employee_id, start_time, end_time, all_day, type, created_at, updated_at)
VALUES (:id, :tenant_id, :organization_id, :employee_id, :start_time, :end_time, :all_day, :type, :created_at, :updated_at)`

	target := r.exec(exec)
	for start := 0; start < len(slots); start += slotInsertChunk {
		end := start + slotInsertChunk
		if end > len(slots) {
			end = len(slots)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slots[start:end]); err != nil {
			return fmt.Errorf("insert availability slots batch: %w", err)
		}
	}
	return nil
}

// LockScope takes a transaction-scoped advisory lock on key. exec must be a
// transaction; the lock is released on commit or rollback.
func (r *AvailabilitySlotRepository) LockScope(ctx context.Context, exec sqlx.ExtContext, key string) error {
	defer r.observe("availability_slots.lock_scope", time.Now())

	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock availability scope %s: %w", key, err)
	}
	return nil
}

func stampSlot(slot *models.AvailabilitySlot, now time.Time) {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	slot.StartTime = models.NormalizeTime(slot.StartTime)
	slot.EndTime = models.NormalizeTime(slot.EndTime)
}

func toModels(rows []availabilitySlotRow, relations []string) []models.AvailabilitySlot {
	slots := make([]models.AvailabilitySlot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, row.toModel(relations))
	}
	return slots
}
