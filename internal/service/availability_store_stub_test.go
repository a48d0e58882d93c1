package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/availability-api/internal/models"
)

// memSlotStore keeps slots in memory and filters conflicts with the same
// predicate the finder applies.
type memSlotStore struct {
	mu      sync.Mutex
	slots   map[string]models.AvailabilitySlot
	seq     int
	locks   []string
	queries []models.ConflictQuery
	errs    map[string]error
	// extra rows returned by FindConflicts regardless of filters.
	leak []models.AvailabilitySlot
	// afterList runs after List has read its rows.
	afterList func()
}

func newMemSlotStore(slots ...models.AvailabilitySlot) *memSlotStore {
	store := &memSlotStore{slots: map[string]models.AvailabilitySlot{}, errs: map[string]error{}}
	for _, slot := range slots {
		store.slots[slot.ID] = slot
	}
	return store
}

func (m *memSlotStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

func (m *memSlotStore) snapshot() map[string]models.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.AvailabilitySlot, len(m.slots))
	for id, slot := range m.slots {
		out[id] = slot
	}
	return out
}

func (m *memSlotStore) all() []models.AvailabilitySlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AvailabilitySlot, 0, len(m.slots))
	for _, slot := range m.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (m *memSlotStore) FindConflicts(ctx context.Context, exec sqlx.ExtContext, q models.ConflictQuery) ([]models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if err := m.errs["find"]; err != nil {
		return nil, err
	}
	excluded := map[string]bool{}
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}
	span := models.AvailabilitySlot{StartTime: q.StartTime, EndTime: q.EndTime}
	var out []models.AvailabilitySlot
	for _, slot := range m.slots {
		if excluded[slot.ID] || !matchesQuery(slot, q) || !span.Overlaps(slot) {
			continue
		}
		out = append(out, slot)
	}
	out = append(out, m.leak...)
	return out, nil
}

func (m *memSlotStore) FindByID(ctx context.Context, exec sqlx.ExtContext, tenantID, id string, relations ...string) (*models.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["find_by_id"]; err != nil {
		return nil, err
	}
	slot, ok := m.slots[id]
	if !ok || slot.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

func (m *memSlotStore) List(ctx context.Context, filter models.AvailabilitySlotFilter) ([]models.AvailabilitySlot, int, error) {
	if err := m.errs["list"]; err != nil {
		return nil, 0, err
	}
	var out []models.AvailabilitySlot
	for _, slot := range m.all() {
		if slot.TenantID != filter.TenantID {
			continue
		}
		if filter.OrganizationID != nil && !equalOptional(slot.OrganizationID, filter.OrganizationID) {
			continue
		}
		if filter.EmployeeID != nil && !equalOptional(slot.EmployeeID, filter.EmployeeID) {
			continue
		}
		out = append(out, slot)
	}
	if m.afterList != nil {
		m.afterList()
	}
	return out, len(out), nil
}

func (m *memSlotStore) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["delete"]; err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.slots[id]; ok {
			delete(m.slots, id)
			n++
		}
	}
	return n, nil
}

func (m *memSlotStore) Delete(ctx context.Context, exec sqlx.ExtContext, tenantID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["delete"]; err != nil {
		return 0, err
	}
	slot, ok := m.slots[id]
	if !ok || slot.TenantID != tenantID {
		return 0, nil
	}
	delete(m.slots, id)
	return 1, nil
}

func (m *memSlotStore) Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["upsert"]; err != nil {
		return err
	}
	m.stamp(slot)
	m.slots[slot.ID] = *slot
	return nil
}

func (m *memSlotStore) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["insert_batch"]; err != nil {
		return err
	}
	for i := range slots {
		m.stamp(&slots[i])
		m.slots[slots[i].ID] = slots[i]
	}
	return nil
}

func (m *memSlotStore) LockScope(ctx context.Context, exec sqlx.ExtContext, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["lock"]; err != nil {
		return err
	}
	m.locks = append(m.locks, key)
	return nil
}

func (m *memSlotStore) stamp(slot *models.AvailabilitySlot) {
	if slot.ID == "" {
		m.seq++
		slot.ID = fmt.Sprintf("slot-%d", m.seq)
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	slot.UpdatedAt = slot.CreatedAt
}

func strPtr(v string) *string { return &v }

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

func slotAt(id, employee string, start, end time.Time) models.AvailabilitySlot {
	return models.AvailabilitySlot{
		ID:         id,
		TenantID:   "tenant-1",
		EmployeeID: strPtr(employee),
		StartTime:  start,
		EndTime:    end,
		Type:       models.AvailabilitySlotTypeDefault,
	}
}
