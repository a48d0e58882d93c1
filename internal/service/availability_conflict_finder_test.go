package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/availability-api/internal/models"
	appErrors "github.com/noah-isme/availability-api/pkg/errors"
)

func TestAvailabilityConflictFinderFilters(t *testing.T) {
	work := models.AvailabilitySlotType("WORK")
	vacation := models.AvailabilitySlotType("VACATION")

	a := slotAt("a", "emp-1", at(9, 0), at(12, 0))
	a.OrganizationID = strPtr("org-1")
	a.Type = work
	b := slotAt("b", "emp-2", at(9, 0), at(12, 0))
	c := slotAt("c", "emp-1", at(12, 0), at(14, 0))
	c.Type = vacation
	d := slotAt("d", "emp-1", at(9, 0), at(12, 0))
	d.TenantID = "tenant-2"
	unassigned := slotAt("e", "", at(9, 0), at(12, 0))
	unassigned.EmployeeID = nil

	store := newMemSlotStore(a, b, c, d, unassigned)
	finder := NewAvailabilityConflictFinder(store, nil)
	ctx := context.Background()

	cases := []struct {
		name      string
		candidate models.SlotCandidate
		scope     models.Scope
		opts      models.ConflictOptions
		want      []string
	}{
		{
			name:      "no organization searches all organizations and types",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(11, 0), EndTime: at(13, 0)},
			scope:     models.Scope{TenantID: "tenant-1"},
			want:      []string{"a", "c"},
		},
		{
			name:      "organization narrows",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(11, 0), EndTime: at(13, 0)},
			scope:     models.Scope{TenantID: "tenant-1", OrganizationID: strPtr("org-2")},
			want:      nil,
		},
		{
			name:      "type narrows",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(11, 0), EndTime: at(13, 0), Type: &vacation},
			scope:     models.Scope{TenantID: "tenant-1"},
			want:      []string{"c"},
		},
		{
			name:      "touching endpoint conflicts",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(14, 0), EndTime: at(15, 0)},
			scope:     models.Scope{TenantID: "tenant-1"},
			want:      []string{"c"},
		},
		{
			name:      "excluded ids are ignored",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(11, 0), EndTime: at(13, 0)},
			scope:     models.Scope{TenantID: "tenant-1"},
			opts:      models.ConflictOptions{ExcludeIDs: []string{"a"}},
			want:      []string{"c"},
		},
		{
			name:      "candidate enclosing existing slot",
			candidate: models.SlotCandidate{EmployeeID: strPtr("emp-2"), StartTime: at(8, 0), EndTime: at(13, 0)},
			scope:     models.Scope{TenantID: "tenant-1"},
			want:      []string{"b"},
		},
		{
			name:      "nil employee matches unassigned slots only",
			candidate: models.SlotCandidate{StartTime: at(10, 0), EndTime: at(11, 0)},
			scope:     models.Scope{TenantID: "tenant-1"},
			want:      []string{"e"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := finder.Find(ctx, nil, tc.candidate, tc.scope, tc.opts)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, idsOf(found))
		})
	}
}

func TestAvailabilityConflictFinderPassesRelations(t *testing.T) {
	store := newMemSlotStore()
	finder := NewAvailabilityConflictFinder(store, nil)

	_, err := finder.Find(context.Background(), nil,
		models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(9, 0), EndTime: at(10, 0)},
		models.Scope{TenantID: "tenant-1"},
		models.ConflictOptions{Relations: []string{models.RelationEmployee}},
	)
	require.NoError(t, err)
	require.Len(t, store.queries, 1)
	assert.Equal(t, []string{models.RelationEmployee}, store.queries[0].Relations)
}

func TestAvailabilityConflictFinderRejectsUnknownRelation(t *testing.T) {
	finder := NewAvailabilityConflictFinder(newMemSlotStore(), nil)

	_, err := finder.Find(context.Background(), nil,
		models.SlotCandidate{StartTime: at(9, 0), EndTime: at(10, 0)},
		models.Scope{TenantID: "tenant-1"},
		models.ConflictOptions{Relations: []string{"manager"}},
	)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAvailabilityConflictFinderRequiresTenant(t *testing.T) {
	finder := NewAvailabilityConflictFinder(newMemSlotStore(), nil)

	_, err := finder.Find(context.Background(), nil, models.SlotCandidate{StartTime: at(9, 0), EndTime: at(10, 0)}, models.Scope{}, models.ConflictOptions{})
	assert.ErrorIs(t, err, appErrors.ErrTenantRequired)
}

func TestAvailabilityConflictFinderDropsOutOfScopeRows(t *testing.T) {
	store := newMemSlotStore()
	store.leak = []models.AvailabilitySlot{
		slotAt("late", "emp-1", at(15, 0), at(16, 0)),
		slotAt("other", "emp-9", at(9, 0), at(10, 0)),
	}
	finder := NewAvailabilityConflictFinder(store, nil)

	found, err := finder.Find(context.Background(), nil,
		models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(9, 0), EndTime: at(10, 0)},
		models.Scope{TenantID: "tenant-1"},
		models.ConflictOptions{},
	)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAvailabilityConflictFinderKeepsTouchingRowAtStoredPrecision(t *testing.T) {
	// The store compares at microsecond precision, so a start 400ns after the
	// stored end still touches it.
	store := newMemSlotStore()
	store.leak = []models.AvailabilitySlot{slotAt("a", "emp-1", at(9, 0), at(12, 0))}
	finder := NewAvailabilityConflictFinder(store, nil)

	found, err := finder.Find(context.Background(), nil,
		models.SlotCandidate{EmployeeID: strPtr("emp-1"), StartTime: at(12, 0).Add(400 * time.Nanosecond), EndTime: at(13, 0)},
		models.Scope{TenantID: "tenant-1"},
		models.ConflictOptions{},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idsOf(found))
	require.Len(t, store.queries, 1)
	assert.Equal(t, at(12, 0), store.queries[0].StartTime)
}

func TestAvailabilityConflictFinderWrapsStoreError(t *testing.T) {
	store := newMemSlotStore()
	cause := errors.New("connection reset")
	store.failOn("find", cause)
	finder := NewAvailabilityConflictFinder(store, nil)

	_, err := finder.Find(context.Background(), nil,
		models.SlotCandidate{StartTime: at(9, 0), EndTime: at(10, 0)},
		models.Scope{TenantID: "tenant-1"},
		models.ConflictOptions{},
	)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.ErrorIs(t, err, cause)
}

func TestParseRelations(t *testing.T) {
	assert.Nil(t, parseRelations("  "))
	assert.Equal(t, []string{"employee", "organization"}, parseRelations("Employee, organization,employee,"))
}

func idsOf(slots []models.AvailabilitySlot) []string {
	var ids []string
	for _, slot := range slots {
		ids = append(ids, slot.ID)
	}
	return ids
}
