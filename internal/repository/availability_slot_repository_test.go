package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/availability-api/internal/models"
)

var slotRowColumns = []string{"id", "tenant_id", "organization_id", "employee_id", "start_time", "end_time", "all_day", "type", "created_at", "updated_at"}

func newAvailabilitySlotRepoMock(t *testing.T) (*AvailabilitySlotRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewAvailabilitySlotRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func strPtr(v string) *string { return &v }

func TestAvailabilitySlotRepositoryFindConflicts(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	now := time.Now()

	rows := sqlmock.NewRows(slotRowColumns).
		AddRow("slot-1", "t1", nil, "emp-1", start.Add(-time.Hour), start, false, "Default", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_slots s WHERE s.tenant_id = $1 AND s.employee_id = $2 AND s.start_time <= $3 AND s.end_time >= $4 ORDER BY s.start_time ASC")).
		WithArgs("t1", "emp-1", end, start).
		WillReturnRows(rows)

	slots, err := repo.FindConflicts(context.Background(), nil, models.ConflictQuery{
		TenantID:   "t1",
		EmployeeID: strPtr("emp-1"),
		StartTime:  start,
		EndTime:    end,
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
	assert.Equal(t, models.AvailabilitySlotTypeDefault, slots[0].Type)
	assert.Nil(t, slots[0].OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryFindConflictsFullScope(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	slotType := models.AvailabilitySlotTypeRecurring

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN employees e ON e.id = s.employee_id WHERE s.tenant_id = $1 AND s.employee_id IS NULL AND s.organization_id = $2 AND s.type = $3 AND NOT (s.id = ANY($4)) AND s.start_time <= $5 AND s.end_time >= $6")).
		WithArgs("t1", "org-1", "Recurring", sqlmock.AnyArg(), end, start).
		WillReturnRows(sqlmock.NewRows(append(slotRowColumns, "employee_full_name")))

	slots, err := repo.FindConflicts(context.Background(), nil, models.ConflictQuery{
		TenantID:       "t1",
		OrganizationID: strPtr("org-1"),
		Type:           &slotType,
		StartTime:      start,
		EndTime:        end,
		ExcludeIDs:     []string{"slot-9"},
		Relations:      []string{models.RelationEmployee},
	})
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryRejectsUnknownRelation(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	_, err := repo.FindConflicts(context.Background(), nil, models.ConflictQuery{TenantID: "t1", Relations: []string{"manager"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryFindByIDWithRelations(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows(append(slotRowColumns, "employee_full_name", "organization_name")).
		AddRow("slot-1", "t1", "org-1", "emp-1", now, now.Add(time.Hour), true, "Default", now, now, "Ada Lovelace", "Engines")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN organizations o ON o.id = s.organization_id WHERE s.id = $1 AND s.tenant_id = $2")).
		WithArgs("slot-1", "t1").
		WillReturnRows(rows)

	slot, err := repo.FindByID(context.Background(), nil, "t1", "slot-1", models.RelationEmployee, models.RelationOrganization)
	require.NoError(t, err)
	require.NotNil(t, slot.Employee)
	assert.Equal(t, "Ada Lovelace", slot.Employee.FullName)
	require.NotNil(t, slot.Organization)
	assert.Equal(t, "Engines", slot.Organization.Name)
	assert.True(t, slot.AllDay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1 AND s.tenant_id = $2")).
		WithArgs("missing", "t1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), nil, "t1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryList(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows(slotRowColumns).
		AddRow("slot-1", "t1", "org-1", "emp-1", from, from.Add(time.Hour), false, "Default", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_slots s WHERE s.tenant_id = $1 AND s.organization_id = $2 AND s.end_time >= $3 ORDER BY s.start_time ASC, s.id ASC LIMIT 10 OFFSET 10")).
		WithArgs("t1", "org-1", from).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM availability_slots s WHERE s.tenant_id = $1 AND s.organization_id = $2 AND s.end_time >= $3")).
		WithArgs("t1", "org-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	slots, total, err := repo.List(context.Background(), models.AvailabilitySlotFilter{
		TenantID:       "t1",
		OrganizationID: strPtr("org-1"),
		From:           &from,
		Page:           2,
		PageSize:       10,
	})
	require.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryDeleteByIDs(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_slots WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.DeleteByIDs(context.Background(), nil, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = repo.DeleteByIDs(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryUpsertAssignsID(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_slots")).
		WithArgs(sqlmock.AnyArg(), "t1", nil, "emp-1", start, start.Add(time.Hour), false, "Default", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.AvailabilitySlot{
		TenantID:   "t1",
		EmployeeID: strPtr("emp-1"),
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Type:       models.AvailabilitySlotTypeDefault,
	}
	require.NoError(t, repo.Upsert(context.Background(), nil, slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryInsertBatch(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_slots")).
		WillReturnResult(sqlmock.NewResult(2, 2))

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	slots := []models.AvailabilitySlot{
		{TenantID: "t1", StartTime: start, EndTime: start.Add(time.Hour), Type: models.AvailabilitySlotTypeDefault},
		{TenantID: "t1", StartTime: start, EndTime: start.Add(time.Hour), Type: models.AvailabilitySlotTypeDefault},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, slots))
	assert.NotEqual(t, slots[0].ID, slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilitySlotRepositoryLockScope(t *testing.T) {
	repo, mock, cleanup := newAvailabilitySlotRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("availability:t1:emp-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.LockScope(context.Background(), nil, "availability:t1:emp-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
