package service

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/availability-api/internal/models"
	appErrors "github.com/noah-isme/availability-api/pkg/errors"
)

type conflictSource interface {
	FindConflicts(ctx context.Context, exec sqlx.ExtContext, q models.ConflictQuery) ([]models.AvailabilitySlot, error)
}

// AvailabilityConflictFinder looks up existing slots that overlap a candidate
// inside its scope.
type AvailabilityConflictFinder struct {
	store  conflictSource
	logger *zap.Logger
}

// NewAvailabilityConflictFinder builds the finder.
func NewAvailabilityConflictFinder(store conflictSource, logger *zap.Logger) *AvailabilityConflictFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityConflictFinder{store: store, logger: logger}
}

// Find returns the slots conflicting with candidate. Matching is on employee
// and tenant always, on organization and type only when given, minus
// opts.ExcludeIDs. A nil scope organization searches every organization of
// the tenant.
func (f *AvailabilityConflictFinder) Find(ctx context.Context, exec sqlx.ExtContext, candidate models.SlotCandidate, scope models.Scope, opts models.ConflictOptions) ([]models.AvailabilitySlot, error) {
	if strings.TrimSpace(scope.TenantID) == "" {
		return nil, appErrors.ErrTenantRequired
	}
	if err := validateRelations(opts.Relations); err != nil {
		return nil, err
	}
	if scope.OrganizationID == nil {
		f.logger.Debug("conflict search spans all organizations of tenant",
			zap.String("tenant_id", scope.TenantID),
			zap.Stringp("employee_id", candidate.EmployeeID),
		)
	}

	start, end := models.NormalizeTime(candidate.StartTime), models.NormalizeTime(candidate.EndTime)
	query := models.ConflictQuery{
		TenantID:       scope.TenantID,
		OrganizationID: scope.OrganizationID,
		EmployeeID:     candidate.EmployeeID,
		Type:           candidate.Type,
		StartTime:      start,
		EndTime:        end,
		ExcludeIDs:     opts.ExcludeIDs,
		Relations:      opts.Relations,
	}

	rows, err := f.store.FindConflicts(ctx, exec, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find conflicting availability slots")
	}

	span := models.AvailabilitySlot{StartTime: start, EndTime: end}
	excluded := make(map[string]struct{}, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = struct{}{}
	}

	conflicts := make([]models.AvailabilitySlot, 0, len(rows))
	for _, row := range rows {
		if _, skip := excluded[row.ID]; skip {
			continue
		}
		if !matchesQuery(row, query) || !span.Overlaps(row) {
			continue
		}
		conflicts = append(conflicts, row)
	}
	if len(conflicts) != len(rows) {
		f.logger.Warn("store returned rows outside conflict scope",
			zap.Int("returned", len(rows)),
			zap.Int("kept", len(conflicts)),
		)
	}
	return conflicts, nil
}

func matchesQuery(slot models.AvailabilitySlot, q models.ConflictQuery) bool {
	if slot.TenantID != q.TenantID {
		return false
	}
	if !equalOptional(slot.EmployeeID, q.EmployeeID) {
		return false
	}
	if q.OrganizationID != nil && !equalOptional(slot.OrganizationID, q.OrganizationID) {
		return false
	}
	if q.Type != nil && slot.Type != *q.Type {
		return false
	}
	return true
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateRelations(relations []string) error {
	for _, rel := range relations {
		switch rel {
		case models.RelationEmployee, models.RelationOrganization:
		default:
			return appErrors.Clone(appErrors.ErrValidation, "unsupported relation: "+rel)
		}
	}
	return nil
}

// parseRelations splits a comma separated relation list.
func parseRelations(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	relations := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		rel := strings.ToLower(strings.TrimSpace(part))
		if rel == "" {
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		relations = append(relations, rel)
	}
	return relations
}
