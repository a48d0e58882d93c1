package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/availability-api/internal/dto"
	"github.com/noah-isme/availability-api/internal/models"
	"github.com/noah-isme/availability-api/pkg/database"
	appErrors "github.com/noah-isme/availability-api/pkg/errors"
	"github.com/noah-isme/availability-api/pkg/middleware/requestid"
)

type availabilitySlotStore interface {
	conflictSource
	FindByID(ctx context.Context, exec sqlx.ExtContext, tenantID, id string, relations ...string) (*models.AvailabilitySlot, error)
	List(ctx context.Context, filter models.AvailabilitySlotFilter) ([]models.AvailabilitySlot, int, error)
	DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, tenantID, id string) (int64, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, slot *models.AvailabilitySlot) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.AvailabilitySlot) error
	LockScope(ctx context.Context, exec sqlx.ExtContext, key string) error
}

// AvailabilitySlotConfig carries the tunables of AvailabilitySlotService.
type AvailabilitySlotConfig struct {
	DefaultMergePolicy string
	SlotTypes          []string
	LockEnabled        bool
	MaxBulkItems       int
	CacheTTL           time.Duration
}

// AvailabilitySlotService creates, updates and queries availability slots,
// resolving overlaps according to a merge policy.
type AvailabilitySlotService struct {
	store     availabilitySlotStore
	finder    *AvailabilityConflictFinder
	tx        database.TxBeginner
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	defaultPolicy models.MergePolicy
	slotTypes     models.SlotTypeSet
	lockEnabled   bool
	maxBulkItems  int
	cacheTTL      time.Duration
}

// NewAvailabilitySlotService wires the service.
func NewAvailabilitySlotService(
	store availabilitySlotStore,
	tx database.TxBeginner,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AvailabilitySlotConfig,
) *AvailabilitySlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBulkItems <= 0 {
		cfg.MaxBulkItems = 1000
	}
	return &AvailabilitySlotService{
		store:         store,
		finder:        NewAvailabilityConflictFinder(store, logger),
		tx:            tx,
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		defaultPolicy: models.ParseMergePolicy(cfg.DefaultMergePolicy),
		slotTypes:     models.NewSlotTypeSet(cfg.SlotTypes...),
		lockEnabled:   cfg.LockEnabled,
		maxBulkItems:  cfg.MaxBulkItems,
		cacheTTL:      cfg.CacheTTL,
	}
}

// Create stores a new slot after resolving conflicts with the request's merge
// policy. A skipped slot is reported with Created false and no error.
func (s *AvailabilitySlotService) Create(ctx context.Context, scope models.Scope, req dto.CreateAvailabilitySlotRequest) (*dto.AvailabilitySlotResult, error) {
	slot, candidate, policy, err := s.prepare(&scope, req)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, scope, slot, candidate, policy, "")
}

// Update overwrites slot id with req. The slot is matched against conflicts
// with itself excluded; under SKIP the stored version is left as it was.
func (s *AvailabilitySlotService) Update(ctx context.Context, scope models.Scope, id string, req dto.CreateAvailabilitySlotRequest) (*dto.AvailabilitySlotResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "id is required")
	}
	slot, candidate, policy, err := s.prepare(&scope, req)
	if err != nil {
		return nil, err
	}
	slot.ID = id
	return s.write(ctx, scope, slot, candidate, policy, id)
}

// CreateBulk inserts all items in one transaction without conflict checks.
// The result may contain overlapping slots.
func (s *AvailabilitySlotService) CreateBulk(ctx context.Context, scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) ([]models.AvailabilitySlot, error) {
	slots, err := s.prepareBulk(&scope, req)
	if err != nil {
		return nil, err
	}

	err = database.InTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.store.InsertBatch(ctx, tx, slots)
	})
	if err != nil {
		return nil, internalError(err, "failed to bulk insert availability slots")
	}

	s.metrics.AddBulkInserted(len(slots))
	s.invalidate(ctx, scope.TenantID)
	s.logger.Info("availability slots bulk inserted",
		zap.String("tenant_id", scope.TenantID),
		zap.Int("count", len(slots)),
	)
	return slots, nil
}

// ValidateBulk checks req the way CreateBulk would and returns the scope the
// import will run in.
func (s *AvailabilitySlotService) ValidateBulk(scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) (models.Scope, error) {
	if _, err := s.prepareBulk(&scope, req); err != nil {
		return models.Scope{}, err
	}
	return scope, nil
}

// Get returns one slot of the scope's tenant.
func (s *AvailabilitySlotService) Get(ctx context.Context, scope models.Scope, id string, relations string) (*models.AvailabilitySlot, error) {
	if err := requireTenant(&scope, ""); err != nil {
		return nil, err
	}
	rels := parseRelations(relations)
	if err := validateRelations(rels); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:slot:%s:%s", tenantCachePrefix(scope.TenantID), id, strings.Join(rels, ","))
	var cached models.AvailabilitySlot
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	pattern := tenantCachePattern(scope.TenantID)
	gen := s.cache.Generation(pattern)

	slot, err := s.store.FindByID(ctx, nil, scope.TenantID, id, rels...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return nil, internalError(err, "failed to load availability slot")
	}
	s.cache.SetIfCurrent(ctx, pattern, gen, key, slot, s.cacheTTL)
	return slot, nil
}

// List returns a page of the scope's slots.
func (s *AvailabilitySlotService) List(ctx context.Context, scope models.Scope, query dto.AvailabilitySlotQuery) (*dto.AvailabilitySlotList, error) {
	if err := requireTenant(&scope, ""); err != nil {
		return nil, err
	}
	rels := parseRelations(query.Relations)
	if err := validateRelations(rels); err != nil {
		return nil, err
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInterval, "from must not be after to")
	}

	filter := models.AvailabilitySlotFilter{
		TenantID:       scope.TenantID,
		OrganizationID: scope.OrganizationID,
		EmployeeID:     optionalString(query.EmployeeID),
		From:           query.From,
		To:             query.To,
		Relations:      rels,
		Page:           query.Page,
		PageSize:       query.Limit,
	}
	if org := optionalString(query.OrganizationID); org != nil {
		filter.OrganizationID = org
	}
	if t := strings.TrimSpace(query.Type); t != "" {
		slotType := models.AvailabilitySlotType(t)
		filter.Type = &slotType
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := fmt.Sprintf("%s:list:%s", tenantCachePrefix(scope.TenantID), filterCacheKey(filter))
	var cached dto.AvailabilitySlotList
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	pattern := tenantCachePattern(scope.TenantID)
	gen := s.cache.Generation(pattern)

	slots, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list availability slots")
	}
	result := &dto.AvailabilitySlotList{
		Items: slots,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}
	s.cache.SetIfCurrent(ctx, pattern, gen, key, result, s.cacheTTL)
	return result, nil
}

// Delete removes one slot of the scope's tenant.
func (s *AvailabilitySlotService) Delete(ctx context.Context, scope models.Scope, id string) error {
	if err := requireTenant(&scope, ""); err != nil {
		return err
	}
	affected, err := s.store.Delete(ctx, nil, scope.TenantID, id)
	if err != nil {
		return internalError(err, "failed to delete availability slot")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
	}
	s.invalidate(ctx, scope.TenantID)
	return nil
}

// FindConflicts previews the slots a write of query's interval would collide with.
func (s *AvailabilitySlotService) FindConflicts(ctx context.Context, scope models.Scope, query dto.ConflictPreviewQuery) ([]models.AvailabilitySlot, error) {
	if err := requireTenant(&scope, ""); err != nil {
		return nil, err
	}
	candidate := models.SlotCandidate{
		EmployeeID: optionalString(query.EmployeeID),
		StartTime:  models.NormalizeTime(query.StartTime),
		EndTime:    models.NormalizeTime(query.EndTime),
	}
	if !(models.AvailabilitySlot{StartTime: candidate.StartTime, EndTime: candidate.EndTime}).ValidInterval() {
		return nil, appErrors.ErrInvalidInterval
	}
	slotType, err := s.parseType(optionalString(query.Type))
	if err != nil {
		return nil, err
	}
	candidate.Type = slotType

	opts := models.ConflictOptions{Relations: parseRelations(query.Relations)}
	if id := strings.TrimSpace(query.ExcludeID); id != "" {
		opts.ExcludeIDs = []string{id}
	}
	return s.finder.Find(ctx, nil, candidate, scope, opts)
}

func (s *AvailabilitySlotService) prepare(scope *models.Scope, req dto.CreateAvailabilitySlotRequest) (models.AvailabilitySlot, models.SlotCandidate, models.MergePolicy, error) {
	if err := requireTenant(scope, req.TenantID); err != nil {
		return models.AvailabilitySlot{}, models.SlotCandidate{}, "", err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.AvailabilitySlot{}, models.SlotCandidate{}, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability slot payload")
	}
	if req.OrganizationID != nil {
		scope.OrganizationID = req.OrganizationID
	}

	slotType, err := s.parseType(req.Type)
	if err != nil {
		return models.AvailabilitySlot{}, models.SlotCandidate{}, "", err
	}

	slot := models.AvailabilitySlot{
		TenantID:       scope.TenantID,
		OrganizationID: scope.OrganizationID,
		EmployeeID:     req.EmployeeID,
		StartTime:      models.NormalizeTime(req.StartTime),
		EndTime:        models.NormalizeTime(req.EndTime),
		AllDay:         req.AllDay,
		Type:           models.AvailabilitySlotTypeDefault,
	}
	if slotType != nil {
		slot.Type = *slotType
	}
	if !slot.ValidInterval() {
		return models.AvailabilitySlot{}, models.SlotCandidate{}, "", appErrors.ErrInvalidInterval
	}

	policy := s.defaultPolicy
	if strings.TrimSpace(req.MergePolicy) != "" {
		policy = models.ParseMergePolicy(req.MergePolicy)
	}

	candidate := models.SlotCandidate{
		EmployeeID: slot.EmployeeID,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		Type:       slotType,
	}
	return slot, candidate, policy, nil
}

func (s *AvailabilitySlotService) prepareBulk(scope *models.Scope, req dto.BulkCreateAvailabilitySlotRequest) ([]models.AvailabilitySlot, error) {
	if err := requireTenant(scope, req.TenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk availability payload")
	}
	if len(req.Items) > s.maxBulkItems {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk import accepts at most %d items", s.maxBulkItems))
	}

	slots := make([]models.AvailabilitySlot, 0, len(req.Items))
	for i, item := range req.Items {
		slotType, err := s.parseType(item.Type)
		if err != nil {
			return nil, err
		}
		slot := models.AvailabilitySlot{
			TenantID:       scope.TenantID,
			OrganizationID: scope.OrganizationID,
			EmployeeID:     item.EmployeeID,
			StartTime:      models.NormalizeTime(item.StartTime),
			EndTime:        models.NormalizeTime(item.EndTime),
			AllDay:         item.AllDay,
			Type:           models.AvailabilitySlotTypeDefault,
		}
		if item.OrganizationID != nil {
			slot.OrganizationID = item.OrganizationID
		}
		if slotType != nil {
			slot.Type = *slotType
		}
		if !slot.ValidInterval() {
			return nil, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("items[%d]: startTime must be before endTime", i))
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// write runs lock, find, resolve, delete and upsert in one transaction.
// updateID is set when overwriting an existing slot.
func (s *AvailabilitySlotService) write(ctx context.Context, scope models.Scope, slot models.AvailabilitySlot, candidate models.SlotCandidate, policy models.MergePolicy, updateID string) (*dto.AvailabilitySlotResult, error) {
	opts := models.ConflictOptions{}
	if updateID != "" {
		opts.ExcludeIDs = []string{updateID}
	}

	var (
		resolution Resolution
		conflicts  int
	)
	err := database.InTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if s.lockEnabled {
			if err := s.store.LockScope(ctx, tx, scope.LockKey(slot.EmployeeID)); err != nil {
				return internalError(err, "failed to lock availability scope")
			}
		}

		if updateID != "" {
			existing, err := s.store.FindByID(ctx, tx, scope.TenantID, updateID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
				}
				return internalError(err, "failed to load availability slot")
			}
			slot.CreatedAt = existing.CreatedAt
		}

		found, err := s.finder.Find(ctx, tx, candidate, scope, opts)
		if err != nil {
			return err
		}
		conflicts = len(found)

		resolution = ResolveConflicts(slot, found, policy)
		if resolution.Skipped() {
			return nil
		}
		if _, err := s.store.DeleteByIDs(ctx, tx, resolution.DeleteIDs()); err != nil {
			return internalError(err, "failed to delete conflicting availability slots")
		}
		if err := s.store.Upsert(ctx, tx, resolution.ToPersist); err != nil {
			return internalError(err, "failed to save availability slot")
		}
		return nil
	})
	if err != nil {
		return nil, internalError(err, "failed to save availability slot")
	}

	outcome := resolutionOutcome(resolution, policy)
	s.metrics.ObserveResolution(policy, outcome, conflicts)
	s.logger.Debug("availability slot resolved",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("tenant_id", scope.TenantID),
		zap.Stringp("employee_id", slot.EmployeeID),
		zap.String("policy", string(policy)),
		zap.String("outcome", outcome),
		zap.Int("conflicts", conflicts),
	)

	result := &dto.AvailabilitySlotResult{
		Policy:     policy,
		DeletedIDs: resolution.DeleteIDs(),
	}
	if resolution.Skipped() {
		return result, nil
	}
	result.Slot = resolution.ToPersist
	result.Created = true
	s.invalidate(ctx, scope.TenantID)
	return result, nil
}

func (s *AvailabilitySlotService) parseType(raw *string) (*models.AvailabilitySlotType, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	slotType := models.AvailabilitySlotType(strings.TrimSpace(*raw))
	if !s.slotTypes.Contains(slotType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported availability slot type: "+string(slotType))
	}
	return &slotType, nil
}

func (s *AvailabilitySlotService) invalidate(ctx context.Context, tenantID string) {
	s.cache.Invalidate(ctx, tenantCachePattern(tenantID))
}

// requireTenant fills scope.TenantID from explicit when the scope has none.
func requireTenant(scope *models.Scope, explicit string) error {
	scope.TenantID = strings.TrimSpace(scope.TenantID)
	if scope.TenantID == "" {
		scope.TenantID = strings.TrimSpace(explicit)
	}
	if scope.TenantID == "" {
		return appErrors.ErrTenantRequired
	}
	return nil
}

func resolutionOutcome(r Resolution, policy models.MergePolicy) string {
	switch {
	case r.Skipped():
		return "skipped"
	case len(r.ToDelete) == 0:
		return "created"
	case policy == models.MergePolicyMerge:
		return "merged"
	default:
		return "replaced"
	}
}

func tenantCachePrefix(tenantID string) string {
	return "availability:" + tenantID
}

func tenantCachePattern(tenantID string) string {
	return tenantCachePrefix(tenantID) + ":*"
}

func filterCacheKey(f models.AvailabilitySlotFilter) string {
	parts := []string{
		deref(f.OrganizationID),
		deref(f.EmployeeID),
		"",
		formatOptionalTime(f.From),
		formatOptionalTime(f.To),
		strings.Join(f.Relations, ","),
		fmt.Sprintf("%d", f.Page),
		fmt.Sprintf("%d", f.PageSize),
	}
	if f.Type != nil {
		parts[2] = string(*f.Type)
	}
	return strings.Join(parts, "|")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// internalError keeps typed errors and wraps anything else as INTERNAL_ERROR.
func internalError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
