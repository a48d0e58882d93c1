package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/availability-api/internal/dto"
	"github.com/noah-isme/availability-api/internal/models"
	appErrors "github.com/noah-isme/availability-api/pkg/errors"
	"github.com/noah-isme/availability-api/pkg/jobs"
	"github.com/noah-isme/availability-api/pkg/middleware/tenant"
	"github.com/noah-isme/availability-api/pkg/response"
)

type availabilitySlotService interface {
	Create(ctx context.Context, scope models.Scope, req dto.CreateAvailabilitySlotRequest) (*dto.AvailabilitySlotResult, error)
	Update(ctx context.Context, scope models.Scope, id string, req dto.CreateAvailabilitySlotRequest) (*dto.AvailabilitySlotResult, error)
	CreateBulk(ctx context.Context, scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) ([]models.AvailabilitySlot, error)
	Get(ctx context.Context, scope models.Scope, id string, relations string) (*models.AvailabilitySlot, error)
	List(ctx context.Context, scope models.Scope, query dto.AvailabilitySlotQuery) (*dto.AvailabilitySlotList, error)
	Delete(ctx context.Context, scope models.Scope, id string) error
	FindConflicts(ctx context.Context, scope models.Scope, query dto.ConflictPreviewQuery) ([]models.AvailabilitySlot, error)
}

type availabilityImporter interface {
	EnqueueBulk(ctx context.Context, scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) (*dto.BulkImportAccepted, error)
	Status(ctx context.Context, jobID string) (*jobs.Status, error)
}

// AvailabilitySlotHandler exposes /availability-slots endpoints.
type AvailabilitySlotHandler struct {
	service  availabilitySlotService
	importer availabilityImporter
}

// NewAvailabilitySlotHandler constructs the handler. importer may be nil.
func NewAvailabilitySlotHandler(service availabilitySlotService, importer availabilityImporter) *AvailabilitySlotHandler {
	return &AvailabilitySlotHandler{service: service, importer: importer}
}

// Register mounts the routes on group.
func (h *AvailabilitySlotHandler) Register(group *gin.RouterGroup) {
	slots := group.Group("/availability-slots")
	slots.GET("", h.List)
	slots.POST("", h.Create)
	slots.POST("/bulk", h.CreateBulk)
	slots.GET("/conflicts", h.Conflicts)
	slots.GET("/imports/:jobId", h.ImportStatus)
	slots.GET("/:id", h.Get)
	slots.PUT("/:id", h.Update)
	slots.DELETE("/:id", h.Delete)
}

// Create godoc
// @Summary Create availability slot
// @Description Resolves overlaps with the employee's existing slots using mergePolicy (SKIP, MERGE or REPLACE).
// @Tags Availability
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string false "Tenant ID"
// @Param X-Organization-ID header string false "Organization ID"
// @Param payload body dto.CreateAvailabilitySlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Skipped because of conflicts"
// @Failure 400 {object} response.Envelope
// @Router /availability-slots [post]
func (h *AvailabilitySlotHandler) Create(c *gin.Context) {
	var req dto.CreateAvailabilitySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability slot payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), scopeFromContext(c, req.TenantID), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}

// Update godoc
// @Summary Overwrite availability slot
// @Description Replaces every field of the slot. Conflicts are resolved as on create with the slot itself excluded.
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.CreateAvailabilitySlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability-slots/{id} [put]
func (h *AvailabilitySlotHandler) Update(c *gin.Context) {
	var req dto.CreateAvailabilitySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability slot payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), scopeFromContext(c, req.TenantID), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateBulk godoc
// @Summary Bulk insert availability slots
// @Description Inserts slots without conflict checks. With async=true the import is queued.
// @Tags Availability
// @Accept json
// @Produce json
// @Param async query bool false "Queue the import"
// @Param payload body dto.BulkCreateAvailabilitySlotRequest true "Slots"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /availability-slots/bulk [post]
func (h *AvailabilitySlotHandler) CreateBulk(c *gin.Context) {
	var req dto.BulkCreateAvailabilitySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	scope := scopeFromContext(c, req.TenantID)

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		if h.importer == nil {
			response.Error(c, appErrors.ErrQueueUnavailable)
			return
		}
		accepted, err := h.importer.EnqueueBulk(c.Request.Context(), scope, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, accepted)
		return
	}

	slots, err := h.service.CreateBulk(c.Request.Context(), scope, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots, map[string]interface{}{"count": len(slots)})
}

// ImportStatus godoc
// @Summary Bulk import status
// @Tags Availability
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability-slots/imports/{jobId} [get]
func (h *AvailabilitySlotHandler) ImportStatus(c *gin.Context) {
	if h.importer == nil {
		response.Error(c, appErrors.ErrQueueUnavailable)
		return
	}
	status, err := h.importer.Status(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List availability slots
// @Tags Availability
// @Produce json
// @Param organizationId query string false "Organization ID"
// @Param employeeId query string false "Employee ID"
// @Param type query string false "Slot type"
// @Param from query string false "RFC3339 window start"
// @Param to query string false "RFC3339 window end"
// @Param relations query string false "Comma separated: employee,organization"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /availability-slots [get]
func (h *AvailabilitySlotHandler) List(c *gin.Context) {
	var query dto.AvailabilitySlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	list, err := h.service.List(c.Request.Context(), scopeFromContext(c, c.Query("tenantId")), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := list.Pagination
	response.JSON(c, http.StatusOK, list.Items, &pagination)
}

// Conflicts godoc
// @Summary Preview conflicts
// @Description Lists the slots a write of the given interval would conflict with. Omitting the organization searches all organizations of the tenant.
// @Tags Availability
// @Produce json
// @Param employeeId query string false "Employee ID"
// @Param type query string false "Slot type"
// @Param startTime query string true "RFC3339 start"
// @Param endTime query string true "RFC3339 end"
// @Param excludeId query string false "Slot ID to ignore"
// @Success 200 {object} response.Envelope
// @Router /availability-slots/conflicts [get]
func (h *AvailabilitySlotHandler) Conflicts(c *gin.Context) {
	var query dto.ConflictPreviewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	scope := scopeFromContext(c, c.Query("tenantId"))
	if org := strings.TrimSpace(c.Query("organizationId")); org != "" {
		scope.OrganizationID = &org
	}
	conflicts, err := h.service.FindConflicts(c.Request.Context(), scope, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil, map[string]interface{}{"count": len(conflicts)})
}

// Get godoc
// @Summary Get availability slot
// @Tags Availability
// @Produce json
// @Param id path string true "Slot ID"
// @Param relations query string false "Comma separated: employee,organization"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /availability-slots/{id} [get]
func (h *AvailabilitySlotHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), scopeFromContext(c, c.Query("tenantId")), c.Param("id"), c.Query("relations"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete availability slot
// @Tags Availability
// @Param id path string true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /availability-slots/{id} [delete]
func (h *AvailabilitySlotHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), scopeFromContext(c, c.Query("tenantId")), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// scopeFromContext prefers the ambient tenant over explicit.
func scopeFromContext(c *gin.Context, explicit string) models.Scope {
	scope := models.Scope{TenantID: tenant.Resolve(c, explicit)}
	if org := tenant.OrganizationValue(c); org != "" {
		scope.OrganizationID = &org
	}
	return scope
}
