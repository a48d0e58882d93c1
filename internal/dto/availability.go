package dto

import (
	"time"

	"github.com/noah-isme/availability-api/internal/models"
)

// CreateAvailabilitySlotRequest creates or, through PUT, fully overwrites a slot.
type CreateAvailabilitySlotRequest struct {
	TenantID       string    `json:"tenantId"`
	OrganizationID *string   `json:"organizationId" validate:"omitempty,min=1,max=64"`
	EmployeeID     *string   `json:"employeeId" validate:"omitempty,min=1,max=64"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	EndTime        time.Time `json:"endTime" validate:"required"`
	AllDay         bool      `json:"allDay"`
	Type           *string   `json:"type" validate:"omitempty,min=1,max=32"`
	MergePolicy    string    `json:"mergePolicy"`
}

// BulkAvailabilitySlotItem is one row of an unchecked bulk insert.
type BulkAvailabilitySlotItem struct {
	OrganizationID *string   `json:"organizationId" validate:"omitempty,min=1,max=64"`
	EmployeeID     *string   `json:"employeeId" validate:"omitempty,min=1,max=64"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	EndTime        time.Time `json:"endTime" validate:"required"`
	AllDay         bool      `json:"allDay"`
	Type           *string   `json:"type" validate:"omitempty,min=1,max=32"`
}

// BulkCreateAvailabilitySlotRequest inserts many slots without conflict checks.
type BulkCreateAvailabilitySlotRequest struct {
	TenantID string                     `json:"tenantId"`
	Items    []BulkAvailabilitySlotItem `json:"items" validate:"required,min=1,dive"`
}

// AvailabilitySlotQuery filters slot listings.
type AvailabilitySlotQuery struct {
	OrganizationID string     `form:"organizationId"`
	EmployeeID     string     `form:"employeeId"`
	Type           string     `form:"type"`
	From           *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To             *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Relations      string     `form:"relations"`
	Page           int        `form:"page"`
	Limit          int        `form:"limit"`
}

// ConflictPreviewQuery asks which slots a prospective write would conflict with.
type ConflictPreviewQuery struct {
	EmployeeID string    `form:"employeeId"`
	Type       string    `form:"type"`
	StartTime  time.Time `form:"startTime" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	EndTime    time.Time `form:"endTime" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	ExcludeID  string    `form:"excludeId"`
	Relations  string    `form:"relations"`
}

// AvailabilitySlotResult is the outcome of a conflict-checked write. Slot is
// nil and Created false when the SKIP policy found conflicts.
type AvailabilitySlotResult struct {
	Slot       *models.AvailabilitySlot `json:"slot"`
	Created    bool                     `json:"created"`
	Policy     models.MergePolicy       `json:"policy"`
	DeletedIDs []string                 `json:"deletedIds"`
}

// AvailabilitySlotList is a page of slots.
type AvailabilitySlotList struct {
	Items      []models.AvailabilitySlot `json:"items"`
	Pagination models.Pagination         `json:"pagination"`
}

// BulkImportAccepted acknowledges a queued bulk import.
type BulkImportAccepted struct {
	JobID string `json:"jobId"`
	Items int    `json:"items"`
}
