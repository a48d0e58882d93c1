package models

import (
	"strings"
	"time"
)

// AvailabilitySlotType partitions slots for conflict detection; slots of
// different types never conflict.
type AvailabilitySlotType string

const (
	AvailabilitySlotTypeDefault   AvailabilitySlotType = "Default"
	AvailabilitySlotTypeRecurring AvailabilitySlotType = "Recurring"
)

// MergePolicy decides what happens when a new slot overlaps existing ones.
type MergePolicy string

const (
	MergePolicySkip    MergePolicy = "SKIP"
	MergePolicyMerge   MergePolicy = "MERGE"
	MergePolicyReplace MergePolicy = "REPLACE"
)

// ParseMergePolicy maps SKIP and MERGE to themselves and anything else to REPLACE.
// Matching ignores case and surrounding space, so "skip" selects SKIP.
func ParseMergePolicy(raw string) MergePolicy {
	switch MergePolicy(strings.ToUpper(strings.TrimSpace(raw))) {
	case MergePolicySkip:
		return MergePolicySkip
	case MergePolicyMerge:
		return MergePolicyMerge
	default:
		return MergePolicyReplace
	}
}

// Relations that can be loaded alongside a slot.
const (
	RelationEmployee     = "employee"
	RelationOrganization = "organization"
)

// AvailabilitySlot is an employee's available time within a tenant.
type AvailabilitySlot struct {
	ID             string               `db:"id" json:"id"`
	TenantID       string               `db:"tenant_id" json:"tenantId"`
	OrganizationID *string              `db:"organization_id" json:"organizationId,omitempty"`
	EmployeeID     *string              `db:"employee_id" json:"employeeId,omitempty"`
	StartTime      time.Time            `db:"start_time" json:"startTime"`
	EndTime        time.Time            `db:"end_time" json:"endTime"`
	AllDay         bool                 `db:"all_day" json:"allDay"`
	Type           AvailabilitySlotType `db:"type" json:"type"`
	CreatedAt      time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updatedAt"`

	Employee     *SlotEmployee     `db:"-" json:"employee,omitempty"`
	Organization *SlotOrganization `db:"-" json:"organization,omitempty"`
}

// SlotEmployee is the eagerly loaded employee relation.
type SlotEmployee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// SlotOrganization is the eagerly loaded organization relation.
type SlotOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IntervalsOverlap reports whether [s1,e1] and [s2,e2] share at least one
// instant. Boundaries are inclusive, so touching endpoints overlap.
func IntervalsOverlap(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// Overlaps applies IntervalsOverlap to the two slots' time spans only.
func (s AvailabilitySlot) Overlaps(other AvailabilitySlot) bool {
	return IntervalsOverlap(s.StartTime, s.EndTime, other.StartTime, other.EndTime)
}

// ValidInterval reports whether the slot starts strictly before it ends.
func (s AvailabilitySlot) ValidInterval() bool {
	return !s.StartTime.IsZero() && !s.EndTime.IsZero() && s.StartTime.Before(s.EndTime)
}

// NormalizeTime converts t to UTC at the microsecond precision Postgres
// stores, so bounds compared in Go and in SQL are the same instants.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Scope is the tenant partition a request operates in. OrganizationID narrows
// it when set; when nil no organization filter applies at all.
type Scope struct {
	TenantID       string
	OrganizationID *string
}

// LockKey identifies the writer lock for one employee inside a tenant. It
// ignores organization and type because a candidate without them searches
// across all of them.
func (s Scope) LockKey(employeeID *string) string {
	employee := "-"
	if employeeID != nil {
		employee = *employeeID
	}
	return "availability:" + s.TenantID + ":" + employee
}

// SlotCandidate is the part of a new slot that drives conflict search.
type SlotCandidate struct {
	EmployeeID *string
	StartTime  time.Time
	EndTime    time.Time
	Type       *AvailabilitySlotType
}

// ConflictOptions tweak conflict search.
type ConflictOptions struct {
	Relations  []string
	ExcludeIDs []string
}

// ConflictQuery is the store-level filter for overlapping slots.
type ConflictQuery struct {
	TenantID       string
	OrganizationID *string
	EmployeeID     *string
	Type           *AvailabilitySlotType
	StartTime      time.Time
	EndTime        time.Time
	ExcludeIDs     []string
	Relations      []string
}

// AvailabilitySlotFilter narrows slot listings.
type AvailabilitySlotFilter struct {
	TenantID       string
	OrganizationID *string
	EmployeeID     *string
	Type           *AvailabilitySlotType
	From           *time.Time
	To             *time.Time
	Relations      []string
	Page           int
	PageSize       int
}

// SlotTypeSet is the set of accepted slot types.
type SlotTypeSet map[AvailabilitySlotType]struct{}

// NewSlotTypeSet returns the built-in types plus extra.
func NewSlotTypeSet(extra ...string) SlotTypeSet {
	set := SlotTypeSet{
		AvailabilitySlotTypeDefault:   {},
		AvailabilitySlotTypeRecurring: {},
	}
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" {
			set[AvailabilitySlotType(t)] = struct{}{}
		}
	}
	return set
}

// Contains reports whether t is accepted.
func (s SlotTypeSet) Contains(t AvailabilitySlotType) bool {
	_, ok := s[t]
	return ok
}
