package service

import "github.com/noah-isme/availability-api/internal/models"

// Resolution is what a merge policy decided for a candidate. ToPersist is nil
// when nothing should be written.
type Resolution struct {
	ToPersist *models.AvailabilitySlot
	ToDelete  []models.AvailabilitySlot
}

// Skipped reports whether the candidate is dropped.
func (r Resolution) Skipped() bool {
	return r.ToPersist == nil
}

// DeleteIDs returns the ids of ToDelete.
func (r Resolution) DeleteIDs() []string {
	ids := make([]string, 0, len(r.ToDelete))
	for _, slot := range r.ToDelete {
		ids = append(ids, slot.ID)
	}
	return ids
}

// ResolveConflicts applies policy to candidate and the slots it conflicts
// with. With no conflicts the candidate is kept as is for every policy.
// Neither candidate nor conflicts is modified.
//
//	SKIP     persist nothing, delete nothing
//	MERGE    persist the candidate stretched over all conflicts, delete them
//	REPLACE  persist the candidate unchanged, delete all conflicts
//
// REPLACE drops the parts of wider conflicts that lie outside the candidate.
func ResolveConflicts(candidate models.AvailabilitySlot, conflicts []models.AvailabilitySlot, policy models.MergePolicy) Resolution {
	if len(conflicts) == 0 {
		return Resolution{ToPersist: &candidate, ToDelete: []models.AvailabilitySlot{}}
	}

	toDelete := make([]models.AvailabilitySlot, len(conflicts))
	copy(toDelete, conflicts)

	switch policy {
	case models.MergePolicySkip:
		return Resolution{ToDelete: []models.AvailabilitySlot{}}
	case models.MergePolicyMerge:
		merged := candidate
		for _, c := range conflicts {
			if c.StartTime.Before(merged.StartTime) {
				merged.StartTime = c.StartTime
			}
			if c.EndTime.After(merged.EndTime) {
				merged.EndTime = c.EndTime
			}
		}
		return Resolution{ToPersist: &merged, ToDelete: toDelete}
	default:
		return Resolution{ToPersist: &candidate, ToDelete: toDelete}
	}
}
