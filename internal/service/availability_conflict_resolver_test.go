package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/availability-api/internal/models"
)

func TestResolveConflictsNoConflictsKeepsCandidate(t *testing.T) {
	candidate := slotAt("", "emp-1", at(9, 0), at(10, 0))
	for _, policy := range []models.MergePolicy{models.MergePolicySkip, models.MergePolicyMerge, models.MergePolicyReplace} {
		res := ResolveConflicts(candidate, nil, policy)
		require.NotNil(t, res.ToPersist, string(policy))
		assert.Equal(t, candidate, *res.ToPersist)
		assert.Empty(t, res.ToDelete)
	}
}

func TestResolveConflictsSkip(t *testing.T) {
	candidate := slotAt("", "emp-1", at(11, 0), at(13, 0))
	existing := []models.AvailabilitySlot{slotAt("a", "emp-1", at(9, 0), at(12, 0))}

	res := ResolveConflicts(candidate, existing, models.MergePolicySkip)
	assert.True(t, res.Skipped())
	assert.Empty(t, res.ToDelete)
}

func TestResolveConflictsMergeBuildsHull(t *testing.T) {
	candidate := slotAt("", "emp-1", at(11, 0), at(13, 0))
	candidate.AllDay = true
	existing := []models.AvailabilitySlot{
		slotAt("a", "emp-1", at(9, 0), at(12, 0)),
		slotAt("b", "emp-1", at(12, 30), at(15, 0)),
	}

	res := ResolveConflicts(candidate, existing, models.MergePolicyMerge)
	require.NotNil(t, res.ToPersist)
	assert.Equal(t, at(9, 0), res.ToPersist.StartTime)
	assert.Equal(t, at(15, 0), res.ToPersist.EndTime)
	assert.True(t, res.ToPersist.AllDay)
	assert.Equal(t, []string{"a", "b"}, res.DeleteIDs())

	assert.Equal(t, at(11, 0), candidate.StartTime, "candidate must not be modified")
	assert.Equal(t, at(13, 0), candidate.EndTime)
}

func TestResolveConflictsReplaceKeepsCandidateBounds(t *testing.T) {
	candidate := slotAt("", "emp-1", at(11, 0), at(13, 0))
	existing := []models.AvailabilitySlot{slotAt("a", "emp-1", at(9, 0), at(12, 0))}

	res := ResolveConflicts(candidate, existing, models.MergePolicyReplace)
	require.NotNil(t, res.ToPersist)
	assert.Equal(t, candidate, *res.ToPersist)
	assert.Equal(t, []string{"a"}, res.DeleteIDs())
}

func TestResolveConflictsUnknownPolicyReplaces(t *testing.T) {
	candidate := slotAt("", "emp-1", at(11, 0), at(13, 0))
	existing := []models.AvailabilitySlot{slotAt("a", "emp-1", at(9, 0), at(12, 0))}

	res := ResolveConflicts(candidate, existing, models.MergePolicy("SOMETHING"))
	require.NotNil(t, res.ToPersist)
	assert.Equal(t, at(11, 0), res.ToPersist.StartTime)
	assert.Len(t, res.ToDelete, 1)
}

func TestResolveConflictsDoesNotAliasInput(t *testing.T) {
	candidate := slotAt("", "emp-1", at(11, 0), at(13, 0))
	existing := []models.AvailabilitySlot{slotAt("a", "emp-1", at(9, 0), at(12, 0))}

	res := ResolveConflicts(candidate, existing, models.MergePolicyReplace)
	res.ToDelete[0].ID = "mutated"
	res.ToPersist.ID = "mutated"

	assert.Equal(t, "a", existing[0].ID)
	assert.Empty(t, candidate.ID)
}
