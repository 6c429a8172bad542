package schedule

import (
	"sort"

	"github.com/iliyamo/program-planner/internal/model"
)

// ValidateRange fails with *InvalidRangeError when end <= start.
func ValidateRange(r TimeRange) error {
	if !r.Valid() {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// ValidateAgainstSiblings checks candidate against every item of the same
// program except the one with excludeID (pass 0 when creating).  Siblings
// are visited in ascending start order so the reported conflict is the
// earliest overlapping item.
func ValidateAgainstSiblings(candidate TimeRange, siblings []model.ProgramItem, excludeID uint64) error {
	for _, s := range byStart(siblings) {
		if excludeID != 0 && s.ID == excludeID {
			continue
		}
		if Conflicts(candidate, RangeOf(s)) {
			return &ConflictError{Item: s}
		}
	}
	return nil
}

// byStart returns a copy of items sorted by start time, ties broken by ID.
func byStart(items []model.ProgramItem) []model.ProgramItem {
	out := make([]model.ProgramItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
