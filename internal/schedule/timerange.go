// Package schedule holds the scheduling rules for program items: time
// range overlap, sibling conflict detection, readiness of a whole
// program and position assignment.  Everything here is pure and works
// on already loaded values.
package schedule

import (
	"time"

	"github.com/iliyamo/program-planner/internal/model"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// RangeOf returns the time range occupied by an item.
func RangeOf(it model.ProgramItem) TimeRange {
	return TimeRange{Start: it.StartTime, End: it.EndTime}
}

// Valid reports whether End is strictly after Start.
func (r TimeRange) Valid() bool {
	return r.End.After(r.Start)
}

// Conflicts reports whether a and b overlap.  Touching ranges (one ends
// exactly when the other starts) do not conflict.
func Conflicts(a, b TimeRange) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}
