package schedule

import (
	"errors"
	"math"
)

// ErrPositionOverflow is returned when the program already uses the
// largest position, so there is no max + 1 to assign.
var ErrPositionOverflow = errors.New("no position left after the current maximum")

// AssignPosition returns requested when set.  Otherwise it returns the
// current maximum position plus one, or 1 when the program has no items
// (currentMax nil).  Positions are never compacted after deletions.
func AssignPosition(requested, currentMax *uint32) (uint32, error) {
	if requested != nil {
		return *requested, nil
	}
	if currentMax == nil {
		return 1, nil
	}
	if *currentMax == math.MaxUint32 {
		return 0, ErrPositionOverflow
	}
	return *currentMax + 1, nil
}
