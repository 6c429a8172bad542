package schedule

import (
	"fmt"
	"time"

	"github.com/iliyamo/program-planner/internal/model"
)

// InvalidRangeError is returned when an end instant is not after its start.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return "end time must be after start time"
}

// ConflictError reports the sibling item a candidate range overlaps with.
type ConflictError struct {
	Item model.ProgramItem
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time conflict with %q (%s - %s)",
		e.Item.Title,
		e.Item.StartTime.UTC().Format(time.RFC3339),
		e.Item.EndTime.UTC().Format(time.RFC3339))
}
