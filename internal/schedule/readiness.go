package schedule

import "github.com/iliyamo/program-planner/internal/model"

// IsReady reports whether items form a shareable schedule: at least one
// item, every range valid and no two ranges overlapping.
func IsReady(items []model.ProgramItem) bool {
	if len(items) == 0 {
		return false
	}
	sorted := byStart(items)
	for _, it := range sorted {
		if !RangeOf(it).Valid() {
			return false
		}
	}
	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if Conflicts(RangeOf(sorted[i]), RangeOf(sorted[j])) {
				return false
			}
		}
	}
	return true
}

// SharedButUnready flags a program that was shared and has since been
// edited into a state that would not pass IsReady.  Informational only.
func SharedButUnready(p *model.Program, items []model.ProgramItem) bool {
	return p.SharedAt != nil && !IsReady(items)
}
