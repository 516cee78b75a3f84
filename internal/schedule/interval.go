package schedule

import (
	"time"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func WindowOf(m entity.Meeting) Window {
	return Window{Start: m.Start, End: m.End}
}

// Overlaps reports whether both windows share at least one instant.
// Windows touching at an endpoint do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}
