package publisher

import (
	"time"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/schedule"
)

type Outcome struct {
	Dispatch schedule.Dispatch
	RemoteID entity.RemoteID
	Err      error
}

type Result struct {
	EventID  string
	Outcomes []Outcome
}

// Dispatched reports whether the run went past the assignment step.
func (r Result) Dispatched() bool {
	return len(r.Outcomes) > 0
}

func (r Result) Report(runID string, now time.Time) entity.PublishReport {
	ret := entity.PublishReport{
		RunID:      runID,
		EventID:    r.EventID,
		Timestamp:  now.UTC(),
		Succeeded:  true,
		Dispatches: make([]entity.DispatchReport, 0, len(r.Outcomes)),
	}

	for _, o := range r.Outcomes {
		dispatch := entity.DispatchReport{
			MeetingID: o.Dispatch.Meeting.ID,
			Name:      o.Dispatch.Meeting.Name,
			Host:      o.Dispatch.Host,
			Start:     o.Dispatch.Meeting.Start.UTC().Format(time.RFC3339),
			End:       o.Dispatch.Meeting.End.UTC().Format(time.RFC3339),
			RemoteID:  o.RemoteID,
		}

		if o.Err != nil {
			dispatch.Error = o.Err.Error()
			ret.Succeeded = false
		}

		ret.Dispatches = append(ret.Dispatches, dispatch)
	}

	return ret
}

type UnpublishResult struct {
	EventID string
	Deleted int
	Skipped int
	Failed  int
}
