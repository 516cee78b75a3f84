package publisher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
)

var (
	ErrInsufficientCapacity = errors.New("insufficient host capacity")
	ErrPublishFailed        = errors.New("publish failed")
)

// InsufficientCapacityError is returned when some meetings fit on no host. Nothing was sent to the remote service.
type InsufficientCapacityError struct {
	EventID    string
	Hosts      int
	Unassigned []entity.Meeting
}

func (e *InsufficientCapacityError) Error() string {
	ids := make([]string, 0, len(e.Unassigned))
	for _, m := range e.Unassigned {
		ids = append(ids, m.ID)
	}

	return fmt.Sprintf("event %s: %v: %d meeting(s) cannot be assigned to %d host(s): %s",
		e.EventID, ErrInsufficientCapacity, len(e.Unassigned), e.Hosts, strings.Join(ids, ", "))
}

func (e *InsufficientCapacityError) Unwrap() error {
	return ErrInsufficientCapacity
}

type Failure struct {
	MeetingID string
	Host      entity.HostID
	Err       error
}

// PublishError lists every meeting of a publish run that could not be created or recorded.
// Meetings created by the same run are not rolled back.
type PublishError struct {
	EventID   string
	Published int
	Failures  []Failure
}

func (e *PublishError) Error() string {
	details := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		details = append(details, fmt.Sprintf("%s on %s: %v", f.MeetingID, f.Host, f.Err))
	}

	return fmt.Sprintf("event %s: %v: %d meeting(s) failed, %d published: %s",
		e.EventID, ErrPublishFailed, len(e.Failures), e.Published, strings.Join(details, "; "))
}

func (e *PublishError) Unwrap() []error {
	ret := make([]error, 0, len(e.Failures)+1)
	ret = append(ret, ErrPublishFailed)

	for _, f := range e.Failures {
		ret = append(ret, f.Err)
	}

	return ret
}
