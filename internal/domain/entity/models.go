package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyMeetingID = errors.New("empty meeting id")
	ErrInvalidWindow  = errors.New("meeting must end after it starts")
	ErrEmptyEventID   = errors.New("empty event id")
	ErrUnknownAction  = errors.New("unknown action")
)

// HostID identifies an account of the remote scheduling service.
// It is both the partition key of an assignment and the account the remote meeting is created for.
type HostID string

// RemoteID is the identifier returned by the remote scheduling service. Empty means not published.
type RemoteID string

type Meeting struct {
	ID       string
	EventID  string
	Name     string
	Start    time.Time
	End      time.Time
	RemoteID RemoteID
}

// NewMeeting builds a meeting from a start instant and a duration.
func NewMeeting(id, eventID, name string, start time.Time, duration time.Duration) Meeting {
	return Meeting{
		ID:      id,
		EventID: eventID,
		Name:    name,
		Start:   start,
		End:     start.Add(duration),
	}
}

func (m Meeting) Duration() time.Duration {
	return m.End.Sub(m.Start)
}

func (m Meeting) IsPublished() bool {
	return m.RemoteID != ""
}

func (m Meeting) Validate() error {
	if m.ID == "" {
		return ErrEmptyMeetingID
	}

	if !m.End.After(m.Start) {
		return fmt.Errorf("meeting %s: %w", m.ID, ErrInvalidWindow)
	}

	return nil
}

type Event struct {
	ID          string
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Meetings    []Meeting
}

type Action string

const (
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
)

// PublicationRequest is the payload consumed from kafka.
type PublicationRequest struct {
	EventID string `json:"event_id"`
	Action  Action `json:"action"`
}

func (r PublicationRequest) Validate() error {
	if r.EventID == "" {
		return ErrEmptyEventID
	}

	switch r.Action {
	case ActionPublish, ActionUnpublish:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, r.Action)
	}
}

type DispatchReport struct {
	MeetingID string   `json:"meeting_id"`
	Name      string   `json:"name"`
	Host      HostID   `json:"host"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	RemoteID  RemoteID `json:"remote_id,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// PublishReport is the audit trail of one publish run.
type PublishReport struct {
	RunID      string           `json:"run_id"`
	EventID    string           `json:"event_id"`
	Timestamp  time.Time        `json:"timestamp"`
	Succeeded  bool             `json:"succeeded"`
	Dispatches []DispatchReport `json:"dispatches"`
}
