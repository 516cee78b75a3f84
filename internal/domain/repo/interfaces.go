package repo

import (
	"context"
	"errors"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_repo.go

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrMeetingNotFound = errors.New("meeting not found")
)

type ProcessingErrorWriter interface {
	WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error
}

type HostRoster interface {
	GetAll(ctx context.Context) ([]entity.HostID, error)
}

type EventReader interface {
	GetMeetings(ctx context.Context, eventID string) ([]entity.Meeting, error)
}

type EventWriter interface {
	WriteMeeting(ctx context.Context, meeting entity.Meeting) error
}

type MeetingStore interface {
	SetRemoteID(ctx context.Context, meetingID string, id entity.RemoteID) error
	ClearRemoteID(ctx context.Context, meetingID string) error
}

type ReportWriter interface {
	WriteReport(ctx context.Context, report entity.PublishReport) error
}
