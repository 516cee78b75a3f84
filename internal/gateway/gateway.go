package gateway

import (
	"context"
	"time"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
)

//go:generate mockgen -source=gateway.go -package=mock -destination=./mock/mock_gateway.go

// Gateway is the boundary with the remote scheduling service.
type Gateway interface {
	// CreateMeeting schedules meeting on behalf of host and returns the remote identifier.
	CreateMeeting(ctx context.Context, host entity.HostID, meeting entity.Meeting) (entity.RemoteID, error)
	// DeleteMeeting removes a previously scheduled meeting.
	DeleteMeeting(ctx context.Context, id entity.RemoteID) error
}

// DurationMinutes returns the length of a meeting in whole minutes.
// Inverted windows give the same positive value.
func DurationMinutes(meeting entity.Meeting) int64 {
	d := meeting.End.Sub(meeting.Start)
	if d < 0 {
		d = -d
	}

	return int64(d / time.Minute)
}
