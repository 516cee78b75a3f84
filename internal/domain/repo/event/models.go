package event

import (
	"fmt"
	"time"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
)

const (
	fieldEventID  = "event_id"
	fieldName     = "name"
	fieldStart    = "start"
	fieldEnd      = "end"
	fieldRemoteID = "remote_id"
)

func meetingsKey(eventID string) string {
	return fmt.Sprintf("event:%s:meetings", eventID)
}

func meetingKey(meetingID string) string {
	return fmt.Sprintf("meeting:%s", meetingID)
}

func mapToModels(meeting entity.Meeting) map[string]string {
	return map[string]string{
		fieldEventID:  meeting.EventID,
		fieldName:     meeting.Name,
		fieldStart:    meeting.Start.UTC().Format(time.RFC3339Nano),
		fieldEnd:      meeting.End.UTC().Format(time.RFC3339Nano),
		fieldRemoteID: string(meeting.RemoteID),
	}
}

func mapToEntity(meetingID string, fields map[string]string) (entity.Meeting, error) {
	start, err := time.Parse(time.RFC3339Nano, fields[fieldStart])
	if err != nil {
		return entity.Meeting{}, fmt.Errorf("invalid start: %w", err)
	}

	end, err := time.Parse(time.RFC3339Nano, fields[fieldEnd])
	if err != nil {
		return entity.Meeting{}, fmt.Errorf("invalid end: %w", err)
	}

	return entity.Meeting{
		ID:       meetingID,
		EventID:  fields[fieldEventID],
		Name:     fields[fieldName],
		Start:    start,
		End:      end,
		RemoteID: entity.RemoteID(fields[fieldRemoteID]),
	}, nil
}
