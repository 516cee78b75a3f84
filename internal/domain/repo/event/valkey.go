package event

import (
	"context"

	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

const (
	categoryInternalError   = "valkey_internal_error"
	categoryMeetingNotFound = "meeting_not_found"
)

var (
	_ repo.EventReader  = ValkeyRepo{}
	_ repo.EventWriter  = ValkeyRepo{}
	_ repo.MeetingStore = ValkeyRepo{}
)

// ValkeyRepo stores meetings as hashes (meeting:{id}) and keeps their order per event in a list (event:{id}:meetings).
type ValkeyRepo struct {
	client valkey.Client
}

func NewValkeyRepo(client valkey.Client) ValkeyRepo {
	return ValkeyRepo{client: client}
}

func (r ValkeyRepo) WriteMeeting(ctx context.Context, meeting entity.Meeting) error {
	err := meeting.Validate()
	if err != nil {
		return common.NewErrProcessingError(err, categoryInternalError, nil, "invalid meeting")
	}

	// Set properties
	fields := r.client.B().Hset().Key(meetingKey(meeting.ID)).FieldValue()
	for field, value := range mapToModels(meeting) {
		fields = fields.FieldValue(field, value)
	}

	err = r.client.Do(ctx, fields.Build()).Error()
	if err != nil {
		return common.NewValkeyError(err, "failed to set meeting %s", meeting.ID)
	}

	// Append to the event once, the list order is the order meetings are assigned in
	posCommand := r.client.B().Lpos().Key(meetingsKey(meeting.EventID)).Element(meeting.ID).Build()

	err = r.client.Do(ctx, posCommand).Error()
	switch {
	case err == nil:
		return nil
	case !valkey.IsValkeyNil(err):
		return common.NewValkeyError(err, "failed to look meeting %s up in event %s", meeting.ID, meeting.EventID)
	}

	pushCommand := r.client.B().Rpush().Key(meetingsKey(meeting.EventID)).Element(meeting.ID).Build()

	err = r.client.Do(ctx, pushCommand).Error()
	if err != nil {
		return common.NewValkeyError(err, "failed to add meeting %s to event %s", meeting.ID, meeting.EventID)
	}

	return nil
}

func (r ValkeyRepo) GetMeetings(ctx context.Context, eventID string) ([]entity.Meeting, error) {
	command := r.client.B().Lrange().Key(meetingsKey(eventID)).Start(0).Stop(-1).Build()

	resp := r.client.Do(ctx, command)

	err := resp.Error()
	if err != nil {
		return nil, common.NewValkeyError(err, "failed to list meetings of event %s", eventID)
	}

	ids, err := resp.AsStrSlice()
	if err != nil {
		return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "unexpected lrange response type for %s", eventID)
	}

	ret := make([]entity.Meeting, 0, len(ids))
	if len(ids) == 0 {
		return ret, nil
	}

	commands := make(valkey.Commands, 0, len(ids))
	for _, id := range ids {
		commands = append(commands, r.client.B().Hgetall().Key(meetingKey(id)).Build())
	}

	for i, resp := range r.client.DoMulti(ctx, commands...) {
		err := resp.Error()
		if err != nil {
			return nil, common.NewValkeyError(err, "failed to get meeting %s", ids[i])
		}

		fields, err := resp.AsStrMap()
		if err != nil {
			return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "unexpected hgetall response type for %s", ids[i])
		}

		if len(fields) == 0 {
			return nil, common.NewErrProcessingError(repo.ErrMeetingNotFound, categoryMeetingNotFound, nil, "meeting %s of event %s", ids[i], eventID)
		}

		meeting, err := mapToEntity(ids[i], fields)
		if err != nil {
			return nil, common.NewErrProcessingError(err, categoryInternalError, nil, "failed to read meeting %s", ids[i])
		}

		ret = append(ret, meeting)
	}

	return ret, nil
}

func (r ValkeyRepo) SetRemoteID(ctx context.Context, meetingID string, remoteID entity.RemoteID) error {
	existsCommand := r.client.B().Exists().Key(meetingKey(meetingID)).Build()

	count, err := r.client.Do(ctx, existsCommand).AsInt64()
	if err != nil {
		return common.NewValkeyError(err, "failed to check meeting %s", meetingID)
	}

	if count == 0 {
		return common.NewErrProcessingError(repo.ErrMeetingNotFound, categoryMeetingNotFound, nil, "meeting %s", meetingID)
	}

	command := r.client.B().Hset().Key(meetingKey(meetingID)).FieldValue().FieldValue(fieldRemoteID, string(remoteID)).Build()

	err = r.client.Do(ctx, command).Error()
	if err != nil {
		return common.NewValkeyError(err, "failed to set remote id of %s", meetingID)
	}

	return nil
}

func (r ValkeyRepo) ClearRemoteID(ctx context.Context, meetingID string) error {
	command := r.client.B().Hdel().Key(meetingKey(meetingID)).Field(fieldRemoteID).Build()

	err := r.client.Do(ctx, command).Error()
	if err != nil {
		return common.NewValkeyError(err, "failed to clear remote id of %s", meetingID)
	}

	return nil
}
