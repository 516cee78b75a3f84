package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

var _ repo.ReportWriter = ValkeyWriter{}

// ValkeyWriter keeps the latest report of each event.
type ValkeyWriter struct {
	client     valkey.Client
	expiration time.Duration
}

func NewValkeyWriter(client valkey.Client, expiration time.Duration) ValkeyWriter {
	return ValkeyWriter{
		client:     client,
		expiration: expiration,
	}
}

func LatestKey(eventID string) string {
	return fmt.Sprintf("report:%s:latest", eventID)
}

func (w ValkeyWriter) WriteReport(ctx context.Context, report entity.PublishReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	var command valkey.Completed
	if w.expiration > 0 {
		command = w.client.B().Set().Key(LatestKey(report.EventID)).Value(string(data)).ExSeconds(int64(w.expiration.Seconds())).Build()
	} else {
		command = w.client.B().Set().Key(LatestKey(report.EventID)).Value(string(data)).Build()
	}

	err = w.client.Do(ctx, command).Error()
	if err != nil {
		return fmt.Errorf("failed to set latest report of %s: %w", report.EventID, err)
	}

	return nil
}

func (w ValkeyWriter) GetLatest(ctx context.Context, eventID string) (entity.PublishReport, error) {
	ret := entity.PublishReport{}

	data, err := w.client.Do(ctx, w.client.B().Get().Key(LatestKey(eventID)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return ret, fmt.Errorf("no report for %s: %w", eventID, repo.ErrEventNotFound)
		}

		return ret, fmt.Errorf("failed to get latest report of %s: %w", eventID, err)
	}

	err = json.Unmarshal(data, &ret)
	if err != nil {
		return ret, fmt.Errorf("failed to unmarshal report of %s: %w", eventID, err)
	}

	return ret, nil
}
