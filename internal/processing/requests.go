package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/internal/publisher"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

var errUnknownAction = errors.New("unknown action")

const (
	categoryUnknownAction        = "unknown_action"
	categoryInsufficientCapacity = "insufficient_capacity"
	categoryPublishFailed        = "publish_failed"
	categoryPublish              = "publish"
	categoryUnpublish            = "unpublish"
	categoryReport               = "report"

	sourceSchedule = "schedule"
	sourceGateway  = "gateway"
)

var _ pipeline.Processing[entity.PublicationRequest] = Main{}

// Main handles one publication request: it runs the publisher and records a report of every publish that reached the remote service.
type Main struct {
	publisher Publisher
	reports   repo.ReportWriter
	clock     clockwork.Clock

	logger *logr.Logger
}

func NewMain(publisher Publisher, reports repo.ReportWriter, clock clockwork.Clock) Main {
	return Main{
		publisher: publisher,
		reports:   reports,
		clock:     clock,
	}
}

func (m Main) WithLogger(logger logr.Logger) Main {
	m.logger = &logger

	return m
}

func (m Main) Process(ctx context.Context, request entity.PublicationRequest) error {
	switch request.Action {
	case entity.ActionPublish:
		return m.publish(ctx, request.EventID)
	case entity.ActionUnpublish:
		return m.unpublish(ctx, request.EventID)
	default:
		return pipeline.NewErrProcessingError(fmt.Errorf("%w %q", errUnknownAction, request.Action), categoryUnknownAction, nil)
	}
}

func (m Main) publish(ctx context.Context, eventID string) error {
	runID := common.NewRunID()

	res, err := m.publisher.Publish(ctx, eventID)

	if res.Dispatched() {
		// Recorded even when cancelled, the batch itself ran to completion
		rErr := m.reports.WriteReport(context.WithoutCancel(ctx), res.Report(runID, m.clock.Now()))
		if rErr != nil {
			m.logError(rErr, "Failed to write publish report", "eventID", eventID, "runID", runID)

			if err == nil {
				return pipeline.NewErrProcessingError(rErr, categoryReport, nil)
			}
		}
	}

	if err != nil {
		return publishError(err)
	}

	m.logInfo(0, "Publish request handled", "eventID", eventID, "runID", runID, "meetings", len(res.Outcomes))

	return nil
}

func (m Main) unpublish(ctx context.Context, eventID string) error {
	res, err := m.publisher.Unpublish(ctx, eventID)
	if err != nil {
		pErr := pipeline.ErrProcessingError{}
		if errors.As(err, &pErr) {
			return err
		}

		return pipeline.NewErrProcessingError(err, categoryUnpublish, nil)
	}

	m.logInfo(0, "Unpublish request handled", "eventID", eventID, "deleted", res.Deleted, "skipped", res.Skipped, "failed", res.Failed)

	return nil
}

// publishError maps a publisher failure to a processing error.
// Once meetings were sent to the remote service, the error is never retryable: a retry would create them twice.
func publishError(err error) error {
	capErr := &publisher.InsufficientCapacityError{}
	if errors.As(err, &capErr) {
		inputs := make([]pipeline.Input, 0, len(capErr.Unassigned))
		for _, meeting := range capErr.Unassigned {
			inputs = append(inputs, pipeline.Input{Source: sourceSchedule, Key: meeting.ID, Value: []byte(meeting.Name)})
		}

		return pipeline.NewErrProcessingError(err, categoryInsufficientCapacity, inputs)
	}

	publishErr := &publisher.PublishError{}
	if errors.As(err, &publishErr) {
		inputs := make([]pipeline.Input, 0, len(publishErr.Failures))
		for _, failure := range publishErr.Failures {
			inputs = append(inputs, pipeline.Input{Source: sourceGateway, Key: failure.MeetingID, Value: []byte(failure.Err.Error())})
		}

		// The chain is cut on purpose so that no retryable cause leaks through
		cause := fmt.Errorf("%w: %s", publisher.ErrPublishFailed, err.Error())

		return pipeline.NewErrProcessingError(cause, categoryPublishFailed, inputs)
	}

	pErr := pipeline.ErrProcessingError{}
	if errors.As(err, &pErr) {
		return err
	}

	return pipeline.NewErrProcessingError(err, categoryPublish, nil)
}

func (m Main) logInfo(level int, msg string, keysAndValues ...any) {
	if m.logger == nil {
		return
	}

	m.logger.V(level).Info(msg, keysAndValues...)
}

func (m Main) logError(err error, msg string, keysAndValues ...any) {
	if m.logger == nil {
		return
	}

	m.logger.Error(err, msg, keysAndValues...)
}
