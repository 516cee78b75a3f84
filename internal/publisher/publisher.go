package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/internal/gateway"
	"github.com/conference-manager/meeting-publisher/internal/schedule"
)

const (
	resultSuccess              = "success"
	resultInsufficientCapacity = "insufficient_capacity"
	resultFailed               = "failed"
	resultError                = "error"

	deletionDeleted = "deleted"
	deletionSkipped = "skipped"
	deletionFailed  = "failed"
)

type Config struct {
	// Concurrency caps the number of in flight remote calls of one run. Zero means no cap.
	Concurrency int
}

// Publisher assigns the meetings of an event to hosts and mirrors them on the remote scheduling service.
type Publisher struct {
	roster   repo.HostRoster
	events   repo.EventReader
	meetings repo.MeetingStore
	gateway  gateway.Gateway

	config Config

	publishCounter  *prometheus.CounterVec
	deletionCounter *prometheus.CounterVec

	logger *logr.Logger
}

func New(roster repo.HostRoster, events repo.EventReader, meetings repo.MeetingStore, gw gateway.Gateway, registry prometheus.Registerer, config Config) (Publisher, error) {
	publishCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "publisher",
		Name:      "publish_total",
		Help:      "Publish runs by result.",
	}, []string{"result"})

	err := registry.Register(publishCounter)
	if err != nil {
		return Publisher{}, fmt.Errorf("failed to register metric: %w", err)
	}

	deletionCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "publisher",
		Name:      "unpublish_deletions_total",
		Help:      "Meetings handled by unpublish runs by result.",
	}, []string{"result"})

	err = registry.Register(deletionCounter)
	if err != nil {
		return Publisher{}, fmt.Errorf("failed to register metric: %w", err)
	}

	return Publisher{
		roster:          roster,
		events:          events,
		meetings:        meetings,
		gateway:         gw,
		config:          config,
		publishCounter:  publishCounter,
		deletionCounter: deletionCounter,
	}, nil
}

func (p Publisher) WithLogger(logger logr.Logger) Publisher {
	p.logger = &logger

	return p
}

/*
 * Publish runs as follow:
 *
 *   roster + meetings --> assign --> (unassigned? abort) --> flatten --> create all remote meetings concurrently --> store remote ids
 *
 * Every dispatch runs to completion, even when a sibling failed. Failures are reported together in a PublishError.
 * The returned Result holds one outcome per dispatch, including when an error is returned.
 */
func (p Publisher) Publish(ctx context.Context, eventID string) (Result, error) {
	ret := Result{EventID: eventID}

	hosts, err := p.roster.GetAll(ctx)
	if err != nil {
		p.publishCounter.WithLabelValues(resultError).Inc()

		return ret, fmt.Errorf("failed to get host roster: %w", err)
	}

	meetings, err := p.events.GetMeetings(ctx, eventID)
	if err != nil {
		p.publishCounter.WithLabelValues(resultError).Inc()

		return ret, fmt.Errorf("failed to get meetings of event %s: %w", eventID, err)
	}

	assignment, unassigned := schedule.Assign(hosts, meetings)
	if len(unassigned) > 0 {
		p.publishCounter.WithLabelValues(resultInsufficientCapacity).Inc()

		err := &InsufficientCapacityError{
			EventID:    eventID,
			Hosts:      len(assignment.Hosts()),
			Unassigned: unassigned,
		}

		p.logError(err, "Unable to assign meetings", "eventID", eventID, "unassigned", len(unassigned))

		return ret, err
	}

	dispatches := schedule.Flatten(assignment)

	p.logInfo(1, "Meetings assigned", "eventID", eventID, "hosts", len(assignment.Hosts()), "meetings", len(dispatches))

	// A started batch runs to completion: cancelling it would leave the event half published
	ret.Outcomes = p.dispatch(context.WithoutCancel(ctx), dispatches)

	pErr := &PublishError{EventID: eventID}

	for _, o := range ret.Outcomes {
		if o.Err == nil {
			pErr.Published++

			continue
		}

		pErr.Failures = append(pErr.Failures, Failure{
			MeetingID: o.Dispatch.Meeting.ID,
			Host:      o.Dispatch.Host,
			Err:       o.Err,
		})
	}

	if len(pErr.Failures) > 0 {
		p.publishCounter.WithLabelValues(resultFailed).Inc()

		return ret, pErr
	}

	p.publishCounter.WithLabelValues(resultSuccess).Inc()
	p.logInfo(0, "Event published", "eventID", eventID, "meetings", len(dispatches))

	return ret, nil
}

func (p Publisher) dispatch(ctx context.Context, dispatches []schedule.Dispatch) []Outcome {
	ret := make([]Outcome, len(dispatches))

	group := errgroup.Group{}
	if p.config.Concurrency > 0 {
		group.SetLimit(p.config.Concurrency)
	}

	for i, d := range dispatches {
		index := i
		dispatch := d

		group.Go(func() error {
			ret[index] = p.create(ctx, dispatch)

			return nil
		})
	}

	_ = group.Wait()

	return ret
}

func (p Publisher) create(ctx context.Context, dispatch schedule.Dispatch) Outcome {
	ret := Outcome{Dispatch: dispatch}

	remoteID, err := p.gateway.CreateMeeting(ctx, dispatch.Host, dispatch.Meeting)
	if err != nil {
		p.logError(err, "Failed to create remote meeting", "meetingID", dispatch.Meeting.ID, "host", dispatch.Host)

		ret.Err = err

		return ret
	}

	ret.RemoteID = remoteID

	err = p.meetings.SetRemoteID(ctx, dispatch.Meeting.ID, remoteID)
	if err != nil {
		p.logError(err, "Failed to store remote id", "meetingID", dispatch.Meeting.ID, "remoteID", remoteID)

		ret.Err = fmt.Errorf("failed to store remote id %s: %w", remoteID, err)
	}

	return ret
}

// Unpublish deletes every remote meeting of an event. It is best effort: deletion failures are logged, never returned.
// The only error is the failure to load the meetings of the event.
func (p Publisher) Unpublish(ctx context.Context, eventID string) (UnpublishResult, error) {
	ret := UnpublishResult{EventID: eventID}

	meetings, err := p.events.GetMeetings(ctx, eventID)
	if err != nil {
		return ret, fmt.Errorf("failed to get meetings of event %s: %w", eventID, err)
	}

	results := make([]string, len(meetings))

	// Deletions run to completion once started, as publications do
	ctx = context.WithoutCancel(ctx)

	group := errgroup.Group{}
	if p.config.Concurrency > 0 {
		group.SetLimit(p.config.Concurrency)
	}

	for i, m := range meetings {
		if !m.IsPublished() {
			p.logWarning("Meeting has no remote id, skipping deletion", "eventID", eventID, "meetingID", m.ID, "name", m.Name)

			results[i] = deletionSkipped

			continue
		}

		index := i
		meeting := m

		group.Go(func() error {
			results[index] = p.delete(ctx, meeting)

			return nil
		})
	}

	_ = group.Wait()

	for _, result := range results {
		p.deletionCounter.WithLabelValues(result).Inc()

		switch result {
		case deletionDeleted:
			ret.Deleted++
		case deletionSkipped:
			ret.Skipped++
		default:
			ret.Failed++
		}
	}

	p.logInfo(0, "Event unpublished", "eventID", eventID, "deleted", ret.Deleted, "skipped", ret.Skipped, "failed", ret.Failed)

	return ret, nil
}

func (p Publisher) delete(ctx context.Context, meeting entity.Meeting) string {
	err := p.gateway.DeleteMeeting(ctx, meeting.RemoteID)

	switch {
	case errors.Is(err, gateway.ErrNotFound):
		p.logInfo(1, "Remote meeting already deleted", "meetingID", meeting.ID, "remoteID", meeting.RemoteID)
	case err != nil:
		p.logError(err, "Unable to delete meeting", "meetingID", meeting.ID, "name", meeting.Name, "remoteID", meeting.RemoteID)

		return deletionFailed
	}

	err = p.meetings.ClearRemoteID(ctx, meeting.ID)
	if err != nil {
		// The remote meeting is gone, only the local reference is stale
		p.logError(err, "Failed to clear remote id", "meetingID", meeting.ID, "remoteID", meeting.RemoteID)
	}

	return deletionDeleted
}

func (p Publisher) logInfo(level int, msg string, keysAndValues ...any) {
	if p.logger == nil {
		return
	}

	p.logger.V(level).Info(msg, keysAndValues...)
}

func (p Publisher) logWarning(msg string, keysAndValues ...any) {
	if p.logger == nil {
		return
	}

	p.logger.Info(msg, append([]any{"severity", "warning"}, keysAndValues...)...)
}

func (p Publisher) logError(err error, msg string, keysAndValues ...any) {
	if p.logger == nil {
		return
	}

	p.logger.Error(err, msg, keysAndValues...)
}
