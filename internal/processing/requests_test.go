package processing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/mock/gomock"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	repomock "github.com/conference-manager/meeting-publisher/internal/domain/repo/mock"
	"github.com/conference-manager/meeting-publisher/internal/processing"
	"github.com/conference-manager/meeting-publisher/internal/processing/mock"
	"github.com/conference-manager/meeting-publisher/internal/publisher"
	"github.com/conference-manager/meeting-publisher/internal/schedule"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
	pipelinemock "github.com/conference-manager/meeting-publisher/pkg/pipeline/mock"
)

// Helper

const eventID = "event-1"

var (
	now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	keynote = entity.NewMeeting("m1", eventID, "Keynote", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), time.Hour)

	dispatched = publisher.Result{
		EventID: eventID,
		Outcomes: []publisher.Outcome{
			{Dispatch: schedule.Dispatch{Meeting: keynote, Host: "a@example.com"}, RemoteID: "r1"},
		},
	}

	errStore = errors.New("store unavailable")
)

func publishRequest() entity.PublicationRequest {
	return entity.PublicationRequest{EventID: eventID, Action: entity.ActionPublish}
}

func unpublishRequest() entity.PublicationRequest {
	return entity.PublicationRequest{EventID: eventID, Action: entity.ActionUnpublish}
}

// Test

func TestProcessing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Processing test suite")
}

var _ = Describe("Testing Main processing", func() {
	var ctrl *gomock.Controller

	var pub *mock.MockPublisher
	var reports *repomock.MockReportWriter
	var mainProcessing processing.Main

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		pub = mock.NewMockPublisher(ctrl)
		reports = repomock.NewMockReportWriter(ctrl)
		mainProcessing = processing.NewMain(pub, reports, clockwork.NewFakeClockAt(now)).WithLogger(GinkgoLogr)
	})

	When("the action is unknown", func() {
		It("should fail without calling the publisher", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, entity.PublicationRequest{EventID: eventID, Action: "archive"})
			Expect(err).To(HaveOccurred())

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("unknown_action"))
			Expect(pErr.Retryable()).To(BeFalse())
		})
	})

	When("publishing succeeds", func() {
		var written entity.PublishReport

		BeforeEach(func() {
			pub.EXPECT().Publish(gomock.Any(), eventID).Return(dispatched, nil).Times(1)
			reports.EXPECT().WriteReport(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, report entity.PublishReport) error {
				written = report

				return nil
			}).Times(1)
		})

		It("should write a successful report", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).NotTo(HaveOccurred())

			Expect(written.RunID).NotTo(BeEmpty())
			Expect(written.EventID).To(Equal(eventID))
			Expect(written.Timestamp).To(Equal(now))
			Expect(written.Succeeded).To(BeTrue())
			Expect(written.Dispatches).To(HaveLen(1))
			Expect(written.Dispatches[0].RemoteID).To(BeEquivalentTo("r1"))
		})
	})

	When("the request is cancelled while meetings are being published", func() {
		var reportCtxErr error

		BeforeEach(func() {
			reportCtxErr = errors.New("report not written")
		})

		It("should still write the report", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pub.EXPECT().Publish(gomock.Any(), eventID).DoAndReturn(func(context.Context, string) (publisher.Result, error) {
				cancel()

				return dispatched, nil
			}).Times(1)
			reports.EXPECT().WriteReport(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ entity.PublishReport) error {
				reportCtxErr = ctx.Err()

				return reportCtxErr
			}).Times(1)

			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(reportCtxErr).NotTo(HaveOccurred())
		})
	})

	When("publishing succeeds but the report cannot be written", func() {
		BeforeEach(func() {
			pub.EXPECT().Publish(gomock.Any(), eventID).Return(dispatched, nil).Times(1)
			reports.EXPECT().WriteReport(gomock.Any(), gomock.Any()).Return(errStore).Times(1)
		})

		It("should fail with a non retryable report error", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).To(MatchError(errStore))

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("report"))
			Expect(pErr.Retryable()).To(BeFalse())
		})
	})

	When("capacity is insufficient", func() {
		BeforeEach(func() {
			capErr := &publisher.InsufficientCapacityError{EventID: eventID, Hosts: 1, Unassigned: []entity.Meeting{keynote}}

			pub.EXPECT().Publish(gomock.Any(), eventID).Return(publisher.Result{EventID: eventID}, capErr).Times(1)
		})

		It("should not write any report and keep the unassigned meetings", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).To(MatchError(publisher.ErrInsufficientCapacity))

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("insufficient_capacity"))
			Expect(pErr.AdditionalInputs).To(ConsistOf(pipeline.Input{Source: "schedule", Key: "m1", Value: []byte("Keynote")}))
		})
	})

	When("some meetings fail to publish", func() {
		var written entity.PublishReport

		BeforeEach(func() {
			// The store failure is retryable, the publish error must not be
			storeErr := pipeline.NewRetryableErrProcessingError(errStore, "valkey_client", nil)

			res := publisher.Result{
				EventID: eventID,
				Outcomes: []publisher.Outcome{
					{Dispatch: schedule.Dispatch{Meeting: keynote, Host: "a@example.com"}, RemoteID: "r1", Err: storeErr},
				},
			}
			publishErr := &publisher.PublishError{
				EventID:  eventID,
				Failures: []publisher.Failure{{MeetingID: "m1", Host: "a@example.com", Err: storeErr}},
			}

			pub.EXPECT().Publish(gomock.Any(), eventID).Return(res, publishErr).Times(1)
			reports.EXPECT().WriteReport(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, report entity.PublishReport) error {
				written = report

				return nil
			}).Times(1)
		})

		It("should report the failure and never be retryable", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).To(MatchError(publisher.ErrPublishFailed))
			Expect(errors.Is(err, pipeline.ErrRetryableError)).To(BeFalse())

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("publish_failed"))
			Expect(pErr.AdditionalInputs).To(HaveLen(1))
			Expect(pErr.AdditionalInputs[0].Key).To(Equal("m1"))

			Expect(written.Succeeded).To(BeFalse())
			Expect(written.Dispatches[0].Error).NotTo(BeEmpty())
		})
	})

	When("loading the event fails with a retryable error", func() {
		BeforeEach(func() {
			storeErr := pipeline.NewRetryableErrProcessingError(errStore, "valkey_client", nil)

			pub.EXPECT().Publish(gomock.Any(), eventID).Return(publisher.Result{EventID: eventID}, fmt.Errorf("failed to get meetings: %w", storeErr)).Times(1)
		})

		It("should stay retryable", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())
			Expect(err).To(MatchError(pipeline.ErrRetryableError))

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("valkey_client"))
		})
	})

	When("the publisher fails with a plain error", func() {
		BeforeEach(func() {
			pub.EXPECT().Publish(gomock.Any(), eventID).Return(publisher.Result{EventID: eventID}, errStore).Times(1)
		})

		It("should use the publish category", func(ctx SpecContext) {
			err := mainProcessing.Process(ctx, publishRequest())

			pErr := pipeline.ErrProcessingError{}
			Expect(errors.As(err, &pErr)).To(BeTrue())
			Expect(pErr.Category).To(Equal("publish"))
		})
	})

	When("unpublishing", func() {
		Context("and some deletions fail", func() {
			BeforeEach(func() {
				pub.EXPECT().Unpublish(gomock.Any(), eventID).Return(publisher.UnpublishResult{EventID: eventID, Deleted: 1, Failed: 1}, nil).Times(1)
			})

			It("should succeed", func(ctx SpecContext) {
				err := mainProcessing.Process(ctx, unpublishRequest())
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("and the meetings cannot be loaded", func() {
			BeforeEach(func() {
				pub.EXPECT().Unpublish(gomock.Any(), eventID).Return(publisher.UnpublishResult{EventID: eventID}, errStore).Times(1)
			})

			It("should fail with the unpublish category", func(ctx SpecContext) {
				err := mainProcessing.Process(ctx, unpublishRequest())
				Expect(err).To(MatchError(errStore))

				pErr := pipeline.ErrProcessingError{}
				Expect(errors.As(err, &pErr)).To(BeTrue())
				Expect(pErr.Category).To(Equal("unpublish"))
			})
		})
	})
})

var _ = Describe("Testing request counter", func() {
	var ctrl *gomock.Controller

	var inner *pipelinemock.MockProcessing[entity.PublicationRequest]
	var registry *prometheus.Registry
	var counter pipeline.Processing[entity.PublicationRequest]

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		inner = pipelinemock.NewMockProcessing[entity.PublicationRequest](ctrl)
		registry = prometheus.NewPedanticRegistry()

		var err error
		counter, err = processing.NewCountRequests(inner, registry, pipeline.MetricsConfig{Namespace: "main"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should count requests by action, failed or not", func(ctx SpecContext) {
		inner.EXPECT().Process(gomock.Any(), publishRequest()).Return(nil).Times(2)
		inner.EXPECT().Process(gomock.Any(), unpublishRequest()).Return(errStore).Times(1)

		Expect(counter.Process(ctx, publishRequest())).To(Succeed())
		Expect(counter.Process(ctx, publishRequest())).To(Succeed())
		Expect(counter.Process(ctx, unpublishRequest())).To(MatchError(errStore))

		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		Expect(families).To(HaveLen(1))
		Expect(families[0].GetName()).To(Equal("main_requests_total"))

		values := map[string]float64{}
		for _, metric := range families[0].GetMetric() {
			values[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}

		Expect(values).To(Equal(map[string]float64{"publish": 2, "unpublish": 1}))
	})

	It("should refuse to register twice", func() {
		_, err := processing.NewCountRequests(inner, registry, pipeline.MetricsConfig{Namespace: "main"})
		Expect(err).To(HaveOccurred())
	})
})
