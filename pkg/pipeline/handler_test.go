package pipeline_test

import (
	"context"
	"errors"

	"github.com/IBM/sarama"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline/mock"
)

var errMissingID = errors.New("missing id")

func (r Request) Validate() error {
	if r.ID == "" {
		return errMissingID
	}

	return nil
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return map[string][]int32{"requests": {0}} }
func (s *fakeSession) MemberID() string           { return "member" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {
}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {
}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func newFakeClaim(values ...string) fakeClaim {
	ret := fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(values))}

	for i, value := range values {
		ret.messages <- &sarama.ConsumerMessage{Topic: "requests", Partition: 0, Offset: int64(i), Value: []byte(value)}
	}

	close(ret.messages)

	return ret
}

func (c fakeClaim) Topic() string                            { return "requests" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.messages)) }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

var _ = Describe("Testing JSONHandler", func() {
	var ctrl *gomock.Controller

	var proc *mock.MockProcessing[Request]
	var errProc *mock.MockErrorProcessing
	var handler pipeline.JSONHandler[Request]
	var session *fakeSession

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		proc = mock.NewMockProcessing[Request](ctrl)
		errProc = mock.NewMockErrorProcessing(ctrl)
		handler = pipeline.NewJSONHandler[Request](proc, errProc).WithLogger(GinkgoLogr)
		session = &fakeSession{ctx: context.Background()}
	})

	When("the message is a valid request", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), data).Return(nil).Times(1)
		})

		It("should process it and mark it", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{"id":"event-1","action":"publish"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(session.marked).To(Equal([]int64{0}))
		})
	})

	When("the message is not json", func() {
		var captured pipeline.ErrProcessingError

		BeforeEach(func() {
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pErr pipeline.ErrProcessingError) error {
				captured = pErr

				return nil
			}).Times(1)
		})

		It("should send an unmarshal error with the source message", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{not json`))
			Expect(err).NotTo(HaveOccurred())

			Expect(captured.Category).To(Equal(pipeline.UnmarshalErrorCategory))
			Expect(captured.Event).NotTo(BeNil())
			Expect(captured.Event.Value).To(Equal([]byte(`{not json`)))
			Expect(session.marked).To(Equal([]int64{0}), "failed message is committed")
		})
	})

	When("the request does not validate", func() {
		var captured pipeline.ErrProcessingError

		BeforeEach(func() {
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pErr pipeline.ErrProcessingError) error {
				captured = pErr

				return nil
			}).Times(1)
		})

		It("should not process it", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{"action":"publish"}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(captured.Category).To(Equal(pipeline.InvalidPayloadCategory))
			Expect(captured).To(MatchError(errMissingID))
		})
	})

	When("the processing fails", func() {
		var captured pipeline.ErrProcessingError

		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), data).Return(errRetryable).Times(1)
			proc.EXPECT().Process(gomock.Any(), Request{ID: "event-2", Action: "unpublish"}).Return(nil).Times(1)

			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pErr pipeline.ErrProcessingError) error {
				captured = pErr

				return nil
			}).Times(1)
		})

		It("should keep the category and go on with the next message", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(
				`{"id":"event-1","action":"publish"}`,
				`{"id":"event-2","action":"unpublish"}`,
			))
			Expect(err).NotTo(HaveOccurred())

			Expect(captured.Category).To(Equal(storeFailed))
			Expect(captured.Event.Offset).To(BeEquivalentTo(0))
			Expect(session.marked).To(Equal([]int64{0, 1}))
		})
	})

	When("the processing fails with a generic error", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), data).Return(errStore).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, pErr pipeline.ErrProcessingError) error {
				Expect(pErr.Category).To(Equal(pipeline.UnknownCategory))

				return nil
			}).Times(1)
		})

		It("should use the unknown category", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{"id":"event-1","action":"publish"}`))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	When("the error processing fails as well", func() {
		BeforeEach(func() {
			proc.EXPECT().Process(gomock.Any(), data).Return(errStore).Times(1)
			errProc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(errors.New("dlq unavailable")).Times(1)
		})

		It("should still mark the message", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{"id":"event-1","action":"publish"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(session.marked).To(Equal([]int64{0}))
		})
	})

	When("the session is cancelled", func() {
		BeforeEach(func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			session.ctx = ctx
		})

		It("should stop without marking anything", func() {
			err := handler.ConsumeClaim(session, newFakeClaim(`{"id":"event-1","action":"publish"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(session.marked).To(BeEmpty())
		})
	})
})
