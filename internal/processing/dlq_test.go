package processing_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	repomock "github.com/conference-manager/meeting-publisher/internal/domain/repo/mock"
	"github.com/conference-manager/meeting-publisher/internal/processing"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

var _ = Describe("Testing dead letter queue", func() {
	var ctrl *gomock.Controller

	var writer *repomock.MockProcessingErrorWriter
	var dlq processing.DeadLetterQueue

	pErr := pipeline.NewErrProcessingError(errors.New("publish failed"), "publish_failed", nil)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())

		writer = repomock.NewMockProcessingErrorWriter(ctrl)
		dlq = processing.NewDeadLetterQueue(writer)
	})

	When("the error is written", func() {
		BeforeEach(func() {
			writer.EXPECT().WriteProcessingError(gomock.Any(), pErr).Return(nil).Times(1)
		})

		It("should succeed", func(ctx SpecContext) {
			Expect(dlq.Process(ctx, pErr)).To(Succeed())
		})
	})

	When("the writer fails", func() {
		BeforeEach(func() {
			writer.EXPECT().WriteProcessingError(gomock.Any(), pErr).Return(errStore).Times(1)
		})

		It("should return a retryable error", func(ctx SpecContext) {
			err := dlq.Process(ctx, pErr)
			Expect(err).To(MatchError(errStore))
			Expect(err).To(MatchError(pipeline.ErrRetryableError))
		})
	})
})
