package factory

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/processing"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

var defaultRetry = pipeline.RetryConfig{
	MaxAttempt: 3,
	Delay:      500 * time.Millisecond,
}

/*
 * DecorateProcessing decorates the processing as follow:
 *
 * panic --> duration --> count --> retry --> main (publish / unpublish + report)
 *
 * Only errors marked retryable are retried: a failed publish never is.
 */
func DecorateProcessing(mainProcessing pipeline.Processing[entity.PublicationRequest], registry prometheus.Registerer, clock clockwork.Clock) (pipeline.Processing[entity.PublicationRequest], error) {
	ret := mainProcessing

	ret = pipeline.NewRetryProcessing(ret, defaultRetry)

	ret, err := processing.NewCountRequests(ret, registry, pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create request count processing: %w", err)
	}

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{Namespace: "main"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}

/*
 * DecorateErrorProcessing decorates the error processing as follow:
 *
 *										---> retry --> main (dlq)
 *	panic --> duration --> parallel ---|
 *										---> error count
 */
func DecorateErrorProcessing(mainProcessing pipeline.ErrorProcessing, registry prometheus.Registerer, clock clockwork.Clock) (pipeline.ErrorProcessing, error) {
	var ret pipeline.Processing[pipeline.ErrProcessingError] = mainProcessing

	ret = pipeline.NewRetryProcessing(ret, defaultRetry)

	errorCount, err := pipeline.NewErrorCountProcessing(registry, pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create error count processing: %w", err)
	}

	ret = pipeline.NewParallelProcessing(ret, errorCount)

	ret, err = pipeline.NewDurationMetricsDecoratorProcessing(ret, registry, clock, pipeline.MetricsConfig{Namespace: "error"})
	if err != nil {
		return nil, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	ret = pipeline.NewPanicHandlerProcessing(ret)

	return ret, nil
}
