package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const emptyCategoryLabel = "empty_category"

// Parallel Processing

type parallel[Payload any] []Processing[Payload]

// NewParallelProcessing runs every processing on the same payload. The first failure cancels the context of the others.
func NewParallelProcessing[Payload any](p ...Processing[Payload]) Processing[Payload] {
	return parallel[Payload](p)
}

func (p parallel[Payload]) Process(ctx context.Context, payload Payload) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range p {
		next := p[i]

		group.Go(func() error {
			return next.Process(groupCtx, payload)
		})
	}

	return group.Wait()
}

// Panic handler Processing

type panicHandler[Payload any] struct {
	next Processing[Payload]
}

// NewPanicHandlerProcessing turns a panic of p into an ErrProcessingError carrying the stack trace.
func NewPanicHandlerProcessing[Payload any](p Processing[Payload]) Processing[Payload] {
	return panicHandler[Payload]{next: p}
}

func (p panicHandler[Payload]) Process(ctx context.Context, payload Payload) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		err = NewErrProcessingError(
			fmt.Errorf("recovered from panic: %v", r),
			PanicCategory,
			[]Input{{Source: "panic", Key: "stack", Value: debug.Stack()}},
		)
	}()

	return p.next.Process(ctx, payload)
}

// Retry Processing

type retryProcessing[Payload any] struct {
	next   Processing[Payload]
	config RetryConfig
}

type RetryConfig struct {
	// MaxAttempt includes the first call. Zero is handled as a single attempt.
	MaxAttempt uint
	Delay      time.Duration

	// OnRetry is called with the number of every failed attempt, if set.
	OnRetry func(attempt uint, err error)
}

// NewRetryProcessing calls p again as long as it fails with an error wrapping ErrRetryableError.
func NewRetryProcessing[Payload any](p Processing[Payload], config RetryConfig) Processing[Payload] {
	if config.MaxAttempt == 0 {
		config.MaxAttempt = 1
	}

	return retryProcessing[Payload]{
		next:   p,
		config: config,
	}
}

func (p retryProcessing[Payload]) Process(ctx context.Context, payload Payload) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.config.MaxAttempt),
		retry.Delay(p.config.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrRetryableError)
		}),
	}

	if p.config.OnRetry != nil {
		opts = append(opts, retry.OnRetry(func(attempt uint, err error) {
			p.config.OnRetry(attempt+1, err)
		}))
	}

	return retry.Do(func() error { return p.next.Process(ctx, payload) }, opts...)
}

// Duration Metric Processing

type MetricsConfig struct {
	Namespace string

	// Buckets are in milliseconds.
	Buckets []float64
}

var defaultDurationBuckets = []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

type durationDecorator[Payload any] struct {
	next      Processing[Payload]
	histogram *prometheus.HistogramVec
	clock     clockwork.Clock
}

func NewDurationMetricsDecoratorProcessing[Payload any](p Processing[Payload], registry prometheus.Registerer, clock clockwork.Clock, config MetricsConfig) (Processing[Payload], error) {
	buckets := config.Buckets
	if len(buckets) == 0 {
		buckets = defaultDurationBuckets
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "processing_duration_milliseconds",
		Help:      "Time taken to process payload.",
		Buckets:   buckets,
	}, []string{"failed"})

	err := registry.Register(histogram)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return durationDecorator[Payload]{
		next:      p,
		histogram: histogram,
		clock:     clock,
	}, nil
}

func (p durationDecorator[Payload]) Process(ctx context.Context, payload Payload) error {
	start := p.clock.Now()

	err := p.next.Process(ctx, payload)

	elapsed := p.clock.Since(start)
	p.histogram.WithLabelValues(strconv.FormatBool(err != nil)).Observe(float64(elapsed) / float64(time.Millisecond))

	return err
}

// Error Metric Processing

type errorCountProcessing struct {
	counter *prometheus.CounterVec
}

// NewErrorCountProcessing counts processing errors by category and retryability. It never fails.
func NewErrorCountProcessing(registry prometheus.Registerer, config MetricsConfig) (Processing[ErrProcessingError], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "processing_error_total",
		Help:      "Error counter by category.",
	}, []string{"category", "retryable"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return errorCountProcessing{counter: counter}, nil
}

func (p errorCountProcessing) Process(_ context.Context, pErr ErrProcessingError) error {
	category := pErr.Category
	if category == "" {
		category = emptyCategoryLabel
	}

	p.counter.WithLabelValues(category, strconv.FormatBool(pErr.Retryable())).Inc()

	return nil
}
