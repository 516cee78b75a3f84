package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
)

// Runner consumes topics with a consumer group until the context is done or the group is closed.
// The consumer group must be configured with Consumer.Return.Errors.
type Runner[Payload any] struct {
	group  sarama.ConsumerGroup
	topics []string

	handler JSONHandler[Payload]

	logger *logr.Logger
}

func NewRunner[Payload any](consumer sarama.ConsumerGroup, topics []string, processing Processing[Payload], errorProcessing ErrorProcessing) Runner[Payload] {
	return Runner[Payload]{
		group:   consumer,
		topics:  topics,
		handler: NewJSONHandler(processing, errorProcessing),
	}
}

func (r Runner[Payload]) WithLogger(logger logr.Logger) Runner[Payload] {
	r.logger = &logger
	r.handler = r.handler.WithLogger(logger)

	return r
}

func (r Runner[Payload]) Start(ctx context.Context) error {
	// Closed by sarama once the group is closed
	go r.drainErrors()

	for session := 1; ; session++ {
		r.logInfo(1, "Joining consumer group", "topics", r.topics, "session", session)

		// Consume returns on every rebalance
		err := r.group.Consume(ctx, r.topics, r.handler)

		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			r.logInfo(0, "Consumer group closed")

			return nil
		case err != nil:
			return fmt.Errorf("consumer failed: %w", err)
		case ctx.Err() != nil:
			r.logInfo(0, "Consumer stopped", "reason", ctx.Err().Error())

			return ctx.Err()
		}
	}
}

func (r Runner[Payload]) drainErrors() {
	for err := range r.group.Errors() {
		r.logError(err, "Consumer group error")
	}
}

func (r Runner[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.V(level).Info(msg, keysAndValues...)
}

func (r Runner[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.Error(err, msg, keysAndValues...)
}
