package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
)

// Validator is implemented by payloads checking their own content once decoded.
type Validator interface {
	Validate() error
}

// JSONHandler is a sarama consumer group handler decoding every message as a JSON Payload.
// A message is marked once processed, or once its failure went through the error processing.
type JSONHandler[Payload any] struct {
	logger *logr.Logger

	processing      Processing[Payload]
	errorProcessing ErrorProcessing
}

func NewJSONHandler[Payload any](processing Processing[Payload], errProcessing ErrorProcessing) JSONHandler[Payload] {
	return JSONHandler[Payload]{
		processing:      processing,
		errorProcessing: errProcessing,
	}
}

func (h JSONHandler[Payload]) WithLogger(logger logr.Logger) JSONHandler[Payload] {
	h.logger = &logger

	return h
}

func (h JSONHandler[Payload]) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	h.logInfo(0, "Claim started", "topic", claim.Topic(), "partition", claim.Partition(), "initialOffset", claim.InitialOffset())

	for msg := range claim.Messages() {
		// Cancelled on rebalance or shutdown: remaining messages go to the next session
		if ctx.Err() != nil {
			h.logInfo(1, "Claim interrupted", "topic", claim.Topic(), "partition", claim.Partition())

			return nil
		}

		if msg == nil {
			continue
		}

		h.handle(ctx, session, msg)
	}

	return nil
}

func (h JSONHandler[Payload]) handle(ctx context.Context, session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	h.logInfo(3, "Message received", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	payload, err := decode[Payload](msg.Value)
	if err == nil {
		err = h.processing.Process(ctx, payload)
	}

	if err != nil {
		// Offset is not committed on cancellation, the message is consumed again by the next session
		if ctx.Err() != nil {
			h.logInfo(1, "Failure dropped, context cancelled", "offset", msg.Offset, "error", err.Error())

			return
		}

		h.handleFailure(ctx, msg, err)
	}

	session.MarkMessage(msg, "")
}

func decode[Payload any](value []byte) (Payload, error) {
	var ret Payload

	err := json.Unmarshal(value, &ret)
	if err != nil {
		return ret, NewErrProcessingError(err, UnmarshalErrorCategory, nil)
	}

	validator, ok := any(&ret).(Validator)
	if ok {
		err = validator.Validate()
		if err != nil {
			return ret, NewErrProcessingError(err, InvalidPayloadCategory, nil)
		}
	}

	return ret, nil
}

func (h JSONHandler[Payload]) handleFailure(ctx context.Context, msg *sarama.ConsumerMessage, cause error) {
	pErr := ErrProcessingError{}
	if !errors.As(cause, &pErr) {
		pErr = NewErrProcessingError(cause, UnknownCategory, nil)
	}

	pErr = pErr.WithEvent(msg)

	h.logError(cause, "Message processing failed", "category", pErr.Category, "retryable", pErr.Retryable(), "offset", msg.Offset)

	err := h.errorProcessing.Process(ctx, pErr)
	if err != nil {
		// Last trace of the message, it is committed anyway
		h.logError(err, "Error processing failed",
			"kafka.topic", msg.Topic,
			"kafka.partition", msg.Partition,
			"kafka.offset", msg.Offset,
			"kafka.payload", string(msg.Value),
			"category", pErr.Category,
			"additionalInputs", len(pErr.AdditionalInputs),
		)
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h JSONHandler[Payload]) Setup(session sarama.ConsumerGroupSession) error {
	h.logInfo(0, "Session started", "claims", session.Claims(), "generation", session.GenerationID())

	return nil
}

// Cleanup is run once every ConsumeClaim of the session returned, before the last offset commit.
func (h JSONHandler[Payload]) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logInfo(0, "Session ended", "claims", session.Claims(), "generation", session.GenerationID())

	return nil
}

func (h JSONHandler[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.V(level).Info(msg, keysAndValues...)
}

func (h JSONHandler[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if h.logger == nil {
		return
	}

	h.logger.Error(err, msg, keysAndValues...)
}
