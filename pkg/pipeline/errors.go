package pipeline

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

// ErrProcessingError

type ErrProcessingError struct {
	error
	Category         string
	Event            *sarama.ConsumerMessage
	AdditionalInputs []Input
}

type Input struct {
	Source string
	Key    string
	Value  []byte
}

const (
	UnknownCategory        = "unknown"
	UnmarshalErrorCategory = "unmarshal"
	InvalidPayloadCategory = "invalid_payload"
	PanicCategory          = "panic"
)

func NewErrProcessingError(err error, category string, additionalInputs []Input) ErrProcessingError {
	return ErrProcessingError{
		error:            err,
		Category:         category,
		AdditionalInputs: additionalInputs,
	}
}

func (e ErrProcessingError) Unwrap() error {
	return e.error
}

// WithEvent attaches the kafka message the error originates from.
func (e ErrProcessingError) WithEvent(msg *sarama.ConsumerMessage) ErrProcessingError {
	e.Event = msg

	return e
}

// Retryable reports whether the error is worth processing the same message again.
func (e ErrProcessingError) Retryable() bool {
	return errors.Is(e.error, ErrRetryableError)
}

// ErrRetryableError

var ErrRetryableError = errors.New("retryable error")

func NewErrRetryableError(err error) error {
	return fmt.Errorf("%w: %w", ErrRetryableError, err)
}

func NewRetryableErrProcessingError(err error, category string, additionalInputs []Input) ErrProcessingError {
	return NewErrProcessingError(NewErrRetryableError(err), category, additionalInputs)
}
