package common

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

// CategoryValkeyClient is the error category of failed valkey calls.
const CategoryValkeyClient = "valkey_client"

func NewErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	return pipeline.NewErrProcessingError(fmt.Errorf("%s: %w", fmt.Sprintf(reason, args...), err), category, inputs)
}

func NewRetryableErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	return NewErrProcessingError(pipeline.NewErrRetryableError(err), category, inputs, reason, args...)
}

// NewValkeyError wraps a failed valkey call, retryable when the server could not be reached or asked to try again.
func NewValkeyError(err error, reason string, args ...interface{}) pipeline.ErrProcessingError {
	if IsRetryableValkeyError(err) {
		return NewRetryableErrProcessingError(err, CategoryValkeyClient, nil, reason, args...)
	}

	return NewErrProcessingError(err, CategoryValkeyClient, nil, reason, args...)
}

func IsRetryableValkeyError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	vErr, ok := valkey.IsValkeyErr(err)

	return ok && vErr.IsTryAgain()
}
