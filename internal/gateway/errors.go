package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("gateway: unauthorized")
	ErrNotFound     = errors.New("gateway: remote meeting not found")
	ErrRateLimited  = errors.New("gateway: rate limited")
	ErrBadRequest   = errors.New("gateway: request rejected")
	ErrUnavailable  = errors.New("gateway: remote service unavailable")
	ErrBadResponse  = errors.New("gateway: invalid response")
)

// Error is returned by every failed remote call.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}

	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}

	return []error{e.Sentinel, e.Err}
}

// SentinelForStatus maps an HTTP status to the matching sentinel. Success statuses map to nil.
func SentinelForStatus(status int) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}

// IsTemporary reports whether a call may succeed when sent again unchanged.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
