package deskapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed gateway call.
type Kind string

const (
	// KindNetwork means the request never got an HTTP response.
	KindNetwork Kind = "network"
	// KindStatus means the service answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindDecode means the response body could not be parsed.
	KindDecode Kind = "decode"
)

// ErrUnavailable matches every KindNetwork error via errors.Is.
var ErrUnavailable = errors.New("booking service unavailable")

// Error is returned by every Client operation that fails.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: http %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrUnavailable && e.Kind == KindNetwork
}

// UserMessage is the text shown in the UI for err.
func UserMessage(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "Something went wrong. Please try again."
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Could not reach the booking service. Please try again."
	case KindStatus:
		return fmt.Sprintf("The booking service rejected the request (HTTP %d).", apiErr.Status)
	default:
		return "The booking service sent an unexpected response."
	}
}
