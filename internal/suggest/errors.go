package suggest

import (
	"errors"
	"fmt"
)

var (
	ErrRequestFailed     = errors.New("recommendation request failed")
	ErrMalformedResponse = errors.New("malformed recommendation response")
)

// RequestFailedError covers transport failures, non-2xx answers and
// envelopes that cannot be decoded. StatusCode is 0 when no response arrived.
type RequestFailedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e RequestFailedError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", ErrRequestFailed, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", ErrRequestFailed, msg)
}

func (e RequestFailedError) Unwrap() error { return e.Err }

func (e RequestFailedError) Is(target error) bool { return target == ErrRequestFailed }

// MalformedResponseError means the model answered but its text is not the
// expected JSON document.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e MalformedResponseError) Unwrap() error { return e.Err }

func (e MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }
