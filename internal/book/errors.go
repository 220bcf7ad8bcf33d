package book

import (
	"errors"
	"fmt"
)

// ErrNotConfirmed is returned when a destructive action was declined.
var ErrNotConfirmed = errors.New("action not confirmed")

// ValidationError reports missing or out-of-range input. No request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NetworkError is returned when a request could not complete or the
// server answered with a non-2xx status.
type NetworkError struct {
	Op         string
	StatusCode int    // 0 when no response was received
	RequestID  string
	Err        error
}

func (e *NetworkError) Error() string {
	msg := e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an external lookup has no record for a key.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
