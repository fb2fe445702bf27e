// Package apperr defines the error taxonomy shared by handlers, services, and
// repositories. Handlers translate these into HTTP status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound covers ownership-scoped lookups: a row that exists but belongs
// to another user is reported the same way as a missing row.
var ErrNotFound = errors.New("not found")

// ErrQuotaExceeded is returned when a user's rolling 24h AI quota is spent.
var ErrQuotaExceeded = errors.New("daily AI quota exceeded")

// ValidationError marks malformed client input (bad status, bad date, missing
// required field).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError marks a failure of the external AI provider: missing
// configuration, transport failure, non-2xx response, or an unparseable body.
type UpstreamError struct {
	Detail string
	// Unavailable distinguishes "provider unreachable or not configured"
	// (503) from "provider answered garbage" (502).
	Unavailable bool
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Upstream(detail string, err error) error {
	return &UpstreamError{Detail: detail, Err: err}
}

func UpstreamUnavailable(detail string, err error) error {
	return &UpstreamError{Detail: detail, Err: err, Unavailable: true}
}
