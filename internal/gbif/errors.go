package gbif

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy surfaced to callers. Match with errors.Is.
var (
	// ErrUpstreamUnreachable covers DNS, connect, reset and timeout failures
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstreamError covers non-success statuses and malformed bodies
	ErrUpstreamError = errors.New("upstream error")
	// ErrInvalidInput is a violated precondition (empty name, non-positive cap)
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError describes a failed upstream call
type UpstreamError struct {
	Endpoint   string
	StatusCode int           // 0 when no response was received
	RetryAfter time.Duration // parsed from Retry-After on 429
	Err        error

	kind error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Endpoint, e.kind)
	}
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause
func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.Err}
}

func unreachable(endpoint string, err error) error {
	return &UpstreamError{Endpoint: endpoint, Err: err, kind: ErrUpstreamUnreachable}
}

func badStatus(endpoint string, status int, retryAfter time.Duration) error {
	return &UpstreamError{Endpoint: endpoint, StatusCode: status, RetryAfter: retryAfter, kind: ErrUpstreamError}
}

func malformed(endpoint string, err error) error {
	return &UpstreamError{Endpoint: endpoint, Err: err, kind: ErrUpstreamError}
}
