package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMissingCurrent reports a well-formed response without the "current"
// block. Callers treat this as a failed poll: nothing is published and the
// previous observation is retained.
var ErrMissingCurrent = errors.New(`response has no "current" data`)

// ErrMissingHourly is the forecast counterpart of ErrMissingCurrent.
var ErrMissingHourly = errors.New(`response has no "hourly" data`)

// DecodeError wraps a response body that could not be parsed as JSON.
// Unlike a transport failure, an unparseable body means previously
// published data can no longer be trusted, so callers clear their
// observation instead of retaining it.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode response: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError reports a non-200 response from the upstream. The API
// answered but refused, so callers retain their last observation rather
// than clearing it.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("marine API error: status %d", e.Code)
	}
	return fmt.Sprintf("marine API error: status %d: %s", e.Code, e.Body)
}

// failureKind buckets request errors for reason strings and metric labels.
type failureKind int

const (
	kindTransport failureKind = iota
	kindTimeout
	kindStatus
	kindDecode
	kindMissingData
)

func classifyError(err error) (failureKind, int) {
	var statusErr *StatusError
	var decodeErr *DecodeError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return kindTimeout, 0
	case errors.As(err, &netErr) && netErr.Timeout():
		return kindTimeout, 0
	case errors.As(err, &statusErr):
		return kindStatus, statusErr.Code
	case errors.As(err, &decodeErr):
		return kindDecode, 0
	case errors.Is(err, ErrMissingCurrent), errors.Is(err, ErrMissingHourly):
		return kindMissingData, 0
	default:
		return kindTransport, 0
	}
}

// FailureReason renders a request error as the short reason recorded on
// probe outcomes and transition events, e.g. "Timeout" or "HTTP 503".
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	kind, code := classifyError(err)
	switch kind {
	case kindTimeout:
		return "Timeout"
	case kindStatus:
		return fmt.Sprintf("HTTP %d", code)
	case kindDecode:
		return "DecodeError"
	case kindMissingData:
		return "MissingData"
	default:
		return "ConnectionError"
	}
}

// IsConnectivityError reports whether err means the upstream could not be
// reached or refused at the HTTP layer (timeout, non-200, transport), as
// opposed to answering with unusable data.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	kind, _ := classifyError(err)
	switch kind {
	case kindTimeout, kindStatus, kindTransport:
		return true
	default:
		return false
	}
}

// OutcomeLabel renders a request error as the low-cardinality outcome
// label used on fetch and probe counters. Nil maps to "ok".
func OutcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	kind, _ := classifyError(err)
	switch kind {
	case kindTimeout:
		return "timeout"
	case kindStatus:
		return "http_error"
	case kindDecode:
		return "decode_error"
	case kindMissingData:
		return "missing_data"
	default:
		return "transport"
	}
}
