package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures once, at the transport boundary.
// Everything above the transport matches on Kind instead of inspecting
// status codes or error shapes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// APIError is the tagged error produced by the HTTP transport for any
// non-2xx response or network failure.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status, 0 for network failures
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the ErrorKind from err, or KindUnknown when err is not an
// APIError.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsAuthFailure reports whether err is the class of identity-fetch failure
// that invalidates a stored token (401, 403 or 404 from the backend).
func IsAuthFailure(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindForbidden, KindNotFound:
		return true
	}
	return false
}
