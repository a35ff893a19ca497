package veco

import (
	"errors"
	"fmt"
)

// Cause classifies the transport-level origin of a RequestError so callers
// can branch on structure instead of matching message text.
type Cause int

const (
	CauseUnknown Cause = iota
	CauseDNS
	CauseTimeout
	CauseConnection
	CauseHTTP
)

func (c Cause) String() string {
	switch c {
	case CauseDNS:
		return "dns"
	case CauseTimeout:
		return "timeout"
	case CauseConnection:
		return "connection"
	case CauseHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// RequestError is a transient transport or HTTP-level failure. It is
// retryable inside polling loops during role transitions.
type RequestError struct {
	Op     string
	Cause  Cause
	Status int // HTTP status, set when Cause == CauseHTTP
	Err    error
}

func (e *RequestError) Error() string {
	if e.Cause == CauseHTTP {
		return fmt.Sprintf("request %s failed: http status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("request %s failed (%s): %v", e.Op, e.Cause, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ResponseEmptyError indicates the remote returned no payload. Expected while
// the node restarts internal services mid-transition; fatal elsewhere.
type ResponseEmptyError struct {
	Op string
}

func (e *ResponseEmptyError) Error() string {
	return fmt.Sprintf("empty response from %s", e.Op)
}

// ReplicationError is a fault raised by the remote replication subsystem.
// Retryable during role-change polling.
type ReplicationError struct {
	Op      string
	Code    string
	Message string
}

func (e *ReplicationError) Error() string {
	return fmt.Sprintf("replication error from %s: %s: %s", e.Op, e.Code, e.Message)
}

// ResponseError is an API-level rejection that is not replication specific.
// Not retryable.
type ResponseError struct {
	Op      string
	Code    string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s rejected: %s: %s", e.Op, e.Code, e.Message)
}

// NoSuchUserError is returned by GetUserID when the named operator user does
// not exist. Callers treat it as "create instead of recreate", not a failure.
type NoSuchUserError struct {
	Username string
}

func (e *NoSuchUserError) Error() string {
	return fmt.Sprintf("no such operator user %q", e.Username)
}

// PropertyNotFoundError is returned by GetSystemProperty for an unknown
// property name. Callers treat it as "create instead of update".
type PropertyNotFoundError struct {
	Name string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("system property %q not found", e.Name)
}

// IsTransient reports whether err is one of the error kinds that are expected
// during mid-transition instability and safe to retry until a deadline.
func IsTransient(err error) bool {
	var req *RequestError
	var empty *ResponseEmptyError
	var repl *ReplicationError
	return errors.As(err, &req) || errors.As(err, &empty) || errors.As(err, &repl)
}
