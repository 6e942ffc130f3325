package backend

import "fmt"

// TransportError means no HTTP response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) NoResponse() bool { return true }

// StatusError is a response with a non-success status, or a success status
// whose body reports a rejection.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s response status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) NoResponse() bool { return false }

// DecodeError is a success response whose body is not what the call expects.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parse %s response failed: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) NoResponse() bool { return false }
