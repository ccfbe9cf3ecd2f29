package api

import (
	"errors"
	"fmt"
)

// DefaultRejectionMessage is used when the server rejects an upload with an
// empty body.
const DefaultRejectionMessage = "upload failed"

var (
	ErrInvalidPayload = errors.New("invalid response payload")
	ErrMissingJobID   = errors.New("job id is required")
)

// TransportError is a network-level failure: no HTTP response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerRejection is a non-2xx answer to an upload. Message is the response
// body verbatim.
type ServerRejection struct {
	StatusCode int
	Message    string
}

func (e *ServerRejection) Error() string {
	return e.Message
}

// StatusError is a non-2xx answer from one of the read endpoints. Those
// responses carry no structured error.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
