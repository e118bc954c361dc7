package owm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLoading is published once when a Poller starts, before any response has arrived.
	ErrLoading = errors.New("loading...")

	// ErrCircuitOpen is published instead of issuing a request while the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// StatusError reports a non-200 response from the weather endpoint.
// Its text is the HTTP status description, e.g. "404 Not Found".
type StatusError struct {
	Code   int
	Status string
}

func newStatusError(resp *http.Response) *StatusError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &StatusError{Code: resp.StatusCode, Status: status}
}

func (e *StatusError) Error() string {
	return e.Status
}

// DecodeError reports a response body that does not match the expected record shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
