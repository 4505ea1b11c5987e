package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Common errors returned by the client.
var (
	// ErrRequestTimeout is returned when a request exceeds the configured timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRequestCancelled is returned when a request is cancelled via its context.
	ErrRequestCancelled = errors.New("request cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassTimeout represents requests aborted by the timeout.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassNetwork represents connection-level failures.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Message    string
}

// Error implements the error interface. The message follows the backend's
// error envelope when one was present, otherwise it is derived from the
// HTTP status line.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// errorEnvelope is the error body shape the backend emits. Some endpoints
// use "error", older ones use "message".
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newAPIError builds an APIError from a non-2xx response body.
func newAPIError(statusCode int, status, endpoint string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Status:     status,
		Endpoint:   endpoint,
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		switch {
		case env.Error != "":
			apiErr.Message = env.Error
		case env.Message != "":
			apiErr.Message = env.Message
		}
	}

	return apiErr
}

// IsCancellation reports whether err resulted from the caller (or a
// controller's teardown) cancelling the request, as opposed to a real
// failure. Cancellations must not surface as user-visible errors.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrRequestCancelled) || errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err resulted from the request timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrRequestTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify categorizes an error for metrics and logging.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return ErrorClassServer
		}
		return ErrorClassClient
	}

	if IsTimeout(err) {
		return ErrorClassTimeout
	}

	return ErrorClassNetwork
}
