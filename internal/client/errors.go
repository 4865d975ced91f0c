package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrClientStatus     = errors.New("client HTTP error (4xx)")
	ErrServerStatus     = errors.New("server HTTP error (5xx)")
	ErrOtherStatus      = errors.New("unexpected HTTP status")
	ErrRetriesExhausted = errors.New("request failed after all retries")
	ErrDecode           = errors.New("failed to decode response")
)

// RequestError is returned for a response with a non-2xx status.
type RequestError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

func (e *RequestError) Unwrap() error {
	switch {
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrClientStatus
	case e.StatusCode >= 500:
		return ErrServerStatus
	default:
		return ErrOtherStatus
	}
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
