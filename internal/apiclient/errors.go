package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable wraps transport failures: DNS, refused connections,
// timeouts.
var ErrUnavailable = errors.New("tenant api unavailable")

// StatusError is a non-2xx answer from the tenant API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Rejected is true when the API was reachable and refused the payload.
func (e *StatusError) Rejected() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// DecodeError means the API answered 2xx with a body we could not parse.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsFallbackable reports whether the caller should switch to local data.
// Validation rejections and caller cancellation are not.
func IsFallbackable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Rejected()
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return true
	}
	return errors.Is(err, ErrUnavailable)
}

// Reason renders err as the short fallback_reason string sent to clients.
func Reason(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return fmt.Sprintf("api status %d", statusErr.StatusCode)
	case errors.Is(err, ErrUnavailable):
		return "api unavailable"
	default:
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return "api response unreadable"
		}
		return "api error"
	}
}
