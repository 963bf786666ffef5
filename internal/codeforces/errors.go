package codeforces

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrHandleNotFound means the platform does not know the handle.
	ErrHandleNotFound = errors.New("codeforces: handle not found")
	// ErrRateLimited means the platform refused the call for exceeding its call limit.
	ErrRateLimited = errors.New("codeforces: rate limited")
	// ErrUnavailable covers transport failures, 5xx answers and an open circuit breaker.
	ErrUnavailable = errors.New("codeforces: unavailable")
)

// APIError describes a failed call. Kind is one of the sentinel errors
// above, or nil when the failure does not fit any of them.
type APIError struct {
	Method     string
	StatusCode int
	Comment    string
	Kind       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("codeforces %s: status %d", e.Method, e.StatusCode)
	if e.Comment != "" {
		msg += ": " + e.Comment
	}
	if e.Kind != nil {
		msg += " (" + e.Kind.Error() + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// classify maps an HTTP status and envelope comment onto a sentinel error.
func classify(status int, comment string) error {
	lower := strings.ToLower(comment)
	switch {
	case strings.Contains(lower, "not found"):
		return ErrHandleNotFound
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable,
		strings.Contains(lower, "call limit exceeded"):
		return ErrRateLimited
	case status >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return nil
	}
}
