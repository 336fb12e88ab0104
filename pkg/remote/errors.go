// Package remote implements the HTTP client for the external workflow
// automation platform's template store.
package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Remote failure classes. Auth and permission failures are fatal for a sync
// run; rate limiting is the only class callers should retry.
var (
	// ErrUnauthorized indicates the API credentials were rejected (HTTP 401).
	ErrUnauthorized = errors.New("remote authentication failed")

	// ErrForbidden indicates the credentials lack access to the resource (HTTP 403).
	ErrForbidden = errors.New("remote permission denied")

	// ErrRateLimited indicates the platform throttled the request (HTTP 429).
	ErrRateLimited = errors.New("remote rate limited")

	// ErrTemplateNotFound indicates the referenced template does not exist remotely.
	ErrTemplateNotFound = errors.New("remote template not found")
)

// APIError carries the raw response context for unstructured remote failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote API error (status %d): %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("remote API error (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a response status to the failure taxonomy. The message
// is the raw response body, kept so unknown failures surface with full
// context.
func classifyStatus(statusCode int, message string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return &APIError{StatusCode: statusCode, Message: message, Err: ErrUnauthorized}
	case http.StatusForbidden:
		return &APIError{StatusCode: statusCode, Message: message, Err: ErrForbidden}
	case http.StatusTooManyRequests:
		return &APIError{StatusCode: statusCode, Message: message, Err: ErrRateLimited}
	case http.StatusNotFound:
		return &APIError{StatusCode: statusCode, Message: message, Err: ErrTemplateNotFound}
	default:
		return &APIError{StatusCode: statusCode, Message: message}
	}
}

// IsRetryable reports whether the error is transient and worth retrying with
// backoff. Only rate limiting qualifies; every other remote failure is
// terminal for the item.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsFatal reports whether the error should abort the whole run rather than
// just the current item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
