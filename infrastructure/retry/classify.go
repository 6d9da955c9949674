package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	gh "github.com/google/go-github/v66/github"
)

// transientError marks an error as retryable regardless of its concrete
// type. Used by layers (e.g. git command execution) whose failures carry
// no structured network error but are recognizably transient.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsRetryable reports it as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable classifies an error. Network-transport failures (resets,
// timeouts), provider throttling and HTTP 5xx responses are retryable;
// HTTP 4xx and everything else is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var marked *transientError
	if errors.As(err, &marked) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// Provider throttling surfaces as dedicated go-github error types.
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	if status, ok := httpStatus(err); ok {
		return status >= http.StatusInternalServerError
	}

	return false
}

// httpStatus extracts an HTTP status code from known API error types.
func httpStatus(err error) (int, bool) {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode, true
	}

	var statusErr interface{ HTTPStatus() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatus(), true
	}

	return 0, false
}

// HTTPError carries a bare status code for callers that talk HTTP without
// a typed client error.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus satisfies the status extraction in IsRetryable.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }
