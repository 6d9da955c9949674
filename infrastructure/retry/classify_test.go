package retry //nolint:testpackage // shares the policy test helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"testing"

	gh "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
)

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"marked transient", Transient(errors.New("git fetch failed")), true},
		{"wrapped transient", fmt.Errorf("sync: %w", Transient(errors.New("boom"))), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"cancellation", context.Canceled, false},
		{"network timeout", timeoutNetError{}, true},
		{"connection reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"broken pipe", syscall.EPIPE, true},
		{"unexpected EOF", io.ErrUnexpectedEOF, true},
		{"github rate limit", &gh.RateLimitError{}, true},
		{"github abuse detection", &gh.AbuseRateLimitError{}, true},
		{"http 500", &HTTPError{StatusCode: http.StatusInternalServerError}, true},
		{"http 503", &HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{"http 404", &HTTPError{StatusCode: http.StatusNotFound}, false},
		{"http 401", &HTTPError{StatusCode: http.StatusUnauthorized}, false},
		{"plain error", errors.New("merge conflict"), false},
	}

	for _, test := range tests {
		t.Run("should classify "+test.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, test.want, IsRetryable(test.err))
		})
	}
}

func TestTransient(t *testing.T) {
	t.Parallel()

	t.Run("should preserve the original error message and chain", func(t *testing.T) {
		t.Parallel()

		// given
		inner := errors.New("remote hung up unexpectedly")

		// when
		wrapped := Transient(inner)

		// then
		assert.Equal(t, inner.Error(), wrapped.Error())
		assert.ErrorIs(t, wrapped, inner)
	})

	t.Run("should pass nil through unchanged", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, Transient(nil))
	})
}
