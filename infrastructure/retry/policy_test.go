package retry //nolint:testpackage // tests unexported clock injection

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	t.Run("should double the delay per attempt", func(t *testing.T) {
		t.Parallel()

		// given
		p := ExponentialBackoff{BaseDelay: 100 * time.Millisecond}

		// when / then
		assert.Equal(t, 100*time.Millisecond, p.Delay(1, 5))
		assert.Equal(t, 200*time.Millisecond, p.Delay(2, 5))
		assert.Equal(t, 400*time.Millisecond, p.Delay(3, 5))
		assert.Equal(t, 800*time.Millisecond, p.Delay(4, 5))
	})

	t.Run("should cap the delay at MaxDelay", func(t *testing.T) {
		t.Parallel()

		// given
		p := ExponentialBackoff{BaseDelay: time.Second, MaxDelay: 3 * time.Second}

		// when
		d := p.Delay(10, 10)

		// then
		assert.Equal(t, 3*time.Second, d)
	})

	t.Run("should scatter the delay within half and one-and-a-half when jittered", func(t *testing.T) {
		t.Parallel()

		// given
		p := ExponentialBackoff{BaseDelay: time.Second, Jitter: true}

		// when / then
		for range 100 {
			d := p.Delay(1, 3)
			assert.GreaterOrEqual(t, d, 500*time.Millisecond)
			assert.Less(t, d, 1500*time.Millisecond)
		}
	})

	t.Run("should stop retrying at the attempt ceiling", func(t *testing.T) {
		t.Parallel()

		// given
		p := ExponentialBackoff{BaseDelay: time.Millisecond}
		err := Transient(errors.New("boom"))

		// when / then
		assert.True(t, p.ShouldRetry(1, 3, err))
		assert.True(t, p.ShouldRetry(2, 3, err))
		assert.False(t, p.ShouldRetry(3, 3, err))
	})

	t.Run("should not retry a non-retryable error", func(t *testing.T) {
		t.Parallel()

		// given
		p := ExponentialBackoff{BaseDelay: time.Millisecond}

		// when / then
		assert.False(t, p.ShouldRetry(1, 3, errors.New("bad credentials")))
	})
}

func TestLinearBackoff(t *testing.T) {
	t.Parallel()

	t.Run("should grow the delay linearly", func(t *testing.T) {
		t.Parallel()

		// given
		p := LinearBackoff{BaseDelay: 100 * time.Millisecond}

		// when / then
		assert.Equal(t, 100*time.Millisecond, p.Delay(1, 5))
		assert.Equal(t, 200*time.Millisecond, p.Delay(2, 5))
		assert.Equal(t, 300*time.Millisecond, p.Delay(3, 5))
	})

	t.Run("should cap the delay at MaxDelay", func(t *testing.T) {
		t.Parallel()

		// given
		p := LinearBackoff{BaseDelay: time.Second, MaxDelay: 2 * time.Second}

		// when / then
		assert.Equal(t, 2*time.Second, p.Delay(5, 5))
	})
}

func TestTimeoutAwareBackoff(t *testing.T) {
	t.Parallel()

	t.Run("should retry while the budget allows the next delay", func(t *testing.T) {
		t.Parallel()

		// given
		p := NewTimeoutAwareBackoff(
			ExponentialBackoff{BaseDelay: time.Second},
			10*time.Second,
		)
		p.now = func() time.Time { return p.started.Add(2 * time.Second) }

		// when / then
		assert.True(t, p.ShouldRetry(1, 5, Transient(errors.New("boom"))))
	})

	t.Run("should refuse a retry that would exceed the budget", func(t *testing.T) {
		t.Parallel()

		// given
		p := NewTimeoutAwareBackoff(
			ExponentialBackoff{BaseDelay: time.Second},
			3*time.Second,
		)
		p.now = func() time.Time { return p.started.Add(2500 * time.Millisecond) }

		// when / then
		assert.False(t, p.ShouldRetry(1, 5, Transient(errors.New("boom"))))
	})

	t.Run("should still honor the attempt ceiling", func(t *testing.T) {
		t.Parallel()

		// given
		p := NewTimeoutAwareBackoff(
			ExponentialBackoff{BaseDelay: time.Millisecond},
			time.Hour,
		)

		// when / then
		assert.False(t, p.ShouldRetry(3, 3, Transient(errors.New("boom"))))
	})
}
