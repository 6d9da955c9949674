// Package retry provides backoff policies and a wrapper that runs an
// operation under one, retrying transient failures.
package retry

import (
	"math/rand"
	"time"
)

// Policy decides how long to wait before a retry and whether an error is
// worth retrying at all.
type Policy interface {
	// Delay returns the wait before the given 1-based attempt is retried.
	Delay(attempt, maxAttempts int) time.Duration

	// ShouldRetry reports whether the attempt should be retried. An
	// attempt at or beyond maxAttempts is never retried.
	ShouldRetry(attempt, maxAttempts int, err error) bool
}

// ExponentialBackoff doubles the delay on every attempt, capped at
// MaxDelay. With Jitter enabled the delay is scattered symmetrically by
// ±50% so concurrent workers do not retry in lockstep.
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    bool
}

func (p ExponentialBackoff) Delay(attempt, _ int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		//nolint:gosec // jitter does not need cryptographic randomness
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	return d
}

func (p ExponentialBackoff) ShouldRetry(attempt, maxAttempts int, err error) bool {
	return attempt < maxAttempts && IsRetryable(err)
}

// LinearBackoff grows the delay by BaseDelay per attempt, capped at MaxDelay.
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p LinearBackoff) Delay(attempt, _ int) time.Duration {
	d := p.BaseDelay * time.Duration(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p LinearBackoff) ShouldRetry(attempt, maxAttempts int, err error) bool {
	return attempt < maxAttempts && IsRetryable(err)
}

// TimeoutAwareBackoff behaves like ExponentialBackoff but refuses further
// retries once the cumulative elapsed time since construction would exceed
// Timeout.
type TimeoutAwareBackoff struct {
	ExponentialBackoff
	Timeout time.Duration

	started time.Time
	now     func() time.Time
}

// NewTimeoutAwareBackoff creates a timeout-aware policy whose clock starts
// now. A policy value is scoped to a single wrapped call.
func NewTimeoutAwareBackoff(base ExponentialBackoff, timeout time.Duration) *TimeoutAwareBackoff {
	return &TimeoutAwareBackoff{
		ExponentialBackoff: base,
		Timeout:            timeout,
		started:            time.Now(),
		now:                time.Now,
	}
}

func (p *TimeoutAwareBackoff) ShouldRetry(attempt, maxAttempts int, err error) bool {
	if !p.ExponentialBackoff.ShouldRetry(attempt, maxAttempts, err) {
		return false
	}
	elapsed := p.now().Sub(p.started)
	return elapsed+p.ExponentialBackoff.Delay(attempt, maxAttempts) < p.Timeout
}
