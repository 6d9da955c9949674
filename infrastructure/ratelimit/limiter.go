// Package ratelimit throttles outbound requests per named provider.
// Each limiter tracks a sliding window of recent request timestamps plus
// the quota the provider last reported in its response headers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/forksync/forksync/domain"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour

	// fallbackSleep is used when a "rate limit exceeded" response carries
	// neither a reset nor a retry-after header.
	fallbackSleep = 60 * time.Second
)

// Config holds the static ceilings for one provider.
type Config struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MinInterval       time.Duration
}

// Limiter throttles requests for a single provider. All mutation of its
// state is serialized by one mutex; the mutex is never held while sleeping,
// so a waiting worker never blocks workers on other providers, nor other
// workers inspecting this provider's status.
type Limiter struct {
	name string
	cfg  Config

	mu          sync.Mutex
	timestamps  []time.Time
	lastRequest time.Time
	quota       domain.Quota

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Status is a read-only snapshot for diagnostics.
type Status struct {
	Provider           string
	RequestsLastMinute int
	RequestsLastHour   int
	SinceLastRequest   time.Duration
	Quota              domain.Quota
}

// NewLimiter creates a limiter for the given provider name.
func NewLimiter(name string, cfg Config) *Limiter {
	return &Limiter{
		name:  name,
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitIfNeeded blocks until issuing a request now would stay under the
// per-minute and per-hour ceilings and the minimum inter-request spacing.
// The new request timestamp is recorded before returning. The only error
// it can return is the context's.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)

		wait := l.requiredWait(now)
		if wait <= 0 {
			l.timestamps = append(l.timestamps, now)
			l.lastRequest = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		logger.Debugf("[%s] rate limit: waiting %s before next request", l.name, wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// requiredWait computes how long the caller must wait before a request is
// admissible. Caller holds the mutex.
func (l *Limiter) requiredWait(now time.Time) time.Duration {
	var wait time.Duration

	if l.cfg.MinInterval > 0 && !l.lastRequest.IsZero() {
		if d := l.lastRequest.Add(l.cfg.MinInterval).Sub(now); d > wait {
			wait = d
		}
	}
	if d := l.windowWait(now, minuteWindow, l.cfg.RequestsPerMinute); d > wait {
		wait = d
	}
	if d := l.windowWait(now, hourWindow, l.cfg.RequestsPerHour); d > wait {
		wait = d
	}
	return wait
}

// windowWait returns how long until the oldest offending timestamp falls
// out of the given window, or zero if the window has capacity.
func (l *Limiter) windowWait(now time.Time, window time.Duration, limit int) time.Duration {
	if limit <= 0 {
		return 0
	}
	cutoff := now.Add(-window)
	inWindow := 0
	var oldest time.Time
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			if inWindow == 0 {
				oldest = ts
			}
			inWindow++
		}
	}
	if inWindow < limit {
		return 0
	}
	return oldest.Add(window).Sub(now)
}

// prune drops timestamps older than the hour horizon. Caller holds the mutex.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-hourWindow)
	keep := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	l.timestamps = keep
}

// UpdateFromHeaders opportunistically records the quota a provider reported
// in its response headers. It never triggers a wait by itself.
func (l *Limiter) UpdateFromHeaders(h http.Header) {
	quota, ok := parseQuota(h, l.now())
	if !ok {
		return
	}
	l.mu.Lock()
	l.quota = quota
	l.mu.Unlock()
	logger.Debugf(
		"[%s] quota: %d/%d remaining, resets at %s",
		l.name, quota.Remaining, quota.Limit, quota.ResetAt.Format(time.RFC3339),
	)
}

// HandleRateLimitExceeded sleeps after a definitive "quota exceeded"
// response. The duration comes from, in priority order: the provider's
// reset header, an explicit Retry-After header, or a fixed fallback.
func (l *Limiter) HandleRateLimitExceeded(ctx context.Context, h http.Header) error {
	now := l.now()
	wait := fallbackSleep

	if quota, ok := parseQuota(h, now); ok && !quota.ResetAt.IsZero() {
		wait = quota.ResetAt.Sub(now)
		l.mu.Lock()
		l.quota = quota
		l.mu.Unlock()
	} else if retryAfter := h.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			wait = time.Duration(secs) * time.Second
		}
	}

	if wait < 0 {
		wait = 0
	}
	logger.Warnf("[%s] rate limit exceeded, sleeping %s", l.name, wait)
	return l.sleep(ctx, wait)
}

// Status returns current request counts and quota. Read-only.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := Status{Provider: l.name, Quota: l.quota}
	for _, ts := range l.timestamps {
		if ts.After(now.Add(-minuteWindow)) {
			st.RequestsLastMinute++
		}
		if ts.After(now.Add(-hourWindow)) {
			st.RequestsLastHour++
		}
	}
	if !l.lastRequest.IsZero() {
		st.SinceLastRequest = now.Sub(l.lastRequest)
	}
	return st
}
