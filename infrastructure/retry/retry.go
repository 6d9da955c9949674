package retry

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Do runs op under the given policy, retrying failures the policy accepts.
// The delay between attempts is cancellable through ctx; the loop itself
// never swallows the original error: on give-up the error of the last
// attempt is returned unchanged. A maxAttempts below one runs op once.
func Do(ctx context.Context, policy Policy, maxAttempts int, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !policy.ShouldRetry(attempt, maxAttempts, err) {
			return err
		}

		delay := policy.Delay(attempt, maxAttempts)
		logger.Debugf(
			"attempt %d/%d failed (%v), retrying in %s",
			attempt, maxAttempts, err, delay,
		)
		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			// Cancelled while waiting; the caller cares about the
			// cancellation, not the attempt that preceded it.
			return sleepErr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Still honor an already-cancelled context.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
