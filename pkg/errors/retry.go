package errors

import (
	"context"
	"time"
)

// FileRetry controls how a local file system operation is retried.
// The delay doubles after every failed attempt.
type FileRetry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultFileRetry is used when moving session metadata into place.
var DefaultFileRetry = FileRetry{Attempts: 5, Delay: 10 * time.Millisecond}

// RetryFileOp runs op until it succeeds, returns an error that is not
// retryable, or cfg.Attempts is used up. ctx only cuts the waits short;
// an attempt already running is never abandoned.
func RetryFileOp(ctx context.Context, cfg FileRetry, op func() error) error {
	attempts := max(cfg.Attempts, 1)
	delay := cfg.Delay

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			return Wrapf(err, "giving up after %d attempts", attempts)
		}

		select {
		case <-ctx.Done():
			return Wrapf(err, "cancelled after attempt %d", attempt)
		case <-time.After(delay):
		}
		delay *= 2
	}
}
