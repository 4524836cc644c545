package assist

import (
	"context"
	"errors"
	"time"

	"portforge/internal/logger"
)

// Retrier wraps a Client with a per-invocation timeout and bounded
// exponential backoff for transient faults. Refusals and caller
// cancellation pass through untouched.
type Retrier struct {
	Client    Client
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration

	// sleep can be replaced in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a Retrier with the given policy. Attempts is the
// total number of tries, not the number of retries.
func NewRetrier(c Client, attempts int, base, max, timeout time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{
		Client:    c,
		Attempts:  attempts,
		BaseDelay: base,
		MaxDelay:  max,
		Timeout:   timeout,
		sleep:     sleepCtx,
	}
}

// Convert invokes the wrapped client, retrying transient faults up to
// the configured attempt count. A timed-out invocation counts as a
// transient fault.
func (r *Retrier) Convert(ctx context.Context, messages []Message) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		raw, err := r.convertOnce(ctx, messages)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if errors.Is(err, ErrRefusal) {
			return "", err
		}
		if ctx.Err() != nil {
			// Caller gave up; don't mask that as an assistant fault.
			return "", ctx.Err()
		}
		if attempt == r.Attempts {
			break
		}

		wait := r.backoff(attempt)
		logger.Warn("invocation attempt %d/%d failed (%v), retrying in %s", attempt, r.Attempts, err, wait)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (r *Retrier) convertOnce(ctx context.Context, messages []Message) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Client.Convert(ctx, messages)
}

// backoff returns the delay before the next attempt: base doubled per
// completed attempt, capped at MaxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	if attempt <= 0 || r.BaseDelay <= 0 {
		return 0
	}
	wait := r.BaseDelay * time.Duration(1<<uint(attempt-1))
	if r.MaxDelay > 0 && wait > r.MaxDelay {
		return r.MaxDelay
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
