package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/vibe-cli/vibe/internal/errors"
)

// Retrier wraps a Provider with bounded retry on transient failures.
// Permanent failures (auth, invalid request) surface immediately.
type Retrier struct {
	inner       Provider
	maxAttempts int
	backoff     time.Duration
	sleep       func(time.Duration) // test seam
}

// NewRetrier wraps p. maxAttempts counts total attempts, not retries;
// backoff is the first delay and doubles after each transient failure.
func NewRetrier(p Provider, maxAttempts int, backoff time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Retrier{
		inner:       p,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       time.Sleep,
	}
}

func (r *Retrier) Name() string         { return r.inner.Name() }
func (r *Retrier) DefaultModel() string { return r.inner.DefaultModel() }

// Generate calls the wrapped provider, retrying transient failures with
// exponential backoff. Context expiry during an attempt counts as
// transient; context expiry between attempts aborts.
func (r *Retrier) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt < r.maxAttempts {
			slog.Debug("retrying generation",
				"provider", r.inner.Name(),
				"attempt", attempt,
				"delay", delay,
				"error", err)
			r.sleep(delay)
			delay *= 2
		}
	}
	return nil, lastErr
}

// Stream is not retried: a stream is consumed as it arrives, so a
// mid-stream failure cannot be replayed transparently.
func (r *Retrier) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return r.inner.Stream(ctx, req)
}
