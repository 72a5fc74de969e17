package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff is an exponential delay policy. Zero fields take the defaults of
// DefaultBackoff.
type Backoff struct {
	// Initial is the wait before the first retry.
	Initial time.Duration
	// Max caps every wait.
	Max time.Duration
	// Factor multiplies the wait after each failed attempt.
	Factor float64
	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
}

// DefaultBackoff starts at 100ms and doubles up to 30s with 10% jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 100 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

func (b Backoff) normalized() Backoff {
	d := DefaultBackoff()
	if b.Initial <= 0 {
		b.Initial = d.Initial
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Factor < 1 {
		b.Factor = d.Factor
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = d.Jitter
	}
	return b
}

// Delay returns the wait after failed attempt n, counting from 1.
func (b Backoff) Delay(n int) time.Duration {
	b = b.normalized()
	if n < 1 {
		n = 1
	}
	wait := float64(b.Initial) * math.Pow(b.Factor, float64(n-1))
	if b.Jitter > 0 {
		wait += wait * b.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(min(max(wait, float64(b.Initial)/2), float64(b.Max)))
}

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts bounds the attempts, the first one included. Zero retries
	// until the context is done.
	MaxAttempts int
	// Backoff spaces the attempts.
	Backoff Backoff
	// RetryIf reports whether an error is worth another attempt. Defaults to
	// every error except context cancellation.
	RetryIf func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetryIf retries everything except context cancellation and expiry.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry calls fn until it succeeds, returns an error RetryIf rejects, runs
// out of attempts or ctx is done. It returns the last error of fn, or the
// context error when ctx ended the wait.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryIf(err) || (cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts) {
			return zero, err
		}

		wait := cfg.Backoff.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// RetryFunc is Retry for calls without a result.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
