// Package retry drives transient-failure recovery for outbound backend
// calls: exponential backoff with jitter, status-code classification, and
// an optional overall deadline.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/bascanada/loggate/pkg/errs"
)

// Policy configures the retry loop. Immutable once constructed; one policy
// may be shared across many concurrent calls.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	JitterFactor   float64 // in [0,1]

	RetryableStatus    map[int]bool
	NonRetryableStatus map[int]bool
}

// DefaultPolicy retries server errors and rate limiting, never client or
// auth failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:         3,
		InitialBackoff:     time.Second,
		MaxBackoff:         30 * time.Second,
		Multiplier:         2.0,
		JitterFactor:       0.3,
		RetryableStatus:    statusSet(408, 429, 500, 502, 503, 504),
		NonRetryableStatus: statusSet(400, 401, 403, 404),
	}
}

func statusSet(codes ...int) map[int]bool {
	s := make(map[int]bool, len(codes))
	for _, c := range codes {
		s[c] = true
	}
	return s
}

// Backoff computes the delay before retrying after attempt n (0-indexed):
// min(initial * multiplier^n, max) plus a fresh jitter draw.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if max := float64(p.MaxBackoff); delay > max {
		delay = max
	}
	delay += delay * p.JitterFactor * rand.Float64()
	return time.Duration(delay)
}

// ShouldRetry classifies one failure. Non-retryable status wins over
// retryable; connection errors and timeouts without a meaningful status are
// retryable; anything unclassified is not, on the principle that an error
// that will deterministically recur should fail fast.
func (p Policy) ShouldRetry(err error) bool {
	if status := errs.StatusCode(err); status != 0 {
		if p.NonRetryableStatus[status] {
			return false
		}
		if p.RetryableStatus[status] {
			return true
		}
	}

	var authErr *errs.AuthenticationError
	if errors.As(err, &authErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Do executes op up to MaxRetries+1 times, sleeping between attempts. On
// exhaustion or a non-retryable failure the last underlying error is
// returned unchanged so the caller can inspect the real cause.
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.ShouldRetry(err) {
			logger.Warn("not retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			return zero, err
		}
		if attempt >= policy.MaxRetries {
			logger.Error("all retry attempts exhausted",
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return zero, err
		}

		delay := policy.Backoff(attempt)
		logger.Warn("retrying after backoff",
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, lastErr
}

// DoWithTimeout wraps the entire retry loop, sleeps included, in one
// overall deadline. When the deadline elapses before a terminal state the
// caller receives a *errs.TimeoutError distinct from the operation's own
// failures, and no further attempt starts.
func DoWithTimeout[T any](ctx context.Context, policy Policy, timeout time.Duration, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := Do(ctx, policy, logger, op)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
		var zero T
		return zero, &errs.TimeoutError{Timeout: timeout}
	}
	return result, err
}
