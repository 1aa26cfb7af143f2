package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bascanada/loggate/pkg/errs"
)

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	p.JitterFactor = 0
	return p
}

func backendErr(status int) error {
	return &errs.BackendError{Backend: "kibana", Status: status, Message: "boom"}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastPolicy(), zaptest.NewLogger(t), func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
}

func TestDoRecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), fastPolicy(), zaptest.NewLogger(t), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, backendErr(503)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), zaptest.NewLogger(t), func(context.Context) (int, error) {
		attempts++
		return 0, backendErr(400)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 400, errs.StatusCode(err))
}

func TestDoExhaustsRetries(t *testing.T) {
	policy := fastPolicy()
	policy.MaxRetries = 2

	attempts := 0
	_, err := Do(context.Background(), policy, zaptest.NewLogger(t), func(context.Context) (int, error) {
		attempts++
		return 0, backendErr(503)
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	// The last underlying error comes back unchanged.
	assert.Equal(t, 503, errs.StatusCode(err))
}

func TestDoHonorsContextCancellation(t *testing.T) {
	policy := fastPolicy()
	policy.InitialBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, policy, zaptest.NewLogger(t), func(context.Context) (int, error) {
		return 0, backendErr(503)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithTimeout(t *testing.T) {
	policy := fastPolicy()
	policy.InitialBackoff = time.Minute

	_, err := DoWithTimeout(context.Background(), policy, 20*time.Millisecond, zaptest.NewLogger(t), func(context.Context) (int, error) {
		return 0, backendErr(503)
	})
	var timeoutErr *errs.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
}

func TestShouldRetryClassification(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.ShouldRetry(backendErr(503)))
	assert.True(t, policy.ShouldRetry(backendErr(429)))
	assert.False(t, policy.ShouldRetry(backendErr(400)))
	assert.False(t, policy.ShouldRetry(backendErr(404)))
	assert.False(t, policy.ShouldRetry(errs.NewAuthentication("kibana")))
	assert.True(t, policy.ShouldRetry(context.DeadlineExceeded))
	assert.False(t, policy.ShouldRetry(errors.New("parse failure")))
	assert.False(t, policy.ShouldRetry(fmt.Errorf("wrapped: %w", backendErr(401))))
}

func TestBackoffGrowthAndCap(t *testing.T) {
	policy := Policy{
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFactor:   0,
	}

	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
	assert.Equal(t, 10*time.Second, policy.Backoff(5))
}

func TestBackoffJitterBounds(t *testing.T) {
	policy := Policy{
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		Multiplier:     2.0,
		JitterFactor:   0.3,
	}

	for i := 0; i < 50; i++ {
		d := policy.Backoff(0)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 1300*time.Millisecond)
	}
}
