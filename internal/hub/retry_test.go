package hub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/hub"
)

var errNonRetryable = errors.New("non-retryable error")

func fastRetry(attempts int) hub.RetryConfig {
	return hub.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_SuccessAfterRetry(t *testing.T) {
	t.Parallel()
	attempts := 0
	result, err := hub.Retry(context.Background(), fastRetry(4), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", hub.ErrRetryable
		}
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableError(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := hub.Retry(context.Background(), fastRetry(4), func() (string, error) {
		attempts++
		return "", errNonRetryable
	})

	require.ErrorIs(t, err, errNonRetryable)
	assert.Equal(t, 1, attempts)
}

func TestRetry_MaxAttempts(t *testing.T) {
	t.Parallel()
	attempts := 0
	_, err := hub.Retry(context.Background(), fastRetry(2), func() (string, error) {
		attempts++
		return "", hub.ErrRateLimited
	})

	require.ErrorIs(t, err, hub.ErrRateLimited)
	assert.Equal(t, 2, attempts)
}

func TestRetry_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := hub.RetryConfig{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	attempts := 0

	_, err := hub.Retry(ctx, cfg, func() (string, error) {
		attempts++
		cancel()
		return "", hub.ErrRetryable
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, hub.IsRetryable(hub.ErrRetryable))
	assert.True(t, hub.IsRetryable(hub.ErrRateLimited))
	assert.True(t, hub.IsRetryable(context.DeadlineExceeded))
	assert.True(t, hub.IsRetryable(hub.WrapRetryable(errNonRetryable)))

	assert.False(t, hub.IsRetryable(errNonRetryable))
	assert.False(t, hub.IsRetryable(nil))
	assert.NoError(t, hub.WrapRetryable(nil))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header   string
		expected time.Duration
	}{
		{"5", 5 * time.Second},
		{"0", 0},
		{"", 0},
		{"-3", 0},
		{"invalid", 0},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.expected, hub.ParseRetryAfter(tt.header))
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()
	rl := hub.NewRateLimiter(10, 2)

	assert.True(t, rl.Allow("put"))
	assert.True(t, rl.Allow("put"))
	assert.False(t, rl.Allow("put"))

	// Endpoints are limited independently.
	assert.True(t, rl.Allow("get"))
}

func TestRateLimiter_Unlimited(t *testing.T) {
	t.Parallel()
	rl := hub.NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("get"))
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()
	rl := hub.NewRateLimiter(0.001, 1)
	require.True(t, rl.Allow("put"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, rl.Wait(ctx, "put"))
}
