package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amoako419/PhotoShare/pkg/config"
)

func TestMemoryLimiterEnforcesHourlyWindow(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{HourlyMax: 3, DailyMax: 100})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "validate_code", "10.0.0.1")
		require.NoError(t, err, "attempt %d should pass", i+1)
	}

	retryAfter, err := limiter.Allow(ctx, "validate_code", "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Hour)
}

func TestMemoryLimiterEnforcesDailyWindow(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{HourlyMax: 100, DailyMax: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, "signup", "10.0.0.2")
		require.NoError(t, err)
	}

	retryAfter, err := limiter.Allow(ctx, "signup", "10.0.0.2")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.LessOrEqual(t, retryAfter, 24*time.Hour)
}

func TestMemoryLimiterZeroMaxRejectsFirstRequest(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{HourlyMax: 0, DailyMax: 10})

	_, err := limiter.Allow(context.Background(), "signup", "10.0.0.9")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestMemoryLimiterSeparatesKeys(t *testing.T) {
	limiter := NewMemoryLimiter(&config.RateLimitConfig{HourlyMax: 1, DailyMax: 10})
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "signup", "10.0.0.3")
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, "signup", "10.0.0.4")
	require.NoError(t, err, "a different caller has its own window")
	_, err = limiter.Allow(ctx, "branding", "10.0.0.3")
	require.NoError(t, err, "a different operation has its own window")

	_, err = limiter.Allow(ctx, "signup", "10.0.0.3")
	assert.ErrorIs(t, err, ErrRateLimited)
}
