package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferkcore/topadel/internal/config"
)

func TestNewReturnLimiterWithoutRedis(t *testing.T) {
	limiter, err := NewReturnLimiter(config.Config{})
	require.NoError(t, err)
	require.Nil(t, limiter)

	assert.False(t, limiter.Enabled())
	allowed, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, allowed, "disabled limiter lets everything through")
}

func TestNewReturnLimiterRejectsBadBudget(t *testing.T) {
	_, err := NewReturnLimiter(config.Config{
		RateLimit: config.RateLimitConfig{RedisAddr: "localhost:6379", ReturnRate: 0, ReturnBurst: 60},
	})
	require.Error(t, err)
}

func TestTokenBucketGuards(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.Error(t, err)

	assert.Nil(t, NewTokenBucket(nil))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, bucketTTL(1, 60))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}
