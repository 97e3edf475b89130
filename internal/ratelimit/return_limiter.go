package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/ferkcore/topadel/internal/config"
)

const keyReturnClient = "ratelimit:return:%s"

// ReturnLimiter throttles the payment return endpoint per client IP.
// A nil limiter means redis is not configured; callers fall back to a
// process-local limiter.
type ReturnLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewReturnLimiter(cfg config.Config) (*ReturnLimiter, error) {
	limitCfg := cfg.RateLimit
	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}
	if limitCfg.ReturnRate <= 0 || limitCfg.ReturnBurst <= 0 {
		return nil, errors.New("return rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ReturnLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.ReturnRate,
		burst:  limitCfg.ReturnBurst,
	}, nil
}

func (l *ReturnLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *ReturnLimiter) Allow(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyReturnClient, strings.TrimSpace(clientIP)), l.rate, l.burst)
}
