package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rateLimiter is the fixed-window per-key fallback used when no redis
// address is configured. State is process-local.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count int
	reset time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rateBucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.reset) {
		l.buckets[key] = &rateBucket{count: 1, reset: now.Add(l.window)}
		l.prune(now)
		return true
	}
	if bucket.count >= l.limit {
		return false
	}
	bucket.count++
	return true
}

func (l *rateLimiter) prune(now time.Time) {
	if len(l.buckets) < 10000 {
		return
	}
	for key, bucket := range l.buckets {
		if now.After(bucket.reset) {
			delete(l.buckets, key)
		}
	}
}

// returnRateLimit throttles per client IP, through the shared redis
// token bucket when configured, the process-local limiter otherwise. A
// redis failure lets the request through rather than blocking returns.
func (s *Server) returnRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if s.returnLimiter.Enabled() {
			allowed, err := s.returnLimiter.Allow(c.Request.Context(), ip)
			if err != nil {
				s.log.Warn("rate limiter unavailable", zap.Error(err))
				c.Next()
				return
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Reason: "rate_limited"})
				return
			}
			c.Next()
			return
		}
		if !s.fallbackReturnLimiter.allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Reason: "rate_limited"})
			return
		}
		c.Next()
	}
}
