package server

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter is a per-connection token bucket: burst messages may arrive at
// once and the bucket refills completely every interval.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	perSecond := rate.Limit(float64(burst) / interval.Seconds())
	return &rateLimiter{limiter: rate.NewLimiter(perSecond, burst)}
}

func (rl *rateLimiter) allow() bool {
	return rl.limiter.Allow()
}
