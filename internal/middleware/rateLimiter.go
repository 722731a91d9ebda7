package middleware

import (
	"sync"
	"time"
)

const (
	burstLimit = 5
	refillRate = 500 * time.Millisecond
)

// RateLimiter is a token bucket: one token every rate, at most burst stored.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	burst    int
	rate     time.Duration
	lastTick time.Time
	now      func() time.Time
}

func NewRatelimiter(burst int, rate time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = burstLimit
	}
	if rate <= 0 {
		rate = refillRate
	}
	return &RateLimiter{
		tokens:   burst,
		burst:    burst,
		rate:     rate,
		lastTick: time.Now(),
		now:      time.Now,
	}
}

func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if generated := int(now.Sub(l.lastTick) / l.rate); generated > 0 {
		l.tokens = min(l.tokens+generated, l.burst)
		l.lastTick = l.lastTick.Add(time.Duration(generated) * l.rate)
	}

	if l.tokens <= 0 {
		return false
	}
	l.tokens--
	return true
}
