package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 11, 8, 0, 0, 0, 0, time.UTC)
	l := NewRatelimiter(3, time.Second)
	l.now = func() time.Time { return now }
	l.lastTick = now

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "burst exhausted")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow(), "one token refilled")
	assert.False(t, l.Allow())

	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow(), "refill is capped at burst")
}

func TestNewRatelimiterDefaults(t *testing.T) {
	l := NewRatelimiter(0, 0)
	assert.Equal(t, burstLimit, l.burst)
	assert.Equal(t, refillRate, l.rate)
}
