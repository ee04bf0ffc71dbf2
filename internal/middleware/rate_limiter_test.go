package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(60)
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		assert.True(t, rl.allow("10.0.0.1", now))
	}
	assert.False(t, rl.allow("10.0.0.1", now))
	assert.True(t, rl.allow("10.0.0.2", now))
	assert.True(t, rl.allow("10.0.0.1", now.Add(time.Second)))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		assert.True(t, rl.allow("10.0.0.1", now))
	}
}

func TestRateLimiterPurge(t *testing.T) {
	rl := NewRateLimiter(10)
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	rl.allow("10.0.0.1", now)
	rl.allow("10.0.0.2", now.Add(9*time.Minute))

	assert.Equal(t, 1, rl.purge(now.Add(11*time.Minute)))
	assert.Len(t, rl.visitors, 1)
}
