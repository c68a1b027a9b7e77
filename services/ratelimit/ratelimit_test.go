package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.nowFunc = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", 3, time.Minute), "hit %d", i+1)
	}
	assert.False(t, l.Allow("1.2.3.4", 3, time.Minute))
	assert.True(t, l.Allow("5.6.7.8", 3, time.Minute), "keys are independent")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, l.Allow("1.2.3.4", 3, time.Minute), "new window")

	assert.True(t, l.Allow("", 1, time.Minute), "empty key is never limited")
	assert.True(t, l.Allow("x", 0, time.Minute), "no limit")
}

func TestNilRedisLimiterAllows(t *testing.T) {
	var l *RedisLimiter
	assert.Nil(t, NewRedisLimiter(nil))
	assert.True(t, l.Allow("key", 1, time.Minute))
}
