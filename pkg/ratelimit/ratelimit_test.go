package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(max int, window time.Duration) (*SlidingWindow, *time.Time) {
	l := New(max, window)
	l.Stop()
	clock := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowUpToCap(t *testing.T) {
	l, _ := newTestLimiter(10, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(1), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow(1), "11th request should be denied")
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(10, time.Minute)

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(1))
		*clock = clock.Add(time.Second)
	}
	assert.False(t, l.Allow(1))

	// 51 seconds later the first hit falls out of the window.
	*clock = clock.Add(51 * time.Second)
	assert.True(t, l.Allow(1))
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute)

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))

	assert.True(t, l.Allow(2))
}

func TestEvictIdle(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)

	l.Allow(1)
	l.Allow(2)
	assert.Equal(t, 2, l.Keys())

	*clock = clock.Add(30 * time.Second)
	l.Allow(2)

	*clock = clock.Add(45 * time.Second)
	l.evictIdle()

	// Key 1's last hit is 75s old, key 2's is 45s old.
	assert.Equal(t, 1, l.Keys())
	assert.True(t, l.Allow(1))
}

func TestDeniedAttemptNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))

	// Exactly one window after the accepted hit, capacity is back even
	// though a denied attempt happened in between.
	*clock = clock.Add(time.Minute + time.Millisecond)
	assert.True(t, l.Allow(1))
}
