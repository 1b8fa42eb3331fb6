package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenBucketAllowBytes(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tb := newTokenBucket(1000, 100, clock.Now)

	assert.True(t, tb.AllowBytes(600))
	assert.True(t, tb.AllowBytes(400))
	assert.False(t, tb.AllowBytes(1))

	// Oversized bodies are never admitted
	assert.False(t, tb.AllowBytes(1001))
}

func TestTokenBucketRefill(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tb := newTokenBucket(1000, 100, clock.Now)

	assert.True(t, tb.AllowBytes(1000))
	assert.False(t, tb.AllowBytes(200))

	clock.Advance(2 * time.Second)
	assert.InDelta(t, 200, tb.Tokens(), 0.001)
	assert.True(t, tb.AllowBytes(200))

	// Refill never exceeds capacity
	clock.Advance(time.Hour)
	assert.InDelta(t, 1000, tb.Tokens(), 0.001)
}

func TestTokenBucketNoLimit(t *testing.T) {
	tb := NewTokenBucket(0, 0)
	assert.False(t, tb.Enabled())

	for i := 0; i < 100; i++ {
		assert.True(t, tb.AllowBytes(1<<20))
	}
}

func TestTokenBucketSetRate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tb := newTokenBucket(1000, 100, clock.Now)

	tb.SetRate(10, 1)
	assert.True(t, tb.Enabled())
	assert.InDelta(t, 10, tb.Tokens(), 0.001)
	assert.False(t, tb.AllowBytes(11))

	tb.SetRate(0, 0)
	assert.True(t, tb.AllowBytes(11))
}

func TestLimiterPerClient(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewLimiter(100, 10)
	l.now = clock.Now

	assert.True(t, l.AllowBytes("10.0.0.1", 100))
	assert.False(t, l.AllowBytes("10.0.0.1", 1))

	// Other clients have their own budget
	assert.True(t, l.AllowBytes("10.0.0.2", 100))

	clock.Advance(time.Second)
	assert.True(t, l.AllowBytes("10.0.0.1", 10))
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.False(t, l.Enabled())
	assert.True(t, l.AllowBytes("any", 1<<30))
	assert.Equal(t, float64(-1), l.Tokens("any"))
}

func TestLimiterEvictsRefilledBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewLimiter(100, 10) // empty bucket refills in 10s
	l.now = clock.Now

	for i := 0; i < 50; i++ {
		assert.True(t, l.AllowBytes(fmt.Sprintf("198.51.100.%d", i), 80))
	}
	assert.Equal(t, 50, l.Len())

	// Every bucket is full again after a refill period; the next access
	// sweeps them and only the new client remains.
	clock.Advance(10 * time.Second)
	assert.True(t, l.AllowBytes("192.0.2.1", 1))
	assert.Equal(t, 1, l.Len())
}

func TestLimiterKeepsDrainedBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l := NewLimiter(100, 1)
	l.now = clock.Now

	assert.True(t, l.AllowBytes("192.0.2.1", 100))
	clock.Advance(time.Minute) // 60 of 100 bytes back
	assert.True(t, l.AllowBytes("192.0.2.2", 1))
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.AllowBytes("192.0.2.1", 61))
}
