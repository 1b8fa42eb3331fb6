package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket limits how many bytes may be admitted over time
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // bytes per second
	lastRefill time.Time
	enabled    bool
	now        func() time.Time
}

// NewTokenBucket creates a new token bucket rate limiter
// capacity: maximum burst in bytes
// refillRate: bytes added per second
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		enabled:    capacity > 0 && refillRate > 0,
		now:        now,
	}
}

// Enabled reports whether the bucket limits anything
func (tb *TokenBucket) Enabled() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.enabled
}

// AllowBytes admits a body of n bytes. A body larger than the capacity
// can never be admitted.
func (tb *TokenBucket) AllowBytes(n int) bool {
	return tb.AllowN(float64(n))
}

// AllowN checks if n tokens are available and takes them
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if !tb.enabled {
		return true
	}

	tb.refill()

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}

	return false
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}

	tb.lastRefill = now
}

// SetRate updates the rate limit parameters
func (tb *TokenBucket) SetRate(capacity, refillRate float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill() // Refill with old rate first

	tb.capacity = capacity
	tb.refillRate = refillRate
	tb.enabled = capacity > 0 && refillRate > 0

	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Tokens returns the number of bytes currently available
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// full reports whether the bucket would be at capacity at now, i.e. it is
// indistinguishable from a fresh bucket.
func (tb *TokenBucket) full(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.refillRate >= tb.capacity
}

const maxSweepInterval = time.Minute

// Limiter keeps one byte bucket per client. Buckets that have refilled to
// capacity are dropped, so the map only holds clients that are currently
// being limited.
type Limiter struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	buckets    map[string]*TokenBucket
	lastSweep  time.Time
	now        func() time.Time
}

// NewLimiter creates a per-client limiter. Zero capacity or refill rate
// disables limiting.
func NewLimiter(capacity, refillRate float64) *Limiter {
	return &Limiter{
		capacity:   capacity,
		refillRate: refillRate,
		buckets:    make(map[string]*TokenBucket),
		now:        time.Now,
	}
}

// Enabled reports whether the limiter rejects anything
func (l *Limiter) Enabled() bool {
	return l.capacity > 0 && l.refillRate > 0
}

// AllowBytes admits n bytes from client
func (l *Limiter) AllowBytes(client string, n int) bool {
	if !l.Enabled() {
		return true
	}
	return l.bucket(client).AllowBytes(n)
}

// Tokens returns the bytes available to client, or -1 when unlimited
func (l *Limiter) Tokens(client string) float64 {
	if !l.Enabled() {
		return -1
	}
	return l.bucket(client).Tokens()
}

// Len returns the number of clients with a tracked bucket
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucket(client string) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.sweepInterval() {
		l.sweep(now)
	}

	b, ok := l.buckets[client]
	if !ok {
		b = newTokenBucket(l.capacity, l.refillRate, l.now)
		l.buckets[client] = b
	}
	return b
}

// sweepInterval is how long an empty bucket takes to refill completely,
// capped at maxSweepInterval.
func (l *Limiter) sweepInterval() time.Duration {
	secs := l.capacity / l.refillRate
	if secs >= maxSweepInterval.Seconds() {
		return maxSweepInterval
	}
	return time.Duration(secs * float64(time.Second))
}

// sweep drops every bucket that is back at capacity. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	for client, b := range l.buckets {
		if b.full(now) {
			delete(l.buckets, client)
		}
	}
	l.lastSweep = now
}
