package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newFakeBucket(capacity int, period time.Duration) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tb := NewTokenBucket(capacity, period)
	tb.now = clock.Now
	tb.lastRefill = clock.Now()
	return tb, clock
}

func TestTokenBucket(t *testing.T) {
	tb, clock := newFakeBucket(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow())

	clock.Advance(time.Second)
	assert.True(t, tb.Allow())
	assert.Equal(t, 4, tb.tokens)

	tb.tokens = 0
	tb.Reset()
	assert.Equal(t, 5, tb.tokens)
}

func TestPerMinute(t *testing.T) {
	tb := PerMinute(60)
	assert.Equal(t, 60, tb.tokens)
	assert.Equal(t, time.Minute, tb.refillPeriod)
}

func TestWaitReturnsImmediatelyWithTokens(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.NoError(t, tb.Wait(context.Background()))
}

func TestWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitUnblocksAfterRefill(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, tb.Wait(ctx))
}
