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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(window time.Duration, ceiling int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)}
	l := New(window, ceiling)
	l.SetClock(clock.Now)
	return l, clock
}

func TestHundredthAllowedHundredFirstDenied(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(DefaultWindow, DefaultCeiling)

	for i := 1; i <= 100; i++ {
		d := l.Allow("10.0.0.1")
		require.Truef(t, d.Allowed, "request %d denied", i)
		require.Equal(t, 100-i, d.Remaining)
		clock.Advance(time.Second)
	}

	denied := l.Allow("10.0.0.1")
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 100, denied.Limit)

	clock.Advance(DefaultWindow)
	assert.True(t, l.Allow("10.0.0.1").Allowed)
}

func TestWindowResetsAtBoundaryInstant(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(time.Minute, 2)

	require.True(t, l.Allow("k").Allowed)
	require.True(t, l.Allow("k").Allowed)

	clock.Advance(time.Minute - time.Nanosecond)
	require.False(t, l.Allow("k").Allowed)

	clock.Advance(time.Nanosecond)
	d := l.Allow("k")
	require.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestDeniedRequestsDoNotExtendWindow(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(time.Minute, 1)
	start := clock.Now()

	require.True(t, l.Allow("k").Allowed)
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		d := l.Allow("k")
		require.False(t, d.Allowed)
		require.Equal(t, start.Add(time.Minute), d.ResetAt)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(time.Minute, 1)

	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
}

func TestRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	d := Decision{ResetAt: now.Add(90*time.Second + 300*time.Millisecond)}
	assert.Equal(t, 91*time.Second, d.RetryAfter(now))
	assert.Equal(t, time.Second, d.RetryAfter(now.Add(time.Hour)))

	whole := Decision{ResetAt: now.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, whole.RetryAfter(now))
	assert.Equal(t, time.Second, whole.RetryAfter(now.Add(89*time.Second+time.Millisecond)))
}

func TestSweepEvictsElapsedWindows(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(time.Minute, 10)

	l.Allow("old")
	clock.Advance(30 * time.Second)
	l.Allow("fresh")
	require.Equal(t, 2, l.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	t.Parallel()

	l := New(time.Millisecond, 1)
	l.Allow("k")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.StartSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestConcurrentAllowNeverExceedsCeiling(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(time.Hour, 50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestDefaultsApplied(t *testing.T) {
	t.Parallel()

	l := New(0, -1)
	assert.Equal(t, DefaultWindow, l.Window())
	assert.Equal(t, DefaultCeiling, l.Ceiling())
}
