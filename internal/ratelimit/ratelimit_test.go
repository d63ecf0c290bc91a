package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests slide the window without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(clk *fakeClock) *Limiter {
	l := New()
	l.now = clk.now
	return l
}

func TestLimiter_SlidingWindow(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	l := newTestLimiter(clk)
	l.Configure("gemini", Config{MaxRequests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		require.True(t, l.CanProceed("gemini"), "request %d should be permitted", i)
		l.Record("gemini")
		clk.advance(5 * time.Second)
	}
	require.False(t, l.CanProceed("gemini"))
	require.Equal(t, 3, l.Count("gemini"))

	// Oldest request was at t=0; the window slides past it at t=60s.
	// We are at t=15s, so advance to just past 60s: one slot opens, not all.
	clk.advance(46 * time.Second)
	require.True(t, l.CanProceed("gemini"))
	l.Record("gemini")
	require.False(t, l.CanProceed("gemini"), "only one slot frees per expiring timestamp")
}

func TestLimiter_UnconfiguredProviderAlwaysPermitted(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	l := newTestLimiter(clk)
	for i := 0; i < 100; i++ {
		require.True(t, l.CanProceed("unknown"))
	}
}

func TestLimiter_CanProceedDoesNotRecord(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	l := newTestLimiter(clk)
	l.Configure("groq", Config{MaxRequests: 2, Window: time.Minute})
	for i := 0; i < 10; i++ {
		l.CanProceed("groq")
	}
	require.Equal(t, 0, l.Count("groq"))
}

func TestLimiter_Reset(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	l := newTestLimiter(clk)
	l.Configure("a", Config{MaxRequests: 1, Window: time.Minute})
	l.Configure("b", Config{MaxRequests: 1, Window: time.Minute})
	l.Record("a")
	l.Record("b")
	l.Reset("a")
	require.Equal(t, 0, l.Count("a"))
	require.Equal(t, 1, l.Count("b"))
	l.Reset()
	require.Equal(t, 0, l.Count("b"))
}

func TestLimiter_WaitReturnsImmediatelyWhenUnderQuota(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	l := newTestLimiter(clk)
	l.Configure("gemini", Config{MaxRequests: 2, Window: time.Minute})
	l.Record("gemini")

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background(), "gemini") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait blocked while under quota")
	}
}

func TestLimiter_WaitBlocksUntilWindowSlides(t *testing.T) {
	l := New()
	l.Configure("gemini", Config{MaxRequests: 1, Window: 80 * time.Millisecond})
	l.Record("gemini")

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "gemini"))
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, 80*time.Millisecond,
		"Wait must not return before the oldest timestamp leaves the window")
	require.True(t, l.CanProceed("gemini"), "Wait guarantees quota on return")
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	l := New()
	l.Configure("gemini", Config{MaxRequests: 1, Window: time.Hour})
	l.Record("gemini")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx, "gemini") }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestLimiter_ConcurrentCallersNeverOvershoot(t *testing.T) {
	l := New()
	const quota = 5
	l.Configure("gemini", Config{MaxRequests: quota, Window: time.Hour})

	var mu sync.Mutex
	dispatched := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Check-then-record under the caller's own lock step: the limiter
			// serializes internally, so concurrent racers may both see "under
			// limit"; emulate the documented protocol of re-checking.
			mu.Lock()
			defer mu.Unlock()
			if l.CanProceed("gemini") {
				l.Record("gemini")
				dispatched++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, quota, dispatched)
	require.Equal(t, quota, l.Count("gemini"))
}
