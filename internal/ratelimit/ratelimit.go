// Package ratelimit tracks recent call timestamps per named provider against
// a sliding window. Unlike fixed calendar buckets, a burst of N requests
// becomes eligible again exactly one window after the oldest request in the
// burst, one slot at a time.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config bounds one provider: at most MaxRequests calls within Window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// waitBuffer is the slack added after the oldest in-window timestamp expires
// so a re-check lands strictly past the window edge.
const waitBuffer = 25 * time.Millisecond

// Limiter is safe for concurrent use; per-provider histories are shared
// across all callers targeting the same provider name.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Config
	history map[string][]time.Time

	now func() time.Time
}

// New returns a limiter preconfigured with the default provider quotas
// (gemini 60/min, groq 50/min). Both are overridable via Configure.
func New() *Limiter {
	l := &Limiter{
		limits:  make(map[string]Config),
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
	l.Configure("gemini", Config{MaxRequests: 60, Window: time.Minute})
	l.Configure("groq", Config{MaxRequests: 50, Window: time.Minute})
	return l
}

// Configure sets or replaces the quota for a provider. A non-positive
// MaxRequests or Window removes the limit, making the provider unlimited.
func (l *Limiter) Configure(provider string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		delete(l.limits, provider)
		return
	}
	l.limits[provider] = cfg
}

// CanProceed reports whether a call to the provider is currently within
// quota. It never records; callers that dispatch must call Record.
func (l *Limiter) CanProceed(provider string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, ok := l.limits[provider]
	if !ok {
		return true
	}
	return len(l.pruneLocked(provider, cfg)) < cfg.MaxRequests
}

// Record appends "now" to the provider's history. Call it immediately after
// dispatching a permitted request.
func (l *Limiter) Record(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limits[provider]; !ok {
		return
	}
	l.history[provider] = append(l.history[provider], l.now())
}

// Count returns the number of in-window requests recorded for the provider.
func (l *Limiter) Count(provider string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, ok := l.limits[provider]
	if !ok {
		return len(l.history[provider])
	}
	return len(l.pruneLocked(provider, cfg))
}

// Reset clears history for the given providers, or for all providers when
// called with no arguments. Intended for test isolation and explicit quota
// resets.
func (l *Limiter) Reset(providers ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(providers) == 0 {
		l.history = make(map[string][]time.Time)
		return
	}
	for _, p := range providers {
		delete(l.history, p)
	}
}

// Wait blocks until the provider is within quota or ctx is done. It loops:
// each pass sleeps until the oldest in-window timestamp leaves the window
// (plus a small buffer), then re-checks, so a return with nil error
// guarantees the caller was within quota at that instant.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	for {
		d, ok := l.nextWait(provider)
		if ok {
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextWait returns (0, true) when the provider is within quota, otherwise
// the duration until the oldest in-window timestamp expires.
func (l *Limiter) nextWait(provider string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cfg, ok := l.limits[provider]
	if !ok {
		return 0, true
	}
	hist := l.pruneLocked(provider, cfg)
	if len(hist) < cfg.MaxRequests {
		return 0, true
	}
	oldest := hist[0]
	d := oldest.Add(cfg.Window).Sub(l.now()) + waitBuffer
	if d < waitBuffer {
		d = waitBuffer
	}
	return d, false
}

// pruneLocked drops timestamps older than the window and returns the
// remaining history. Caller must hold l.mu.
func (l *Limiter) pruneLocked(provider string, cfg Config) []time.Time {
	cutoff := l.now().Add(-cfg.Window)
	hist := l.history[provider]
	i := 0
	for i < len(hist) && !hist[i].After(cutoff) {
		i++
	}
	if i > 0 {
		hist = append([]time.Time(nil), hist[i:]...)
		l.history[provider] = hist
	}
	return hist
}
