// Package retry executes an operation and retries transient failures with
// capped exponential backoff. Failures are classified by matching configured
// patterns against the error's message, code, and HTTP status; anything that
// does not match is propagated immediately.
package retry

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"archsight/internal/llmclient"
)

// Policy controls retry behavior for a single call. It is immutable per call;
// callers must not share a Policy they mutate concurrently.
type Policy struct {
	// MaxRetries is the number of retry attempts, not counting the initial
	// attempt. Zero means execute exactly once.
	MaxRetries int

	// InitialDelay is the delay before the first retry attempt.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier controls exponential backoff growth (2.0 = double each retry).
	Multiplier float64

	// RetryablePatterns are matched case-insensitively as substrings against
	// the error message, the error code, and the HTTP status rendered as a
	// string (status 429 matches pattern "429").
	RetryablePatterns []string

	// OnRetry, when set, is invoked with the upcoming attempt number (1-based)
	// and the error that triggered the retry, before the backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy covers the usual transient provider failures: rate limiting,
// timeouts, connection resets, and 429/500/502/503-class statuses.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		RetryablePatterns: []string{
			"rate limit",
			"rate_limit",
			"too many requests",
			"timeout",
			"timed out",
			"deadline exceeded",
			"connection reset",
			"econnreset",
			"overloaded",
			"unavailable",
			"resource_exhausted",
			"429",
			"500",
			"502",
			"503",
		},
	}
}

// Retryable reports whether err matches one of the policy's patterns.
// Errors marked permanent never retry, regardless of patterns.
func Retryable(p Policy, err error) bool {
	if err == nil {
		return false
	}
	if llmclient.IsPermanent(err) {
		return false
	}
	haystacks := []string{strings.ToLower(err.Error())}
	var cerr *llmclient.CallError
	if errors.As(err, &cerr) {
		if cerr.Code != "" {
			haystacks = append(haystacks, strings.ToLower(cerr.Code))
		}
		if cerr.Status > 0 {
			haystacks = append(haystacks, strconv.Itoa(cerr.Status))
		}
	}
	for _, pat := range p.RetryablePatterns {
		pat = strings.ToLower(pat)
		if pat == "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(h, pat) {
				return true
			}
		}
	}
	return false
}

// Backoff returns the delay preceding the given retry attempt (1-based):
// attempt 1 sleeps InitialDelay, each later attempt multiplies the previous
// delay, capped at MaxDelay.
func Backoff(p Policy, attempt int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op, retrying transient failures per the policy. On exhaustion the
// last observed error is returned unchanged so callers see the real cause,
// never a synthetic wrapper. Cancellation is observed before every sleep.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var last error
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !Retryable(p, err) {
			return zero, err
		}
		last = err
		if attempt >= p.MaxRetries {
			return zero, last
		}
		next := attempt + 1
		if p.OnRetry != nil {
			p.OnRetry(next, err)
		}
		if err := sleep(ctx, Backoff(p, next)); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
