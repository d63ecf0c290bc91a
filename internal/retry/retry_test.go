package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"archsight/internal/llmclient"
)

func fastPolicy(maxRetries int) Policy {
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 4 * time.Millisecond
	return p
}

func TestDo_RetryableExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	final := errors.New("rate limit exceeded on attempt 4")
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 4 {
			return "", errors.New("rate limit exceeded")
		}
		return "", final
	})
	if calls != 4 {
		t.Fatalf("expected 4 invocations, got %d", calls)
	}
	if err != final {
		t.Fatalf("expected last error propagated unchanged, got %v", err)
	}
}

func TestDo_NonRetryableRunsOnce(t *testing.T) {
	calls := 0
	observer := 0
	p := fastPolicy(5)
	p.OnRetry = func(attempt int, err error) { observer++ }
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("invalid api key")
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d", calls)
	}
	if err == nil || err.Error() != "invalid api key" {
		t.Fatalf("unexpected error: %v", err)
	}
	if observer != 0 {
		t.Fatalf("observer must not fire for non-retryable errors, fired %d times", observer)
	}
}

func TestDo_ZeroRetriesRunsOnce(t *testing.T) {
	calls := 0
	observer := 0
	p := fastPolicy(0)
	p.OnRetry = func(attempt int, err error) { observer++ }
	start := time.Now()
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("timeout")
	})
	if calls != 1 || err == nil {
		t.Fatalf("expected single failing invocation, calls=%d err=%v", calls, err)
	}
	if observer != 0 {
		t.Fatalf("observer fired with MaxRetries=0")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("no sleep expected with MaxRetries=0, took %v", elapsed)
	}
}

func TestDo_SuccessSkipsRetries(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || out != "ok" || calls != 1 {
		t.Fatalf("got out=%q err=%v calls=%d", out, err, calls)
	}
}

func TestDo_ObserverSeesAttemptNumbers(t *testing.T) {
	var attempts []int
	p := fastPolicy(2)
	p.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }
	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, errors.New("connection reset by peer")
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("unexpected observer attempts: %v", attempts)
	}
}

func TestDo_CancellationStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.InitialDelay = time.Hour
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("timeout")
		})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 invocation before cancel, got %d", calls)
	}
}

func TestBackoff_Sequence(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: 450 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		450 * time.Millisecond,
		450 * time.Millisecond,
	}
	for i, w := range want {
		if got := Backoff(p, i+1); got != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, w)
		}
	}
}

func TestRetryable_MatchesCodeAndStatus(t *testing.T) {
	p := Policy{RetryablePatterns: []string{"429", "rate_limit_exceeded"}}
	cases := []struct {
		err  error
		want bool
	}{
		{&llmclient.CallError{Message: "quota hit", Status: 429}, true},
		{&llmclient.CallError{Message: "quota hit", Code: "RATE_LIMIT_EXCEEDED"}, true},
		{&llmclient.CallError{Message: "bad request", Status: 400}, false},
		{errors.New("http 429 from upstream"), true},
		{llmclient.NewPermanentError(&llmclient.CallError{Message: "x", Status: 429}), false},
		{nil, false},
	}
	for i, c := range cases {
		if got := Retryable(p, c.err); got != c.want {
			t.Fatalf("case %d (%v): got %v want %v", i, c.err, got, c.want)
		}
	}
}

func TestDo_SleepsFollowBackoffSequence(t *testing.T) {
	p := Policy{
		MaxRetries:        3,
		InitialDelay:      20 * time.Millisecond,
		MaxDelay:          45 * time.Millisecond,
		Multiplier:        2,
		RetryablePatterns: []string{"timeout"},
	}
	var stamps []time.Time
	_, _ = Do(context.Background(), p, func(ctx context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("timeout")
	})
	if len(stamps) != 4 {
		t.Fatalf("expected 4 invocations, got %d", len(stamps))
	}
	want := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 45 * time.Millisecond}
	for i, w := range want {
		gap := stamps[i+1].Sub(stamps[i])
		if gap < w {
			t.Fatalf("gap %d: slept %v, want at least %v", i, gap, w)
		}
	}
}
