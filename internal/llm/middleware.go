// Package llm decorates an llmclient.LLMClient with cross-cutting concerns:
// rate limiting, retries, logging, and hooks. Provider clients stay thin;
// everything operational is layered here.
package llm

import (
	"context"
	"log"

	"archsight/internal/llmclient"
	"archsight/internal/ratelimit"
	"archsight/internal/retry"
)

// Middleware decorates an LLMClient.
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// WithRateLimit blocks until the shared limiter permits a call for the
// client's provider, then records the dispatch. Place it inside WithRetry so
// every retry attempt also waits for quota.
func WithRateLimit(limiter *ratelimit.Limiter) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{next: next, limiter: limiter}
	}
}

type rateLimited struct {
	next    llmclient.LLMClient
	limiter *ratelimit.Limiter
}

func (c *rateLimited) Name() string     { return c.next.Name() }
func (c *rateLimited) Provider() string { return c.next.Provider() }
func (c *rateLimited) Close() error     { return c.next.Close() }

func (c *rateLimited) Generate(ctx context.Context, turns []llmclient.Turn) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.next.Provider()); err != nil {
			return "", err
		}
		c.limiter.Record(c.next.Provider())
	}
	return c.next.Generate(ctx, turns)
}

// -------- Retry with exponential backoff --------

// WithRetry retries Generate per the policy. Transient failures (matched by
// the policy's patterns) back off and retry; everything else propagates
// immediately.
func WithRetry(policy retry.Policy) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &retrying{next: next, policy: policy}
	}
}

type retrying struct {
	next   llmclient.LLMClient
	policy retry.Policy
}

func (r *retrying) Name() string     { return r.next.Name() }
func (r *retrying) Provider() string { return r.next.Provider() }
func (r *retrying) Close() error     { return r.next.Close() }

func (r *retrying) Generate(ctx context.Context, turns []llmclient.Turn) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, turns)
	})
}

// -------- Logging & hooks --------

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string     { return l.next.Name() }
func (l *logging) Provider() string { return l.next.Provider() }
func (l *logging) Close() error     { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, turns []llmclient.Turn) (string, error) {
	size := 0
	for _, t := range turns {
		size += len(t.Content)
	}
	l.log.Printf("LLM request (%s): %d turns, %d bytes", StageFrom(ctx), len(turns), size)
	out, err := l.next.Generate(ctx, turns)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", StageFrom(ctx), err)
	}
	return out, err
}

// WithHooks calls HookFrom(ctx).Before/After around Generate.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{next: next}
	}
}

type hooked struct{ next llmclient.LLMClient }

func (h *hooked) Name() string     { return h.next.Name() }
func (h *hooked) Provider() string { return h.next.Provider() }
func (h *hooked) Close() error     { return h.next.Close() }

func (h *hooked) Generate(ctx context.Context, turns []llmclient.Turn) (string, error) {
	if hook := HookFrom(ctx); hook != nil {
		hook.Before(ctx, StageFrom(ctx), turns)
	}
	out, err := h.next.Generate(ctx, turns)
	if hook := HookFrom(ctx); hook != nil {
		hook.After(ctx, StageFrom(ctx), out, err)
	}
	return out, err
}
