package llm

import (
	"context"

	"archsight/internal/llmclient"
)

// Hook observes generation calls. Implementations must not block for long;
// they run inline with the call.
type Hook interface {
	Before(ctx context.Context, stage string, turns []llmclient.Turn)
	After(ctx context.Context, stage string, reply string, err error)
}

type hookKey struct{}
type stageKey struct{}

// WithHook attaches a hook to the context for WithHooks middleware.
func WithHook(ctx context.Context, h Hook) context.Context {
	return context.WithValue(ctx, hookKey{}, h)
}

// HookFrom returns the context-bound hook, or nil.
func HookFrom(ctx context.Context) Hook {
	if v := ctx.Value(hookKey{}); v != nil {
		if h, ok := v.(Hook); ok {
			return h
		}
	}
	return nil
}

// WithStage labels subsequent calls for logging and hooks (e.g. "review").
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the current stage label, or "-".
func StageFrom(ctx context.Context) string {
	if v := ctx.Value(stageKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "-"
}
