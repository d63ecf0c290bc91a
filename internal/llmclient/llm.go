// Package llmclient defines the provider-facing client interface and the
// concrete Gemini and Groq clients.
//
// Clients only focus on the API call itself. Cross-cutting concerns
// (rate limiting, retries, logging, hooks) are applied via llm.Middleware.
package llmclient

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the accumulated exchange with the model.
// Content is always plain text; structured payloads are serialized before
// being embedded in a turn.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LLMClient is the minimal surface a provider client exposes.
type LLMClient interface {
	// Name returns a human-readable client name, e.g. "Gemini:gemini-2.5-flash".
	Name() string
	// Provider returns the provider key used for rate-limit bookkeeping.
	Provider() string
	// Generate sends the accumulated turns and returns the raw reply text.
	Generate(ctx context.Context, turns []Turn) (string, error)
	Close() error
}
