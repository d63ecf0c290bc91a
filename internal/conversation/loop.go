// Package conversation drives a bounded sequence of generation calls.
// Each reply may carry tool-style requests for more context; the loop
// fulfills them through an injected collaborator, folds the results back
// into the turn sequence, and stops on convergence or iteration exhaustion.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"archsight/internal/llmclient"
)

// maxRequestsPerIteration bounds how many tool requests are honored per
// reply. Requests past the bound are dropped.
const maxRequestsPerIteration = 5

// continuationPrompt asks the model to conclude with what it already has.
const continuationPrompt = "Using the additional information provided above, " +
	"give your final analysis. Only request more context if it is strictly necessary."

var errNilGenerate = errors.New("conversation: generate function is nil")

// Result is a generation outcome. Requests is an internal control signal:
// the Result returned by Loop.Run never carries it.
type Result struct {
	Text     string
	Requests []ToolRequest
}

// GenerateFunc produces the next reply given the accumulated turns.
type GenerateFunc func(ctx context.Context, turns []llmclient.Turn) (Result, error)

// Fulfiller answers tool requests. A failure aborts the run; requests are
// never silently skipped.
type Fulfiller interface {
	ReadFile(ctx context.Context, path string) (string, error)
	Grep(ctx context.Context, pattern, filePattern string, maxResults int) (string, error)
}

// Callbacks are pure observers with no effect on control flow.
type Callbacks struct {
	OnIterationStart    func(iteration int)
	OnIterationComplete func(iteration int, r Result)
}

// Loop is created fresh per orchestration run. Runs are strictly sequential:
// each turn depends on the previous one's tool-fulfillment output.
type Loop struct {
	MaxIterations int
	Fulfiller     Fulfiller
	Callbacks     Callbacks
}

// Run executes up to MaxIterations generation calls. Iteration 1 opens with
// the initial prompt; later iterations append the fulfilled tool output and
// a fixed continuation instruction. The run ends when a reply carries no
// requests or the iteration bound is reached; the last reply wins either way.
func (l *Loop) Run(ctx context.Context, initialPrompt func() string, gen GenerateFunc) (Result, error) {
	if gen == nil {
		return Result{}, errNilGenerate
	}
	if initialPrompt == nil {
		return Result{}, errors.New("conversation: initial prompt factory is nil")
	}
	max := l.MaxIterations
	if max <= 0 {
		max = 3
	}

	var turns []llmclient.Turn
	var result Result
	for iteration := 1; iteration <= max; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if l.Callbacks.OnIterationStart != nil {
			l.Callbacks.OnIterationStart(iteration)
		}

		if iteration == 1 {
			turns = append(turns, llmclient.Turn{Role: llmclient.RoleUser, Content: initialPrompt()})
		} else {
			turns = append(turns, llmclient.Turn{Role: llmclient.RoleUser, Content: continuationPrompt})
		}

		var err error
		result, err = gen(ctx, turns)
		if err != nil {
			return Result{}, err
		}
		if l.Callbacks.OnIterationComplete != nil {
			l.Callbacks.OnIterationComplete(iteration, result)
		}

		if len(result.Requests) == 0 || iteration == max {
			break
		}

		block, err := l.fulfill(ctx, result.Requests)
		if err != nil {
			return Result{}, err
		}
		turns = append(turns,
			llmclient.Turn{Role: llmclient.RoleAssistant, Content: serializeResult(result)},
			llmclient.Turn{Role: llmclient.RoleUser, Content: block},
		)
	}

	result.Requests = nil
	return result, nil
}

// fulfill honors at most the first maxRequestsPerIteration requests,
// file reads before pattern searches, and formats all responses into a
// single textual block.
func (l *Loop) fulfill(ctx context.Context, reqs []ToolRequest) (string, error) {
	if l.Fulfiller == nil {
		return "", errors.New("conversation: tool requests received but no fulfiller configured")
	}
	if len(reqs) > maxRequestsPerIteration {
		reqs = reqs[:maxRequestsPerIteration]
	}
	var files, greps []ToolRequest
	for _, r := range reqs {
		switch r.Kind {
		case RequestFile:
			files = append(files, r)
		case RequestGrep:
			greps = append(greps, r)
		default:
			return "", fmt.Errorf("conversation: unknown request kind %q", r.Kind)
		}
	}

	var b strings.Builder
	b.WriteString("Requested context:\n")
	for _, r := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := l.Fulfiller.ReadFile(ctx, r.Path)
		if err != nil {
			return "", fmt.Errorf("conversation: read %s: %w", r.Path, err)
		}
		fmt.Fprintf(&b, "\n[FILE] %s\n%s\n", r.Path, content)
	}
	for _, r := range greps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		matches, err := l.Fulfiller.Grep(ctx, r.Pattern, r.FilePattern, r.MaxResults)
		if err != nil {
			return "", fmt.Errorf("conversation: grep %q: %w", r.Pattern, err)
		}
		fmt.Fprintf(&b, "\n[GREP] %s\n%s\n", r.Pattern, matches)
	}
	return b.String(), nil
}

// serializeResult renders the prior reply as the assistant turn's text.
func serializeResult(r Result) string {
	if len(r.Requests) == 0 {
		return r.Text
	}
	reqs, err := json.Marshal(r.Requests)
	if err != nil {
		return r.Text
	}
	return r.Text + "\n\nRequests: " + string(reqs)
}
