// Package review runs one end-to-end architecture review: static analysis
// seeds the prompt, the conversation loop lets the model pull extra context,
// and the parsed findings plus every raw reply land in the artifact store.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"archsight/internal/analysis"
	"archsight/internal/artifact"
	"archsight/internal/conversation"
	"archsight/internal/insight"
	"archsight/internal/llm"
	"archsight/internal/llmclient"
	"archsight/internal/progress"
	"archsight/internal/ratelimit"
	"archsight/internal/retry"
	"archsight/internal/runstore"
	"archsight/internal/scan"
)

// Config tunes one review run.
type Config struct {
	RunID         string // generated from the clock when empty
	Repo          string
	MaxIterations int
}

// Service owns the collaborators shared across runs.
type Service struct {
	Client    llmclient.LLMClient
	Scanner   *scan.Service
	Artifacts artifact.Store
	Runs      *runstore.Store
	Limiter   *ratelimit.Limiter
	Policy    retry.Policy
	Log       *log.Logger
}

// Outcome is what a finished run produced.
type Outcome struct {
	RunID      string
	Insight    *insight.Insight
	Analysis   *analysis.Report
	Iterations int
	Warnings   int
}

// Run executes a full review and records it. The returned error is also
// reflected in the run record, so callers may log and move on.
func (s *Service) Run(ctx context.Context, cfg Config) (*Outcome, error) {
	logger := s.Log
	if logger == nil {
		logger = log.Default()
	}
	runID := strings.TrimSpace(cfg.RunID)
	if runID == "" {
		runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}

	err := s.Runs.Create(ctx, runstore.Run{
		ID:        runID,
		Repo:      cfg.Repo,
		Provider:  s.Client.Provider(),
		Model:     s.Client.Name(),
		Status:    runstore.StatusRunning,
		StartedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	progress.Emit(ctx, progress.Event{Type: progress.EventRunStarted, RunID: runID})

	outcome, runErr := s.execute(ctx, cfg, runID, logger)

	_, updateErr := s.Runs.Update(ctx, runID, func(r *runstore.Run) {
		r.FinishedAt = time.Now()
		if runErr != nil {
			r.Status = runstore.StatusFailed
			r.Error = runErr.Error()
			return
		}
		r.Status = runstore.StatusCompleted
		r.Iterations = outcome.Iterations
		r.Warnings = outcome.Warnings
	})
	if updateErr != nil {
		logger.Printf("review: record run %s: %v", runID, updateErr)
	}

	if runErr != nil {
		progress.Emit(ctx, progress.Event{Type: progress.EventRunFailed, RunID: runID, Message: runErr.Error()})
		return nil, runErr
	}
	progress.Emit(ctx, progress.Event{Type: progress.EventRunCompleted, RunID: runID, Iteration: outcome.Iterations})
	return outcome, nil
}

func (s *Service) execute(ctx context.Context, cfg Config, runID string, logger *log.Logger) (*Outcome, error) {
	report, err := analysis.Analyze(ctx, s.Scanner)
	if err != nil {
		return nil, fmt.Errorf("review: analyze: %w", err)
	}

	client := llm.Wrap(s.Client,
		llm.WithLogging(logger),
		llm.WithRetry(s.Policy),
		llm.WithRateLimit(s.Limiter),
		llm.WithHooks(),
	)

	var iteration atomic.Int64
	loop := &conversation.Loop{
		MaxIterations: cfg.MaxIterations,
		Fulfiller:     s.Scanner,
		Callbacks: conversation.Callbacks{
			OnIterationStart: func(n int) {
				iteration.Store(int64(n))
				progress.Emit(ctx, progress.Event{Type: progress.EventIteration, RunID: runID, Iteration: n})
			},
			OnIterationComplete: func(n int, r conversation.Result) {
				name := fmt.Sprintf("raw/iteration-%d.txt", n)
				if err := s.Artifacts.Put(ctx, runID, name, []byte(r.Text)); err != nil {
					logger.Printf("review: save %s: %v", name, err)
				}
				if len(r.Requests) > 0 {
					progress.Emit(ctx, progress.Event{
						Type:      progress.EventToolFulfilled,
						RunID:     runID,
						Iteration: n,
						Message:   fmt.Sprintf("%d context requests", len(r.Requests)),
					})
				}
			},
		},
	}

	gen := func(ctx context.Context, turns []llmclient.Turn) (conversation.Result, error) {
		stage := fmt.Sprintf("iteration-%d", iteration.Load())
		reply, err := client.Generate(llm.WithStage(ctx, stage), turns)
		if err != nil {
			return conversation.Result{}, err
		}
		text, reqs := extractRequests(reply)
		return conversation.Result{Text: text, Requests: reqs}, nil
	}

	result, err := loop.Run(ctx, func() string { return buildPrompt(cfg.Repo, report) }, gen)
	if err != nil {
		return nil, fmt.Errorf("review: conversation: %w", err)
	}

	warnings := &countingWriter{next: logger.Writer()}
	parser := insight.New()
	parser.Log = log.New(warnings, logger.Prefix(), logger.Flags())
	parsed := parser.Parse(result.Text)
	if n := warnings.count.Load(); n > 0 {
		progress.Emit(ctx, progress.Event{
			Type:    progress.EventParseWarning,
			RunID:   runID,
			Message: fmt.Sprintf("%d parse warnings", n),
		})
	}

	if err := s.persist(ctx, runID, parsed, report); err != nil {
		return nil, err
	}
	return &Outcome{
		RunID:      runID,
		Insight:    parsed,
		Analysis:   report,
		Iterations: int(iteration.Load()),
		Warnings:   int(warnings.count.Load()),
	}, nil
}

func (s *Service) persist(ctx context.Context, runID string, parsed *insight.Insight, report *analysis.Report) error {
	insightJSON, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return fmt.Errorf("review: encode insight: %w", err)
	}
	if err := s.Artifacts.Put(ctx, runID, "insight.json", insightJSON); err != nil {
		return fmt.Errorf("review: save insight: %w", err)
	}
	if err := s.Artifacts.Put(ctx, runID, "report.md", []byte(renderReport(parsed, report))); err != nil {
		return fmt.Errorf("review: save report: %w", err)
	}
	return nil
}

// countingWriter counts writes on their way to the underlying log sink.
type countingWriter struct {
	next  io.Writer
	count atomic.Int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.count.Add(1)
	return w.next.Write(p)
}
