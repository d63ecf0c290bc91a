package review

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archsight/internal/artifact"
	"archsight/internal/conversation"
	"archsight/internal/insight"
	"archsight/internal/llmclient"
	"archsight/internal/ratelimit"
	"archsight/internal/retry"
	"archsight/internal/runstore"
	"archsight/internal/scan"
)

type fakeClient struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeClient) Name() string     { return "fake-model" }
func (f *fakeClient) Provider() string { return "test" }
func (f *fakeClient) Close() error     { return nil }

func (f *fakeClient) Generate(ctx context.Context, turns []llmclient.Turn) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i >= len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	return f.replies[i], nil
}

func newTestService(t *testing.T, client llmclient.LLMClient) *Service {
	t.Helper()
	repo := t.TempDir()
	if err := os.WriteFile(filepath.Join(repo, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	scanner, err := scan.NewService(repo)
	if err != nil {
		t.Fatal(err)
	}
	store, err := artifact.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Service{
		Client:    client,
		Scanner:   scanner,
		Artifacts: store,
		Runs:      runstore.New(filepath.Join(t.TempDir(), "runs.json")),
		Limiter:   ratelimit.New(),
		Policy:    retry.DefaultPolicy(),
		Log:       log.New(io.Discard, "", 0),
	}
}

const finalReply = `## Summary

The codebase is a minimal single-binary application with a clear entry point.

## Strengths
- Small surface area
- No circular dependencies

## Issues
- No tests exist. Proposed Fix: add a smoke test for main.
`

func TestRun_SingleIteration(t *testing.T) {
	client := &fakeClient{replies: []string{finalReply}}
	svc := newTestService(t, client)

	out, err := svc.Run(context.Background(), Config{RunID: "run-1", Repo: "/src/app", MaxIterations: 3})
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", client.calls)
	}
	if out.Iterations != 1 {
		t.Fatalf("iterations = %d", out.Iterations)
	}
	if got := out.Insight.Sections["Summary"]; !strings.Contains(got, "minimal single-binary") {
		t.Fatalf("summary not parsed: %+v", out.Insight.Sections)
	}

	run, err := svc.Runs.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != runstore.StatusCompleted || run.Provider != "test" {
		t.Fatalf("run record %+v", run)
	}

	names, err := svc.Artifacts.List(context.Background(), "run-1")
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"insight.json", "report.md", "raw/iteration-1.txt"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing artifact %s in %v", want, names)
		}
	}

	b, err := svc.Artifacts.Get(context.Background(), "run-1", "insight.json")
	if err != nil {
		t.Fatal(err)
	}
	var parsed insight.Insight
	if err := json.Unmarshal(b, &parsed); err != nil {
		t.Fatal(err)
	}
	if len(parsed.Lists["Strengths"]) != 2 {
		t.Fatalf("insight.json content: %+v", parsed)
	}
}

func TestRun_FulfillsContextRequests(t *testing.T) {
	withRequest := "Need to see the entry point first.\n\n```json\n" +
		`{"requests": [{"type": "file", "path": "main.go", "reason": "entry point"}]}` +
		"\n```\n"
	client := &fakeClient{replies: []string{withRequest, finalReply}}
	svc := newTestService(t, client)

	out, err := svc.Run(context.Background(), Config{RunID: "run-2", Repo: "/src/app", MaxIterations: 3})
	if err != nil {
		t.Fatal(err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 generation calls, got %d", client.calls)
	}
	if out.Iterations != 2 {
		t.Fatalf("iterations = %d", out.Iterations)
	}
}

func TestRun_GenerationFailureRecorded(t *testing.T) {
	boom := llmclient.NewPermanentError(errors.New("invalid api key"))
	client := &fakeClient{errs: []error{boom}, replies: []string{""}}
	svc := newTestService(t, client)

	_, err := svc.Run(context.Background(), Config{RunID: "run-3", Repo: "/src/app", MaxIterations: 2})
	if err == nil {
		t.Fatal("expected run failure")
	}

	run, err := svc.Runs.Get(context.Background(), "run-3")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != runstore.StatusFailed || !strings.Contains(run.Error, "invalid api key") {
		t.Fatalf("run record %+v", run)
	}
}

func TestExtractRequests(t *testing.T) {
	text, reqs := extractRequests("Before.\n\n```json\n[{\"type\": \"grep\", \"pattern\": \"TODO\"}]\n```\n\nAfter.")
	if len(reqs) != 1 || reqs[0].Kind != conversation.RequestGrep || reqs[0].Pattern != "TODO" {
		t.Fatalf("got %+v", reqs)
	}
	if strings.Contains(text, "```") {
		t.Fatalf("fence not stripped: %q", text)
	}
	if !strings.Contains(text, "Before.") || !strings.Contains(text, "After.") {
		t.Fatalf("surrounding text lost: %q", text)
	}
}

func TestExtractRequests_NoBlock(t *testing.T) {
	text, reqs := extractRequests("Just prose, no requests.")
	if reqs != nil || text != "Just prose, no requests." {
		t.Fatalf("got %q %+v", text, reqs)
	}
}

func TestExtractRequests_SkipsMalformedElements(t *testing.T) {
	raw := "```json\n" +
		`[{"type": "file", "path": "a.go"}, {"type": "bogus"}, {"type": "grep", "pattern": "x"}]` +
		"\n```"
	_, reqs := extractRequests(raw)
	if len(reqs) != 2 {
		t.Fatalf("got %+v", reqs)
	}
}

func TestExtractRequests_IgnoresUnrelatedJSON(t *testing.T) {
	raw := "Config sample:\n\n```json\n{\"port\": 8080}\n```\n\nDone."
	text, reqs := extractRequests(raw)
	if reqs != nil {
		t.Fatalf("got %+v", reqs)
	}
	if !strings.Contains(text, "8080") {
		t.Fatalf("unrelated block should remain: %q", text)
	}
}

func TestRenderReport_FallsBackToRaw(t *testing.T) {
	in := &insight.Insight{Raw: "ok."}
	out := renderReport(in, nil)
	if !strings.Contains(out, "ok.") || !strings.Contains(out, "No structured findings") {
		t.Fatalf("got %q", out)
	}
}
