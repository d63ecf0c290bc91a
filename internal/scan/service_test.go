package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIndexRepo_SkipsDependencyDirs(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.go":             "package main",
		"internal/a.go":       "package internal",
		"node_modules/x/y.js": "ignored",
		".git/HEAD":           "ignored",
		"vendor/dep/dep.go":   "ignored",
		"docs/readme.md":      "# readme",
	})
	index, err := IndexRepo(dir)
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, e := range index {
		paths = append(paths, e.Path)
	}
	want := []string{"docs/readme.md", "internal/a.go", "main.go"}
	if len(paths) != len(want) {
		t.Fatalf("got %v want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v want %v", paths, want)
		}
	}
}

func TestService_ReadFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"src/app.go": "package app\n\nfunc Run() {}\n"})
	svc, err := NewService(dir)
	if err != nil {
		t.Fatal(err)
	}
	content, err := svc.ReadFile(context.Background(), "src/app.go")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "func Run()") {
		t.Fatalf("unexpected content %q", content)
	}
	// Cached read returns the same content.
	again, err := svc.ReadFile(context.Background(), "src/app.go")
	if err != nil || again != content {
		t.Fatalf("cached read mismatch: %v", err)
	}
	// Escapes are rejected.
	if _, err := svc.ReadFile(context.Background(), "../outside"); err == nil {
		t.Fatal("expected traversal rejection")
	}
}

func TestService_Grep(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.go":     "package a\nfunc Handle() {}\n",
		"b.go":     "package b\nfunc Handle() {}\nfunc handle2() {}\n",
		"notes.md": "Handle with care\n",
	})
	svc, err := NewService(dir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.Grep(context.Background(), `func Handle`, "*.go", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a.go:2:") || !strings.Contains(out, "b.go:2:") {
		t.Fatalf("missing matches:\n%s", out)
	}
	if strings.Contains(out, "notes.md") {
		t.Fatalf("file pattern not applied:\n%s", out)
	}
}

func TestService_GrepMaxResults(t *testing.T) {
	files := map[string]string{}
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "match me")
	}
	files["big.txt"] = strings.Join(lines, "\n")
	svc, err := NewService(writeTree(t, files))
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.Grep(context.Background(), "match me", "", 7)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, "big.txt:"); got != 7 {
		t.Fatalf("expected 7 results, got %d", got)
	}
}

func TestService_GrepNoMatches(t *testing.T) {
	svc, err := NewService(writeTree(t, map[string]string{"a.txt": "nothing"}))
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.Grep(context.Background(), "absent", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if out != "no matches" {
		t.Fatalf("got %q", out)
	}
}

func TestService_GrepBadPattern(t *testing.T) {
	svc, err := NewService(writeTree(t, map[string]string{"a.txt": "x"}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Grep(context.Background(), "(", "", 0); err == nil {
		t.Fatal("expected regexp compile error")
	}
}
