// Package analysis produces the static findings that seed an architecture
// review: complexity hot spots, dependency cycles, and files nothing
// references. The heuristics are plain text scans; judgment about what the
// findings mean is left to the model.
package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"archsight/internal/scan"
)

// sourceExts are the extensions analyzed for structure.
var sourceExts = map[string]bool{
	".go": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".cc": true, ".cpp": true, ".h": true, ".cs": true,
}

var reBranch = regexp.MustCompile(`\b(if|for|while|switch|case|catch|select|elif|except|when)\b`)

const (
	// complexityThreshold is the minimum score before a file is reported.
	complexityThreshold = 40
	maxComplexityFinds  = 15
)

// ComplexityFinding flags one file as a hot spot.
type ComplexityFinding struct {
	Path     string `json:"path"`
	Lines    int    `json:"lines"`
	Branches int    `json:"branches"`
	Score    int    `json:"score"`
}

// Report carries every static finding for one repository.
type Report struct {
	Files      int                 `json:"files"`
	Complexity []ComplexityFinding `json:"complexity,omitempty"`
	Cycles     [][]string          `json:"cycles,omitempty"`
	DeadFiles  []string            `json:"deadFiles,omitempty"`
}

// reader is the slice of scan.Service the analyzer needs.
type reader interface {
	Index() []scan.FileEntry
	ReadFile(ctx context.Context, path string) (string, error)
}

// Analyze walks the indexed sources and assembles the report.
func Analyze(ctx context.Context, src reader) (*Report, error) {
	report := &Report{Files: len(src.Index())}
	refs := map[string][]string{} // path -> referenced paths

	var sources []scan.FileEntry
	for _, entry := range src.Index() {
		if sourceExts[entry.Ext] {
			sources = append(sources, entry)
		}
	}

	for _, entry := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := src.ReadFile(ctx, entry.Path)
		if err != nil {
			continue
		}
		if f, ok := scoreComplexity(entry.Path, content); ok {
			report.Complexity = append(report.Complexity, f)
		}
		refs[entry.Path] = referencedPaths(entry.Path, content, sources)
	}

	sort.Slice(report.Complexity, func(i, j int) bool {
		return report.Complexity[i].Score > report.Complexity[j].Score
	})
	if len(report.Complexity) > maxComplexityFinds {
		report.Complexity = report.Complexity[:maxComplexityFinds]
	}

	report.Cycles = findCycles(refs)
	report.DeadFiles = deadFiles(sources, refs)
	return report, nil
}

func scoreComplexity(path, content string) (ComplexityFinding, bool) {
	lines := strings.Count(content, "\n") + 1
	branches := len(reBranch.FindAllString(content, -1))
	score := branches + lines/25
	if score < complexityThreshold {
		return ComplexityFinding{}, false
	}
	return ComplexityFinding{Path: path, Lines: lines, Branches: branches, Score: score}, true
}

// Summarize renders the report as prompt-ready text.
func (r *Report) Summarize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Static analysis of %d files.\n", r.Files)
	if len(r.Complexity) > 0 {
		b.WriteString("\nComplexity hot spots:\n")
		for _, f := range r.Complexity {
			fmt.Fprintf(&b, "- %s (%d lines, %d branch points)\n", f.Path, f.Lines, f.Branches)
		}
	}
	if len(r.Cycles) > 0 {
		b.WriteString("\nDependency cycles:\n")
		for _, cycle := range r.Cycles {
			fmt.Fprintf(&b, "- %s\n", strings.Join(cycle, " -> "))
		}
	}
	if len(r.DeadFiles) > 0 {
		b.WriteString("\nFiles nothing references:\n")
		for _, p := range r.DeadFiles {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}
