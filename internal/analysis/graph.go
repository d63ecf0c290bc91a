package analysis

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"archsight/internal/scan"
)

// reImportish catches import/include/require forms across the supported
// languages, capturing the quoted target.
var reImportish = regexp.MustCompile(`(?m)^\s*(?:import\b[^"']*|from\s+\S+\s+import\b[^"']*|require\s*\(?\s*|#include\s*)["'<]([^"'>]+)["'>]`)

// entryNames are files that are expected to be referenced by nothing.
var entryNames = map[string]bool{
	"main": true, "index": true, "app": true, "mod": true, "setup": true,
}

// referencedPaths maps import-ish targets in content onto indexed files.
// Matching is suffix-based on the path with the extension stripped, which is
// rough but language-independent.
func referencedPaths(from, content string, files []scan.FileEntry) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range reImportish.FindAllStringSubmatch(content, -1) {
		target := strings.TrimSpace(m[1])
		if target == "" {
			continue
		}
		// Relative targets resolve against the importing file's directory.
		if strings.HasPrefix(target, ".") {
			target = path.Join(path.Dir(from), target)
		}
		for _, f := range files {
			if f.Path == from || seen[f.Path] {
				continue
			}
			if pathMatchesTarget(f.Path, target) {
				out = append(out, f.Path)
				seen[f.Path] = true
			}
		}
	}
	sort.Strings(out)
	return out
}

func pathMatchesTarget(filePath, target string) bool {
	stem := strings.TrimSuffix(filePath, path.Ext(filePath))
	return stem == target || strings.HasSuffix(stem, "/"+target) ||
		path.Base(stem) == path.Base(target) ||
		path.Dir(filePath) == target || strings.HasSuffix(path.Dir(filePath), "/"+target)
}

// findCycles returns each dependency cycle once, smallest member first.
func findCycles(refs map[string][]string) [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var stack []string
	var cycles [][]string
	seen := map[string]bool{}

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range refs[node] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Unwind the stack back to next to extract the cycle.
				start := len(stack) - 1
				for start >= 0 && stack[start] != next {
					start--
				}
				if start < 0 {
					continue
				}
				cycle := normalizeCycle(stack[start:])
				key := strings.Join(cycle, "|")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	var nodes []string
	for n := range refs {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

// normalizeCycle rotates the cycle so its smallest member leads, making
// deduplication order-independent.
func normalizeCycle(cycle []string) []string {
	out := append([]string(nil), cycle...)
	min := 0
	for i, p := range out {
		if p < out[min] {
			min = i
		}
	}
	return append(out[min:], out[:min]...)
}

// deadFiles lists source files no other file references, excluding
// entry-point-like names and tests.
func deadFiles(files []scan.FileEntry, refs map[string][]string) []string {
	referenced := map[string]bool{}
	for _, targets := range refs {
		for _, t := range targets {
			referenced[t] = true
		}
	}
	var out []string
	for _, f := range files {
		if referenced[f.Path] {
			continue
		}
		base := strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
		if entryNames[strings.ToLower(base)] ||
			strings.HasSuffix(base, "_test") || strings.Contains(base, ".test") ||
			strings.Contains(base, ".spec") {
			continue
		}
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out
}
