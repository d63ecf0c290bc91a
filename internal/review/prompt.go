package review

import (
	"fmt"
	"strings"

	"archsight/internal/analysis"
)

// buildPrompt assembles the opening turn: the review brief, the static
// findings, and the reply contract the parser and loop expect.
func buildPrompt(repo string, report *analysis.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing the architecture of the repository at %s.\n\n", repo)
	b.WriteString(report.Summarize())
	b.WriteString(`
Assess the architecture and respond in markdown with these sections:

## Summary
One paragraph on the overall state of the codebase.

## Strengths
A bulleted list.

## Weaknesses
A bulleted list.

## Issues
A bulleted list. For each issue include "Proposed Fix: <concrete change>".

## Recommendations
Items in the form:
- Title: <short name>
  Description: <what to do and why>
  Files: <comma-separated paths, if known>
  Functions: <comma-separated names, if known>

If you need to see specific code before concluding, append one fenced
JSON block with your requests and stop:

` + "```json" + `
{"requests": [
  {"type": "file", "path": "internal/app/main.go", "reason": "entry point"},
  {"type": "grep", "pattern": "TODO", "filePattern": "*.go", "maxResults": 20, "reason": "deferred work"}
]}
` + "```" + `
At most 5 requests are honored per reply.
`)
	return b.String()
}
