package review

import (
	"fmt"
	"strings"

	"archsight/internal/analysis"
	"archsight/internal/insight"
)

// renderReport flattens the parsed insight into a readable markdown report,
// falling back to the raw reply when nothing structured was extracted.
func renderReport(in *insight.Insight, report *analysis.Report) string {
	var b strings.Builder
	b.WriteString("# Architecture Review\n")

	if summary, ok := in.Sections["Summary"]; ok {
		b.WriteString("\n## Summary\n\n" + summary + "\n")
	} else if in.Summary != "" {
		b.WriteString("\n## Summary\n\n" + in.Summary + "\n")
	}

	for _, key := range []string{"Strengths", "Weaknesses", "Issues"} {
		items, ok := in.Lists[key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", key)
		for _, item := range items {
			b.WriteString("- " + strings.ReplaceAll(item, "\n", "\n  ") + "\n")
		}
	}

	for _, key := range []string{"Recommendations", "Priorities"} {
		if items, ok := in.Items[key]; ok {
			fmt.Fprintf(&b, "\n## %s\n", key)
			for _, item := range items {
				fmt.Fprintf(&b, "\n### %s\n\n%s\n", item.Title, item.Description)
				if len(item.RelevantFiles) > 0 {
					b.WriteString("\nFiles: " + strings.Join(item.RelevantFiles, ", ") + "\n")
				}
				if len(item.RelevantFunctions) > 0 {
					b.WriteString("\nFunctions: " + strings.Join(item.RelevantFunctions, ", ") + "\n")
				}
			}
			continue
		}
		if items, ok := in.Lists[key]; ok {
			fmt.Fprintf(&b, "\n## %s\n\n", key)
			for _, item := range items {
				b.WriteString("- " + strings.ReplaceAll(item, "\n", "\n  ") + "\n")
			}
		}
	}

	if in.Empty() {
		b.WriteString("\nNo structured findings were extracted. Raw reply:\n\n")
		b.WriteString(in.Raw + "\n")
	}

	if report != nil && (len(report.Cycles) > 0 || len(report.DeadFiles) > 0 || len(report.Complexity) > 0) {
		b.WriteString("\n## Static Findings\n\n")
		b.WriteString(report.Summarize())
	}
	return b.String()
}
