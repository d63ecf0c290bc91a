package insight

import (
	"regexp"
	"strings"
)

// reListMarker matches dash, bullet dot, asterisk, and `k.`/`k)` numbered
// markers at the start of a line.
var reListMarker = regexp.MustCompile(`^\s*(?:[-•*]|\d+[.)])\s+`)

// ExtractList pulls list items out of a section body, line by line. A marker
// line starts a new item; non-empty lines that follow are continuations
// (joined by newline), so multi-line bullets stay one item. Blank lines are
// skipped without terminating the current item.
func ExtractList(body string) []string {
	var items []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		item := strings.TrimSpace(strings.Join(current, "\n"))
		if item != "" {
			items = append(items, item)
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		if marker := reListMarker.FindString(line); marker != "" {
			flush()
			current = []string{strings.TrimSpace(line[len(marker):])}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(current) > 0 {
			current = append(current, trimmed)
		}
	}
	flush()
	return items
}
