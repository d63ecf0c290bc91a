package insight

import (
	"regexp"
	"strings"
)

// reLabeledLine matches `Title: text` and the `- Title: text` inline
// shorthand, capturing the label and the value.
var reLabeledLine = regexp.MustCompile(`(?i)^\s*(?:[-•*]\s+)?(title|description|files|functions)\s*:\s*(.*)$`)

// ExtractStructuredItems scans a section body for Title/Description/Files/
// Functions labeled lines and builds structured records. A Title line starts
// a new record; unlabeled non-empty lines accumulate into the running
// description. Returns nil when no labeled lines are present, so callers can
// fall back to plain list extraction.
func ExtractStructuredItems(body string) []StructuredItem {
	var items []StructuredItem
	var current *StructuredItem

	flush := func() {
		if current == nil {
			return
		}
		current.Title = strings.TrimSpace(current.Title)
		current.Description = strings.TrimSpace(current.Description)
		if current.Title != "" || current.Description != "" {
			items = append(items, *current)
		}
		current = nil
	}

	appendDescription := func(text string) {
		if current == nil {
			return
		}
		if current.Description == "" {
			current.Description = text
		} else {
			current.Description += "\n" + text
		}
	}

	for _, line := range strings.Split(body, "\n") {
		m := reLabeledLine.FindStringSubmatch(line)
		if m == nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				appendDescription(trimmed)
			}
			continue
		}
		label, value := strings.ToLower(m[1]), strings.TrimSpace(m[2])
		switch label {
		case "title":
			flush()
			current = &StructuredItem{Title: value}
		case "description":
			if current == nil {
				current = &StructuredItem{}
			}
			appendDescription(value)
		case "files":
			if current == nil {
				current = &StructuredItem{}
			}
			current.RelevantFiles = splitRefs(value)
		case "functions":
			if current == nil {
				current = &StructuredItem{}
			}
			current.RelevantFunctions = splitRefs(value)
		}
	}
	flush()
	return items
}

func splitRefs(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "`"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
