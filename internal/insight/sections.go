package insight

import (
	"regexp"
	"strings"
)

// A sectionStrategy locates a named section inside free text. Strategies are
// pure; each returns the captured body and whether it matched at all.
// Acceptance (minimum length) is decided by the caller so the chain can
// fall through to the next strategy on a hollow capture.
type sectionStrategy func(lines []string, name string) (string, bool)

// sectionStrategies are tried in order; the first acceptable capture wins.
var sectionStrategies = []sectionStrategy{
	markdownHeaderSection,
	boldLabelSection,
	numberedHeaderSection,
}

// extractNamedSection runs the strategy chain for one section name.
func extractNamedSection(text, name string, minLen int) (string, bool) {
	lines := strings.Split(text, "\n")
	for _, strat := range sectionStrategies {
		body, ok := strat(lines, name)
		if !ok {
			continue
		}
		body = strings.TrimSpace(body)
		if len(body) > minLen {
			return body, true
		}
	}
	return "", false
}

var (
	reMarkdownHeader = regexp.MustCompile(`^(#{1,6})\s*(.*)$`)
	reBoldLabel      = regexp.MustCompile(`^\*\*([^*]+)\*\*:?\s*(.*)$`)
	reNumberedLine   = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
)

// headerNameMatches accepts "Strengths", "3. Strengths", and "Strengths of
// the codebase": the name must open the header text as a whole word.
func headerNameMatches(header, name string) bool {
	header = strings.TrimSpace(header)
	// Strip an optional leading "k." / "k)" ordinal.
	if m := reNumberedLine.FindStringSubmatch(header); m != nil {
		header = m[1]
	}
	header = strings.ToLower(strings.TrimRight(header, ": "))
	name = strings.ToLower(name)
	if !strings.HasPrefix(header, name) {
		return false
	}
	rest := header[len(name):]
	return rest == "" || rest[0] == ' ' || rest[0] == ':'
}

// markdownHeaderSection captures from a `#`/`##`/`###` header matching the
// name until the next header of equal or higher level, or end of text.
func markdownHeaderSection(lines []string, name string) (string, bool) {
	for i, line := range lines {
		m := reMarkdownHeader.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || len(m[1]) > 3 || !headerNameMatches(m[2], name) {
			continue
		}
		level := len(m[1])
		var body []string
		for j := i + 1; j < len(lines); j++ {
			if h := reMarkdownHeader.FindStringSubmatch(strings.TrimSpace(lines[j])); h != nil && len(h[1]) <= level {
				break
			}
			body = append(body, lines[j])
		}
		return strings.Join(body, "\n"), true
	}
	return "", false
}

// boldLabelSection captures from a `**Name**` or `**Name:** inline text`
// line until the next bold label or markdown header.
func boldLabelSection(lines []string, name string) (string, bool) {
	for i, line := range lines {
		m := reBoldLabel.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || !headerNameMatches(m[1], name) {
			continue
		}
		var body []string
		if inline := strings.TrimSpace(m[2]); inline != "" {
			body = append(body, inline)
		}
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			if reBoldLabel.MatchString(trimmed) || reMarkdownHeader.MatchString(trimmed) {
				break
			}
			body = append(body, lines[j])
		}
		return strings.Join(body, "\n"), true
	}
	return "", false
}

// looksLikeNumberedHeader distinguishes "2. Weaknesses" from a numbered
// list item: short, starts with a letter, no sentence-ending punctuation.
func looksLikeNumberedHeader(line string) bool {
	m := reNumberedLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return false
	}
	title := strings.TrimRight(strings.TrimSpace(m[1]), ":")
	if title == "" || len(title) > 60 {
		return false
	}
	c := title[0]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return false
	}
	return !strings.ContainsAny(title, ".!?")
}

// numberedHeaderSection captures from a `1. Name` style header until the
// next numbered header, bold label, or markdown header.
func numberedHeaderSection(lines []string, name string) (string, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !looksLikeNumberedHeader(trimmed) {
			continue
		}
		m := reNumberedLine.FindStringSubmatch(trimmed)
		if !headerNameMatches(m[1], name) {
			continue
		}
		var body []string
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if looksLikeNumberedHeader(t) || reBoldLabel.MatchString(t) || reMarkdownHeader.MatchString(t) {
				break
			}
			body = append(body, lines[j])
		}
		return strings.Join(body, "\n"), true
	}
	return "", false
}
