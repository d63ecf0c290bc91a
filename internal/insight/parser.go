package insight

import (
	"log"
	"strings"
)

// Tuning constants. The 10-character minimums mirror the long-standing
// behavior of the heuristics; they are named here rather than inlined so
// deviations are deliberate.
const (
	// DefaultMinSectionLen rejects section captures at or below this length,
	// so an empty or truncated capture never wins over a later strategy.
	DefaultMinSectionLen = 10
	// DefaultMinFixLen is the minimum accepted "Proposed Fix:" value length.
	DefaultMinFixLen = 10
	// DefaultMinSummaryLen is the minimum paragraph length for the fallback
	// summary.
	DefaultMinSummaryLen = 50

	warnTruncateLen = 200
)

// Parser extracts structure from free-form replies. The zero value is not
// usable; call New.
type Parser struct {
	// Sections is the section plan; defaults to DefaultSections().
	Sections []SectionSpec
	// MinSectionLen, MinFixLen and MinSummaryLen override the package
	// defaults when positive.
	MinSectionLen int
	MinFixLen     int
	MinSummaryLen int
	// Log receives diagnostic warnings (nil → log.Default()).
	Log *log.Logger
}

func New() *Parser {
	return &Parser{
		Sections:      DefaultSections(),
		MinSectionLen: DefaultMinSectionLen,
		MinFixLen:     DefaultMinFixLen,
		MinSummaryLen: DefaultMinSummaryLen,
	}
}

func (p *Parser) logger() *log.Logger {
	if p.Log != nil {
		return p.Log
	}
	return log.Default()
}

func (p *Parser) minSectionLen() int {
	if p.MinSectionLen > 0 {
		return p.MinSectionLen
	}
	return DefaultMinSectionLen
}

func (p *Parser) minFixLen() int {
	if p.MinFixLen > 0 {
		return p.MinFixLen
	}
	return DefaultMinFixLen
}

func (p *Parser) minSummaryLen() int {
	if p.MinSummaryLen > 0 {
		return p.MinSummaryLen
	}
	return DefaultMinSummaryLen
}

// Parse extracts the configured sections from raw. It never fails: inputs
// with no recognizable structure yield an Insight with empty maps, the raw
// text preserved, and (for non-trivial inputs) a first-paragraph summary.
func (p *Parser) Parse(raw string) *Insight {
	in := &Insight{
		Sections: map[string]string{},
		Lists:    map[string][]string{},
		Items:    map[string][]StructuredItem{},
		Raw:      raw,
	}
	specs := p.Sections
	if len(specs) == 0 {
		specs = DefaultSections()
	}

	for _, spec := range specs {
		body, ok := p.extractSection(raw, spec)
		if !ok {
			continue
		}
		switch spec.Kind {
		case SectionText:
			in.Sections[spec.Key] = body
		case SectionList:
			if items := ExtractList(body); len(items) > 0 {
				in.Lists[spec.Key] = items
			}
		case SectionIssues:
			items := ExtractList(body)
			if len(items) > 0 {
				in.Lists[spec.Key] = items
				p.validateIssues(spec.Key, items)
			}
		case SectionStructured:
			if items := ExtractStructuredItems(body); len(items) > 0 {
				in.Items[spec.Key] = items
			} else if plain := ExtractList(body); len(plain) > 0 {
				// The model varied its formatting; a plain list is still
				// better than an empty result.
				in.Lists[spec.Key] = plain
			}
		}
	}

	if in.Empty() {
		if summary := firstParagraph(raw, p.minSummaryLen()); summary != "" {
			in.Summary = summary
		}
	}
	return in
}

// extractSection tries the primary name and then each alias through the
// ordered strategy chain.
func (p *Parser) extractSection(text string, spec SectionSpec) (string, bool) {
	names := append([]string{spec.Key}, spec.Aliases...)
	for _, name := range names {
		if body, ok := extractNamedSection(text, name, p.minSectionLen()); ok {
			return body, true
		}
	}
	return "", false
}

// validateIssues flags issue items whose "Proposed Fix:" label carries no
// usable value. The item is kept either way; the warning exists for
// visibility, not filtering.
func (p *Parser) validateIssues(key string, items []string) {
	for _, item := range items {
		idx := indexCaseInsensitive(item, "proposed fix:")
		if idx < 0 {
			continue
		}
		fix := strings.TrimSpace(item[idx+len("proposed fix:"):])
		if len(fix) >= p.minFixLen() {
			continue
		}
		preview := item
		if len(preview) > warnTruncateLen {
			preview = preview[:warnTruncateLen]
		}
		p.logger().Printf("insight: %s item has missing or too-short proposed fix: %q", key, preview)
	}
}

func indexCaseInsensitive(s, sub string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(sub))
}

// firstParagraph returns the first blank-line-delimited block longer than
// min characters, so a completely off-schema reply still yields something.
func firstParagraph(text string, min int) string {
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if len(block) > min {
			return block
		}
	}
	return ""
}
