// Package insight turns raw model output into structured findings. The
// parser never fails on malformed input: it degrades to heuristic fallbacks
// and always preserves the original text for downstream display.
package insight

// StructuredItem is a titled finding with optional file/function references.
type StructuredItem struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	RelevantFiles     []string `json:"relevantFiles,omitempty"`
	RelevantFunctions []string `json:"relevantFunctions,omitempty"`
}

// Insight is the parsed form of one model reply. Every key is independently
// optional; absence means "not found", never an error.
type Insight struct {
	// Sections holds free-text sections keyed by section name.
	Sections map[string]string `json:"sections,omitempty"`
	// Lists holds bulleted/numbered list sections keyed by section name.
	Lists map[string][]string `json:"lists,omitempty"`
	// Items holds structured records keyed by section name.
	Items map[string][]StructuredItem `json:"items,omitempty"`
	// Summary is the fallback synopsis when no structure was found.
	Summary string `json:"summary,omitempty"`
	// Raw is the original reply, verbatim.
	Raw string `json:"raw"`
}

// Empty reports whether nothing beyond the raw text was extracted.
func (in *Insight) Empty() bool {
	return len(in.Sections) == 0 && len(in.Lists) == 0 && len(in.Items) == 0 && in.Summary == ""
}

// SectionKind selects the extraction applied to a named section.
type SectionKind int

const (
	// SectionText keeps the section body as free text.
	SectionText SectionKind = iota
	// SectionList extracts a plain string list.
	SectionList
	// SectionIssues extracts a list and validates "Proposed Fix:" labels.
	SectionIssues
	// SectionStructured extracts labeled Title/Description/Files/Functions
	// records, falling back to a plain list when no labels are present.
	SectionStructured
)

// SectionSpec names one section the parser looks for. Aliases are tried in
// order after the primary name.
type SectionSpec struct {
	Key     string
	Kind    SectionKind
	Aliases []string
}

// DefaultSections is the section plan for architecture reviews.
func DefaultSections() []SectionSpec {
	return []SectionSpec{
		{Key: "Summary", Kind: SectionText, Aliases: []string{"Overview"}},
		{Key: "Strengths", Kind: SectionList},
		{Key: "Weaknesses", Kind: SectionList, Aliases: []string{"Concerns"}},
		{Key: "Issues", Kind: SectionIssues, Aliases: []string{"Problems", "Architectural Issues"}},
		{Key: "Recommendations", Kind: SectionStructured, Aliases: []string{"Suggestions"}},
		{Key: "Priorities", Kind: SectionStructured, Aliases: []string{"Priority Items", "Next Steps"}},
	}
}
