package conversation

import (
	"encoding/json"
	"fmt"
)

// RequestKind discriminates the tool-request union.
type RequestKind string

const (
	RequestFile RequestKind = "file"
	RequestGrep RequestKind = "grep"
)

// ToolRequest is a structured ask embedded in a generation reply for more
// context before producing a final answer. Exactly one kind is set:
// file (Path) or grep (Pattern, optional FilePattern/MaxResults).
type ToolRequest struct {
	Kind        RequestKind
	Path        string
	Pattern     string
	FilePattern string
	MaxResults  int
	Reason      string
}

// toolRequestWire is the JSON shape shared with the model:
//
//	{ "type": "file", "path": "...", "reason": "..." }
//	{ "type": "grep", "pattern": "...", "filePattern": "...", "maxResults": 20, "reason": "..." }
type toolRequestWire struct {
	Type        string `json:"type"`
	Path        string `json:"path,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	FilePattern string `json:"filePattern,omitempty"`
	MaxResults  int    `json:"maxResults,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (r ToolRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(toolRequestWire{
		Type:        string(r.Kind),
		Path:        r.Path,
		Pattern:     r.Pattern,
		FilePattern: r.FilePattern,
		MaxResults:  r.MaxResults,
		Reason:      r.Reason,
	})
}

func (r *ToolRequest) UnmarshalJSON(b []byte) error {
	var w toolRequestWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch RequestKind(w.Type) {
	case RequestFile:
		if w.Path == "" {
			return fmt.Errorf("conversation: file request without path")
		}
	case RequestGrep:
		if w.Pattern == "" {
			return fmt.Errorf("conversation: grep request without pattern")
		}
	default:
		return fmt.Errorf("conversation: unknown request type %q", w.Type)
	}
	*r = ToolRequest{
		Kind:        RequestKind(w.Type),
		Path:        w.Path,
		Pattern:     w.Pattern,
		FilePattern: w.FilePattern,
		MaxResults:  w.MaxResults,
		Reason:      w.Reason,
	}
	return nil
}
