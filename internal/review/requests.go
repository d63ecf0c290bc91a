package review

import (
	"encoding/json"
	"regexp"
	"strings"

	"archsight/internal/conversation"
)

var reJSONFence = regexp.MustCompile("(?s)```(?:json)?\\s*\n(.*?)```")

// requestsEnvelope is the object form a reply may use instead of a bare
// array.
type requestsEnvelope struct {
	Requests []json.RawMessage `json:"requests"`
}

// extractRequests pulls tool requests out of a reply. Requests arrive as a
// fenced JSON block holding either a bare array or {"requests": [...]}; the
// block is removed from the returned text. Elements that do not decode are
// skipped so one malformed request cannot void the rest.
func extractRequests(raw string) (string, []conversation.ToolRequest) {
	for _, m := range reJSONFence.FindAllStringSubmatchIndex(raw, -1) {
		body := raw[m[2]:m[3]]
		reqs, ok := decodeRequests(body)
		if !ok {
			continue
		}
		text := strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
		return text, reqs
	}
	return strings.TrimSpace(raw), nil
}

func decodeRequests(body string) ([]conversation.ToolRequest, bool) {
	body = strings.TrimSpace(body)
	var elems []json.RawMessage
	if strings.HasPrefix(body, "{") {
		var env requestsEnvelope
		if err := json.Unmarshal([]byte(body), &env); err != nil || env.Requests == nil {
			return nil, false
		}
		elems = env.Requests
	} else if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &elems); err != nil {
			return nil, false
		}
	} else {
		return nil, false
	}

	var reqs []conversation.ToolRequest
	for _, e := range elems {
		var r conversation.ToolRequest
		if err := json.Unmarshal(e, &r); err != nil {
			continue
		}
		reqs = append(reqs, r)
	}
	if len(reqs) == 0 && len(elems) > 0 {
		return nil, false
	}
	return reqs, true
}
