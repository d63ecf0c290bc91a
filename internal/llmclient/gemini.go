package llmclient

import (
	"context"
	"errors"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string     { return "Gemini:" + g.model }
func (g *GeminiClient) Provider() string { return "gemini" }
func (g *GeminiClient) Close() error     { return nil }

// Generate maps conversation turns onto genai contents and returns the text
// of the first candidate. Assistant turns map to the "model" role.
func (g *GeminiClient) Generate(ctx context.Context, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		c := &genai.Content{Parts: []*genai.Part{{Text: t.Content}}}
		if t.Role == RoleAssistant {
			c.Role = genai.RoleModel
		} else {
			c.Role = genai.RoleUser
		}
		contents = append(contents, c)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", wrapGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// wrapGeminiError converts genai API errors into CallError so the retry
// layer can match on HTTP status and status strings.
func wrapGeminiError(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return &CallError{Message: ae.Message, Code: ae.Status, Status: ae.Code}
	}
	var aep *genai.APIError
	if errors.As(err, &aep) && aep != nil {
		return &CallError{Message: aep.Message, Code: aep.Status, Status: aep.Code}
	}
	return &CallError{Message: err.Error()}
}
