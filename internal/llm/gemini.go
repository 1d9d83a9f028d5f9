package llm

import (
	"context"
	"encoding/json"
	"log"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself; retries and logging are
// applied via Middleware.
type GeminiClient struct {
	cli    *genai.Client
	model  string
	effort Effort
}

func NewGeminiClient(ctx context.Context, apiKey, model string, effort Effort) (*GeminiClient, error) {
	// NOTE: apiKey is currently unused here; the genai client reads it from env.
	// Keep the parameter for a consistent factory signature.
	_ = apiKey

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if effort == "" {
		effort = EffortMedium
	}
	return &GeminiClient{cli: cli, model: model, effort: effort}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// thinkingBudget maps the effort knob onto the model's thinking budget.
// Zero disables extended thinking entirely.
func (g *GeminiClient) thinkingBudget() int32 {
	switch g.effort {
	case EffortLow:
		return 0
	case EffortHigh:
		return 8192
	default:
		return 2048
	}
}

func (g *GeminiClient) config() *genai.GenerateContentConfig {
	budget := g.thinkingBudget()
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
}

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.MarshalIndent(input, "", "  ")
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)
	log.Printf("llm request (%s): %d bytes", g.model, len(full))

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		g.config(),
	)
	if err != nil {
		return nil, err
	}
	return firstJSONPart(resp)
}

// GenerateVisionJSON sends prompt text plus inline image bytes and
// requests application/json.
func (g *GeminiClient) GenerateVisionJSON(ctx context.Context, prompt string, img Image) (json.RawMessage, error) {
	log.Printf("llm vision request (%s): %d image bytes (%s)", g.model, len(img.Data), img.MIME)

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: img.MIME, Data: img.Data}},
		}}},
		g.config(),
	)
	if err != nil {
		return nil, err
	}
	return firstJSONPart(resp)
}

func firstJSONPart(resp *genai.GenerateContentResponse) (json.RawMessage, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	raw := json.RawMessage(txt)
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}
