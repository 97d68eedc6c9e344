package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"citation-monitor/internal/services/citation"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// PerplexityProvider queries a Perplexity Sonar model. Perplexity exposes an
// OpenAI-compatible chat completions API, so the OpenAI client is reused with
// a different base URL. Search runs server-side on every request; the
// response carries a first-class citations array, and the issued search query
// is never exposed.
type PerplexityProvider struct {
	client openai.Client
	model  string
	name   string
}

func NewPerplexityProvider(apiKey, model, name string) (*PerplexityProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Perplexity API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("Perplexity model is required")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(perplexityBaseURL),
	)

	return &PerplexityProvider{
		client: client,
		model:  model,
		name:   name,
	}, nil
}

func (p *PerplexityProvider) ID() string {
	return p.model
}

func (p *PerplexityProvider) Name() string {
	return p.name
}

func (p *PerplexityProvider) Query(ctx context.Context, prompt string) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, &CallError{Provider: p.ID(), Err: err}
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return &Response{
		Text:      text,
		ElapsedMS: elapsed,
		Raw:       json.RawMessage(resp.RawJSON()),
	}, nil
}

// perplexityResponseBody covers the Perplexity extension to the chat
// completions schema: a top-level citations array of URLs.
type perplexityResponseBody struct {
	Citations []string `json:"citations"`
}

func (p *PerplexityProvider) ExtractMetadata(resp *Response) (string, []string) {
	if resp == nil || len(resp.Raw) == 0 {
		return "", nil
	}

	var body perplexityResponseBody
	if err := json.Unmarshal(resp.Raw, &body); err != nil {
		return "", nil
	}

	return "", citation.Normalize(body.Citations)
}
