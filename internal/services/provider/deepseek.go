package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const deepseekBaseURL = "https://api.deepseek.com"

// DeepSeekProvider queries DeepSeek's OpenAI-compatible chat completions
// API. DeepSeek has no web-search capability, so metadata extraction is a
// no-op: the citation check still runs over the raw answer text.
type DeepSeekProvider struct {
	client openai.Client
	model  string
	name   string
}

func NewDeepSeekProvider(apiKey, model, name string) (*DeepSeekProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("DeepSeek model is required")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(deepseekBaseURL),
	)

	return &DeepSeekProvider{
		client: client,
		model:  model,
		name:   name,
	}, nil
}

func (p *DeepSeekProvider) ID() string {
	return p.model
}

func (p *DeepSeekProvider) Name() string {
	return p.name
}

func (p *DeepSeekProvider) Query(ctx context.Context, prompt string) (*Response, error) {
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

func (p *DeepSeekProvider) ExtractMetadata(resp *Response) (string, []string) {
	return "", nil
}
