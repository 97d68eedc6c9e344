package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"citation-monitor/internal/services/citation"
)

// AnthropicProvider queries a Claude model through the Messages API with the
// web_search server tool enabled. Claude does not expose structured citation
// annotations here, so cited URLs are recovered from the answer text with the
// citation package's regexes; the issued search query comes from the
// web_search tool-use block's input.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	id     string
	name   string
}

func NewAnthropicProvider(apiKey, model, id, name string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("Anthropic model is required")
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		id:     id,
		name:   name,
	}, nil
}

func (p *AnthropicProvider) ID() string {
	return p.id
}

func (p *AnthropicProvider) Name() string {
	return p.name
}

func (p *AnthropicProvider) Query(ctx context.Context, prompt string) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{}},
		},
	}

	start := time.Now()
	msg, err := p.client.Messages.New(ctx, params)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, &CallError{Provider: p.ID(), Err: err}
	}

	// Assemble the answer from the text blocks; tool-use and search-result
	// blocks are interleaved in the same content list.
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Response{
		Text:      text.String(),
		ElapsedMS: elapsed,
		Raw:       json.RawMessage(msg.RawJSON()),
	}, nil
}

// anthropicMessageBody mirrors the slice of the Messages API schema the
// extractor cares about. The web_search tool surfaces either as a client
// tool_use block or a server_tool_use block depending on API version, so
// both are accepted.
type anthropicMessageBody struct {
	Content []struct {
		Type  string `json:"type"`
		Text  string `json:"text"`
		Name  string `json:"name"`
		Input struct {
			Query string `json:"query"`
		} `json:"input"`
	} `json:"content"`
}

func (p *AnthropicProvider) ExtractMetadata(resp *Response) (string, []string) {
	if resp == nil || len(resp.Raw) == 0 {
		return "", nil
	}

	var body anthropicMessageBody
	if err := json.Unmarshal(resp.Raw, &body); err != nil {
		return "", nil
	}

	var searchQuery string
	var urls []string
	for _, block := range body.Content {
		switch block.Type {
		case "tool_use", "server_tool_use":
			if block.Name == "web_search" && block.Input.Query != "" {
				searchQuery = block.Input.Query
			}
		case "text":
			urls = append(urls, citation.ExtractURLs(block.Text)...)
		}
	}

	return searchQuery, citation.Normalize(urls)
}
