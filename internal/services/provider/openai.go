package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"

	"citation-monitor/internal/services/citation"
)

// OpenAIProvider queries an OpenAI model through the Responses API with the
// web_search tool enabled. Citations come back as structured url_citation
// annotations, so no free-text URL scanning is needed.
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAIProvider(apiKey, model, name string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("OpenAI model is required")
	}

	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		name:   name,
	}, nil
}

func (p *OpenAIProvider) ID() string {
	return p.model
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Query(ctx context.Context, prompt string) (*Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		Tools: []responses.ToolUnionParam{
			{OfWebSearch: &responses.WebSearchToolParam{Type: responses.WebSearchToolTypeWebSearch}},
		},
	}

	start := time.Now()
	resp, err := p.client.Responses.New(ctx, params)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, &CallError{Provider: p.ID(), Err: err}
	}

	return &Response{
		Text:      resp.OutputText(),
		ElapsedMS: elapsed,
		Raw:       json.RawMessage(resp.RawJSON()),
	}, nil
}

// openaiResponseBody mirrors the slice of the Responses API schema the
// extractor cares about: web_search_call items carry the issued search query
// in their action payload, and message items carry content blocks whose
// url_citation annotations hold the cited URLs.
type openaiResponseBody struct {
	Output []struct {
		Type   string `json:"type"`
		Action struct {
			Query string `json:"query"`
		} `json:"action"`
		Content []struct {
			Annotations []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
}

func (p *OpenAIProvider) ExtractMetadata(resp *Response) (string, []string) {
	if resp == nil || len(resp.Raw) == 0 {
		return "", nil
	}

	var body openaiResponseBody
	if err := json.Unmarshal(resp.Raw, &body); err != nil {
		return "", nil
	}

	var searchQuery string
	var urls []string
	for _, item := range body.Output {
		switch item.Type {
		case "web_search_call":
			if item.Action.Query != "" {
				searchQuery = item.Action.Query
			}
		case "message":
			for _, content := range item.Content {
				for _, annotation := range content.Annotations {
					if annotation.Type == "url_citation" && annotation.URL != "" {
						urls = append(urls, annotation.URL)
					}
				}
			}
		}
	}

	return searchQuery, citation.Normalize(urls)
}
