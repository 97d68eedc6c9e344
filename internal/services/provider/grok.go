package provider

import (
	"context"
	"fmt"
)

// GrokProvider is a placeholder for the xAI API. Construction fails with
// ErrNotImplemented, which the registry logs and treats like any other
// initialization failure, excluding the provider from the run.
type GrokProvider struct{}

func NewGrokProvider(apiKey string) (*GrokProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Grok API key is required")
	}
	return nil, fmt.Errorf("grok: %w", ErrNotImplemented)
}

func (p *GrokProvider) ID() string {
	return "grok-2"
}

func (p *GrokProvider) Name() string {
	return "Grok 2"
}

func (p *GrokProvider) Query(ctx context.Context, prompt string) (*Response, error) {
	return nil, &CallError{Provider: p.ID(), Err: ErrNotImplemented}
}

func (p *GrokProvider) ExtractMetadata(resp *Response) (string, []string) {
	return "", nil
}
