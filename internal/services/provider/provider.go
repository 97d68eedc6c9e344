package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by adapters that exist in the catalog but have
// no working implementation yet. The registry treats it like any other
// construction failure and excludes the provider from the run.
var ErrNotImplemented = errors.New("provider not implemented")

// CallError wraps a failed outbound API call with the provider it came from.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: call failed: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Response is the raw outcome of a single provider call. Text is the
// assembled answer text (possibly empty — an empty answer is a first-class
// outcome, not an error). Raw holds the provider's response JSON for
// metadata extraction. ElapsedMS measures the network call only, not any
// post-processing.
type Response struct {
	Text      string
	ElapsedMS int64
	Raw       json.RawMessage
}

// Provider is implemented once per language-model provider. Query performs
// one outbound API call, optionally with the provider's web-search capability
// enabled, and fails with a *CallError when the call errors or is rejected.
// ExtractMetadata parses the provider-specific response shape into the search
// query the model issued (empty if the provider doesn't expose one) and a
// cleaned, deduplicated list of cited URLs. It never fails: unexpected shapes
// degrade to no query and no URLs.
type Provider interface {
	ID() string
	Name() string
	Query(ctx context.Context, prompt string) (*Response, error)
	ExtractMetadata(resp *Response) (searchQuery string, citedURLs []string)
}
