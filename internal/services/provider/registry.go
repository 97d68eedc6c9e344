package provider

import (
	"github.com/rs/zerolog/log"
)

// Settings carries the per-provider credentials and model identifiers used to
// build the adapter set for a run. An empty key means the provider is not
// configured and its adapter is not constructed.
type Settings struct {
	OpenAIKey       string
	OpenAIModel     string
	AnthropicKey    string
	AnthropicModel  string
	AnthropicID     string
	PerplexityKey   string
	PerplexityModel string
	DeepSeekKey     string
	DeepSeekModel   string
	GrokKey         string
}

// Build constructs every adapter whose credential is present. A constructor
// failure (malformed credential, unimplemented provider) is logged as a
// warning and that adapter is excluded; it never aborts initialization.
// Callers are responsible for treating an empty result as a fatal
// configuration error.
func Build(settings Settings) []Provider {
	var providers []Provider

	add := func(name string, p Provider, err error) {
		if err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("Provider failed to initialize, excluding from run")
			return
		}
		log.Info().Str("provider", p.ID()).Str("name", p.Name()).Msg("Provider initialized")
		providers = append(providers, p)
	}

	if settings.OpenAIKey != "" {
		p, err := NewOpenAIProvider(settings.OpenAIKey, settings.OpenAIModel, "GPT "+settings.OpenAIModel)
		add("openai", p, err)
	}

	if settings.AnthropicKey != "" {
		p, err := NewAnthropicProvider(settings.AnthropicKey, settings.AnthropicModel, settings.AnthropicID, "Claude "+settings.AnthropicID)
		add("anthropic", p, err)
	}

	if settings.PerplexityKey != "" {
		p, err := NewPerplexityProvider(settings.PerplexityKey, settings.PerplexityModel, "Sonar Pro")
		add("perplexity", p, err)
	}

	if settings.DeepSeekKey != "" {
		p, err := NewDeepSeekProvider(settings.DeepSeekKey, settings.DeepSeekModel, "DeepSeek Chat")
		add("deepseek", p, err)
	}

	if settings.GrokKey != "" {
		p, err := NewGrokProvider(settings.GrokKey)
		add("grok", p, err)
	}

	return providers
}
