package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConstructsConfiguredProviders(t *testing.T) {
	providers := Build(Settings{
		OpenAIKey:       "sk-test",
		OpenAIModel:     "gpt-5-mini",
		AnthropicKey:    "sk-ant-test",
		AnthropicModel:  "claude-sonnet-4-5-20250929",
		AnthropicID:     "claude-sonnet-4-5",
		PerplexityKey:   "pplx-test",
		PerplexityModel: "sonar-pro",
		DeepSeekKey:     "ds-test",
		DeepSeekModel:   "deepseek-chat",
	})

	require.Len(t, providers, 4)

	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"gpt-5-mini", "claude-sonnet-4-5", "sonar-pro", "deepseek-chat"}, ids)
}

func TestBuildSkipsProvidersWithoutCredentials(t *testing.T) {
	providers := Build(Settings{
		OpenAIKey:   "sk-test",
		OpenAIModel: "gpt-5-mini",
	})

	require.Len(t, providers, 1)
	assert.Equal(t, "gpt-5-mini", providers[0].ID())
}

func TestBuildExcludesUnimplementedStub(t *testing.T) {
	// Grok has a credential but its constructor reports ErrNotImplemented;
	// the registry must exclude it rather than crash or return a dud.
	providers := Build(Settings{GrokKey: "xai-test"})
	assert.Empty(t, providers)
}

func TestBuildExcludesMisconfiguredProvider(t *testing.T) {
	// A present key with a missing model is a constructor failure, not a
	// fatal error: the provider is dropped and the rest survive.
	providers := Build(Settings{
		OpenAIKey:     "sk-test",
		OpenAIModel:   "",
		PerplexityKey: "pplx-test",
	})
	assert.Empty(t, providers)
}

func TestBuildEmptySettings(t *testing.T) {
	assert.Empty(t, Build(Settings{}))
}
