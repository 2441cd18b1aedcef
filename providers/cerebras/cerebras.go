// Package cerebras provides the Cerebras provider for LLMux library mode.
package cerebras

import (
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/providers/openailike"
)

const (
	ProviderName   = "cerebras"
	DefaultBaseURL = "https://api.cerebras.ai/v1"
)

var providerInfo = openailike.Info{
	Name:              ProviderName,
	DefaultBaseURL:    DefaultBaseURL,
	SupportsStreaming: true,
	ModelPrefixes:     []string{"llama3.1-"},
}

type Provider struct{ *openailike.Provider }

func New(opts ...openailike.Option) *Provider {
	return &Provider{Provider: openailike.New(providerInfo, opts...)}
}

func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(providerInfo, cfg)
}
