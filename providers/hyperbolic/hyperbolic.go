// Package hyperbolic provides the Hyperbolic provider for LLMux library mode.
package hyperbolic

import (
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/providers/openailike"
)

const (
	ProviderName   = "hyperbolic"
	DefaultBaseURL = "https://api.hyperbolic.xyz/v1"
)

var providerInfo = openailike.Info{
	Name:              ProviderName,
	DefaultBaseURL:    DefaultBaseURL,
	SupportsStreaming: true,
	ModelPrefixes:     []string{"meta-llama/", "Qwen/", "deepseek-ai/"},
}

type Provider struct{ *openailike.Provider }

func New(opts ...openailike.Option) *Provider {
	return &Provider{Provider: openailike.New(providerInfo, opts...)}
}

func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(providerInfo, cfg)
}
