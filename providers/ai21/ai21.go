// Package ai21 provides the AI21 Labs provider for LLMux library mode.
package ai21

import (
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/providers/openailike"
)

const (
	ProviderName   = "ai21"
	DefaultBaseURL = "https://api.ai21.com/studio/v1"
)

var providerInfo = openailike.Info{
	Name:              ProviderName,
	DefaultBaseURL:    DefaultBaseURL,
	SupportsStreaming: true,
	ModelPrefixes:     []string{"jamba-", "j2-"},
}

type Provider struct{ *openailike.Provider }

func New(opts ...openailike.Option) *Provider {
	return &Provider{Provider: openailike.New(providerInfo, opts...)}
}

func NewFromConfig(cfg provider.Config) (provider.Provider, error) {
	return openailike.NewFromConfig(providerInfo, cfg)
}
