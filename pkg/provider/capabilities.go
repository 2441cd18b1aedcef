package provider

import (
	"context"
	"net/http"

	"github.com/corvex/llmgate/pkg/types"
)

// The capability interfaces below are optional extensions to Provider: a
// concrete adapter implements one only if it actually supports that call
// mode. internal/gateway type-asserts for them so a deployment whose
// adapter lacks a capability fails with a clear NotFound-class error
// instead of a panic, rather than forcing every one of the 40 adapters to
// grow no-op methods.

// TranscriptionProvider is implemented by adapters supporting
// audio_transcription mode.
type TranscriptionProvider interface {
	Provider
	BuildTranscriptionRequest(ctx context.Context, req *types.TranscriptionRequest) (*http.Request, error)
	ParseTranscriptionResponse(resp *http.Response) (*types.TranscriptionResponse, error)
}

// ImageGenerationProvider is implemented by adapters supporting
// image_generation mode.
type ImageGenerationProvider interface {
	Provider
	BuildImageGenerationRequest(ctx context.Context, req *types.ImageGenerationRequest) (*http.Request, error)
	ParseImageGenerationResponse(resp *http.Response) (*types.ImageGenerationResponse, error)
}

// RerankProvider is implemented by adapters supporting rerank mode.
type RerankProvider interface {
	Provider
	BuildRerankRequest(ctx context.Context, req *types.RerankRequest) (*http.Request, error)
	ParseRerankResponse(resp *http.Response) (*types.RerankResponse, error)
}
