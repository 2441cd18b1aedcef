// Package gateway implements spec.md §4.9's Router orchestrator: the
// pipeline that glues Store, Cache, Selector, CooldownManager,
// Retry/FallbackEngine, MetricsRecorder and TelemetryBus together behind
// one call surface, adapting client.go's ChatCompletion lifecycle
// (deployment acquisition, HTTP execution, status-code-driven error
// mapping) into the explicit spec.md §6.2 Router surface.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corvex/llmgate/internal/httputil"
	"github.com/corvex/llmgate/pkg/errors"
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/pkg/types"
)

// ProviderClient adapts pkg/provider.Provider (build/send/parse) into the
// single Invoke shape internal/retry.Engine calls, grounded on client.go's
// HTTP-execution block: status >= 500 and retryable 4xx map through
// Provider.MapError, body reads are bounded via httputil.ReadLimitedBody.
type ProviderClient struct {
	httpClient *http.Client
}

// NewProviderClient wraps httpClient (the caller's configured transport,
// timeouts, proxy, etc.). A nil httpClient uses http.DefaultClient.
func NewProviderClient(httpClient *http.Client) *ProviderClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProviderClient{httpClient: httpClient}
}

// InvokeChat builds, sends and parses a chat completion call for one
// deployment's provider.
func (c *ProviderClient) InvokeChat(ctx context.Context, prov provider.Provider, req *types.ChatRequest) (*types.ChatResponse, error) {
	httpReq, err := prov.BuildRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	resp, err := c.doAndKeepResponse(ctx, prov, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return prov.ParseResponse(resp)
}

// InvokeEmbedding builds, sends and parses an embedding call.
func (c *ProviderClient) InvokeEmbedding(ctx context.Context, prov provider.Provider, req *types.EmbeddingRequest) (*types.EmbeddingResponse, error) {
	httpReq, err := prov.BuildEmbeddingRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	resp, err := c.doAndKeepResponse(ctx, prov, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return prov.ParseEmbeddingResponse(resp)
}

// InvokeTranscription builds, sends and parses a transcription call.
// Returns a BadRequest-class LLMError if the deployment's provider doesn't
// implement provider.TranscriptionProvider.
func (c *ProviderClient) InvokeTranscription(ctx context.Context, prov provider.Provider, req *types.TranscriptionRequest) (*types.TranscriptionResponse, error) {
	tp, ok := prov.(provider.TranscriptionProvider)
	if !ok {
		return nil, errors.NewInvalidRequestError(prov.Name(), req.Model, "provider does not support audio transcription")
	}
	httpReq, err := tp.BuildTranscriptionRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	resp, err := c.doAndKeepResponse(ctx, prov, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return tp.ParseTranscriptionResponse(resp)
}

// InvokeImageGeneration builds, sends and parses an image generation call.
func (c *ProviderClient) InvokeImageGeneration(ctx context.Context, prov provider.Provider, req *types.ImageGenerationRequest) (*types.ImageGenerationResponse, error) {
	ip, ok := prov.(provider.ImageGenerationProvider)
	if !ok {
		return nil, errors.NewInvalidRequestError(prov.Name(), req.Model, "provider does not support image generation")
	}
	httpReq, err := ip.BuildImageGenerationRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build image generation request: %w", err)
	}
	resp, err := c.doAndKeepResponse(ctx, prov, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return ip.ParseImageGenerationResponse(resp)
}

// InvokeRerank builds, sends and parses a rerank call.
func (c *ProviderClient) InvokeRerank(ctx context.Context, prov provider.Provider, req *types.RerankRequest) (*types.RerankResponse, error) {
	rp, ok := prov.(provider.RerankProvider)
	if !ok {
		return nil, errors.NewInvalidRequestError(prov.Name(), req.Model, "provider does not support rerank")
	}
	httpReq, err := rp.BuildRerankRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	resp, err := c.doAndKeepResponse(ctx, prov, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return rp.ParseRerankResponse(resp)
}

// doAndKeepResponse executes req and, on a 2xx status, returns the
// *http.Response still open (body not yet consumed) so the caller's
// mode-specific ParseX(resp) can deserialize it directly, matching
// Provider.ParseResponse's signature (it takes *http.Response, not a
// []byte). On >=400 it reads the bounded body and maps it through
// Provider.MapError, grounded on client.go's status-code dispatch.
func (c *ProviderClient) doAndKeepResponse(ctx context.Context, prov provider.Provider, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
		resp.Body.Close()
		return nil, prov.MapError(resp.StatusCode, body)
	}
	return resp, nil
}

// ClassifyError derives an errors.ErrorKind + retry policy from any error
// InvokeX can return, for internal/retry.Engine's Classifier hook.
func ClassifyError(err error) (errors.ErrorKind, bool, errors.Retriability) {
	if llmErr, ok := err.(*errors.LLMError); ok {
		return errors.ClassifyError(llmErr)
	}
	// Connection-level failures (refused/reset/DNS/timeout) never reach
	// MapError; treat them as a generic InternalServerError-class transient
	// failure so the retry engine still cools down and retries elsewhere.
	kind := errors.KindInternalServerError
	transient, retry := errors.Classify(kind)
	return kind, transient, retry
}
