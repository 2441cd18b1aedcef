package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/corvex/llmgate/internal/cache"
	"github.com/corvex/llmgate/internal/cooldown"
	"github.com/corvex/llmgate/internal/healthcheck"
	"github.com/corvex/llmgate/internal/metrics"
	"github.com/corvex/llmgate/internal/observability"
	"github.com/corvex/llmgate/internal/pricing"
	"github.com/corvex/llmgate/internal/retry"
	"github.com/corvex/llmgate/internal/selector"
	"github.com/corvex/llmgate/internal/store"
	"github.com/corvex/llmgate/internal/telemetry"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/pkg/router"
	"github.com/corvex/llmgate/pkg/types"
)

// ManagedDeployment is one deployment registered under a model group: the
// static config plus the provider adapter that actually talks to it.
type ManagedDeployment struct {
	Deployment provider.Deployment
	Config     router.DeploymentConfig
	Provider   provider.Provider
}

// Config wires every collaborator Router needs. Groups keys a logical
// model group name (request.Model) to its candidate deployments; Fallbacks
// optionally maps a group to an ordered chain of fallback groups to try
// once the primary group is exhausted, per spec.md §4.6.
type Config struct {
	Groups      map[string][]ManagedDeployment
	Fallbacks   map[string][]string
	Strategy    router.Strategy
	States      *store.StateStore
	Cooldown    *cooldown.Manager
	Recorder    *metrics.Recorder
	Telemetry   *telemetry.Bus
	Cache       *cache.SingleFlightCache // nil disables response caching
	CacheTTL    time.Duration
	RetryConfig retry.Config
	HTTPClient  *http.Client
	Pricing     *pricing.Calculator

	// LatencyBuffer configures the lowest-latency strategy's tolerance; see
	// selector.Input.LatencyBuffer.
	LatencyBuffer float64

	// ProviderLookup resolves a deployment's ProviderName to the live
	// provider.Provider adapter, used by AddDeployment/AddDeploymentWithConfig
	// when a deployment is registered after construction (pickapi.go).
	ProviderLookup func(name string) (provider.Provider, bool)

	// DefaultProvider, when set, narrows resolve's candidate set to
	// deployments from this provider whenever at least one is available,
	// before the strategy scores them. Matches client.go's WithDefaultProvider.
	DefaultProvider string
}

// Router implements spec.md §4.9: the single orchestrator gluing
// deployment selection, the retry/fallback engine, response caching,
// metrics, and telemetry behind one call surface per mode.
type Router struct {
	mu sync.RWMutex

	groups    map[string][]ManagedDeployment
	byID      map[string]ManagedDeployment
	groupByID map[string]string // deployment ID -> owning group, for pickapi.go's Report* calls
	fallbacks map[string][]string

	sel           selector.Selector
	strategy      router.Strategy
	latencyBuffer float64
	states        *store.StateStore
	cooldown      *cooldown.Manager
	recorder      *metrics.Recorder
	telemetry     *telemetry.Bus
	cache         *cache.SingleFlightCache
	cacheTTL      time.Duration
	pricing       *pricing.Calculator

	providerLookup  func(name string) (provider.Provider, bool)
	defaultProvider string

	client  *ProviderClient
	engine  *retry.Engine
	checker *healthcheck.Checker
}

// NewRouter builds a Router from cfg, grounded on client.go's New(opts...)
// construction (Provider/Router/Cache wiring performed once up front).
func NewRouter(cfg Config) (*Router, error) {
	if cfg.States == nil {
		return nil, fmt.Errorf("gateway: Config.States is required")
	}
	if cfg.Cooldown == nil {
		return nil, fmt.Errorf("gateway: Config.Cooldown is required")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewRecorder(cfg.States, nil, metrics.DefaultRecorderConfig())
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.New()
	}
	if cfg.Pricing == nil {
		cfg.Pricing = pricing.NewCalculator(nil)
	}

	sel, err := selector.New(cfg.Strategy, cfg.States, nil)
	if err != nil {
		return nil, err
	}

	r := &Router{
		groups:         make(map[string][]ManagedDeployment, len(cfg.Groups)),
		byID:           make(map[string]ManagedDeployment),
		groupByID:      make(map[string]string),
		fallbacks:      cfg.Fallbacks,
		sel:            sel,
		strategy:       cfg.Strategy,
		latencyBuffer:  cfg.LatencyBuffer,
		states:         cfg.States,
		cooldown:       cfg.Cooldown,
		recorder:       cfg.Recorder,
		telemetry:      cfg.Telemetry,
		cache:          cfg.Cache,
		cacheTTL:       cfg.CacheTTL,
		pricing:         cfg.Pricing,
		providerLookup:  cfg.ProviderLookup,
		defaultProvider: cfg.DefaultProvider,
		client:          NewProviderClient(cfg.HTTPClient),
	}
	for group, deployments := range cfg.Groups {
		r.groups[group] = deployments
		for _, d := range deployments {
			r.byID[d.Deployment.ID] = d
			r.groupByID[d.Deployment.ID] = group
		}
	}

	hooks := retry.Hooks{
		OnAttemptFailure: func(ctx context.Context, group, deploymentID string, kind llmerrors.ErrorKind, err error) {
			r.recorder.OnFailure(ctx, metrics.Event{Group: group, DeploymentID: deploymentID, End: time.Now()}, kind)
		},
		OnCooldown: func(ctx context.Context, group, deploymentID string, duration time.Duration) {
			r.telemetry.EmitFallback(ctx, group, group, fmt.Errorf("deployment %s cooling down for %s", deploymentID, duration), false)
		},
	}
	r.engine = retry.NewEngine(cfg.RetryConfig, sel, cfg.Cooldown, hooks)
	return r, nil
}

// fallbackChain returns group plus its configured fallback groups, in order.
func (r *Router) fallbackChain(group string) []string {
	chain := []string{group}
	return append(chain, r.fallbacks[group]...)
}

// resolve is the retry.Engine Resolver: live candidates for group, filtered
// for cooldown (health filtering happens once healthcheck.Readiness feeds
// Store["health:{id}"] — see internal/healthcheck).
func (r *Router) resolve(ctx context.Context, group string) ([]selector.Deployment, error) {
	r.mu.RLock()
	managed := r.groups[group]
	r.mu.RUnlock()

	out := make([]selector.Deployment, 0, len(managed))
	for _, md := range managed {
		cooling, err := r.cooldown.IsCooling(ctx, md.Deployment.ID)
		if err == nil && cooling {
			continue
		}
		out = append(out, selector.Deployment{
			ID:                 md.Deployment.ID,
			ProviderName:       md.Deployment.ProviderName,
			TPMLimit:           md.Config.TPMLimit,
			RPMLimit:           md.Config.RPMLimit,
			Weight:             md.Config.Weight,
			InputCostPerToken:  md.Config.InputCostPerToken,
			OutputCostPerToken: md.Config.OutputCostPerToken,
		})
	}
	return filterByDefaultProvider(out, r.defaultProvider), nil
}

// filterByDefaultProvider narrows candidates to defaultProvider's deployments
// when any are present, else falls back to the full set, matching the
// teacher's routers/base.go BaseRouter.filterByDefaultProvider.
func filterByDefaultProvider(candidates []selector.Deployment, defaultProvider string) []selector.Deployment {
	if defaultProvider == "" || len(candidates) == 0 {
		return candidates
	}
	preferred := make([]selector.Deployment, 0, len(candidates))
	for _, d := range candidates {
		if d.ProviderName == defaultProvider {
			preferred = append(preferred, d)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return candidates
}

func (r *Router) lookup(id string) (ManagedDeployment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.byID[id]
	return md, ok
}

// classify adapts gateway.ClassifyError to retry.Classifier's shape.
// LLMError carries no provider-supplied Retry-After hint (see pkg/errors),
// so retryAfter is always 0 and the engine falls back to its own backoff.
func (r *Router) classify(err error) (llmerrors.ErrorKind, time.Duration) {
	kind, _, _ := ClassifyError(err)
	return kind, 0
}

// runRequestLifecycle is the spec.md §4.9 pipeline shared by every call
// mode: resolve/pick/invoke via the retry engine, record metrics, and emit
// telemetry around the call.
func (r *Router) runRequestLifecycle(ctx context.Context, callType observability.CallType, model string, streaming bool, estimatedInputTokens int, invoke func(ctx context.Context, md ManagedDeployment) (respUsage usageInfo, result any, err error)) (any, *observability.StandardLoggingPayload, error) {
	groups := r.fallbackChain(model)
	ev := &observability.StandardLoggingPayload{
		ID:             uuid.NewString(),
		RequestID:      uuid.NewString(),
		CallType:       callType,
		RequestedModel: model,
		StartTime:      time.Now(),
	}
	r.telemetry.EmitPreCall(ctx, ev)

	in := selector.Input{Streaming: streaming, EstimatedInputTokens: estimatedInputTokens}

	result, err := r.engine.Invoke(ctx, groups, in, r.resolve, r.classify, func(callCtx context.Context, group string, d selector.Deployment) (any, error) {
		md, ok := r.lookup(d.ID)
		if !ok {
			return nil, fmt.Errorf("gateway: unknown deployment %q", d.ID)
		}
		ev.Model = md.Deployment.ModelName
		ev.ModelID = &md.Deployment.ID
		ev.ModelGroup = &group
		ev.APIBase = md.Deployment.BaseURL
		ev.APIProvider = md.Deployment.ProviderName

		r.recorder.OnRequestStart(callCtx, group, md.Deployment.ID, md.Deployment.ModelName, md.Deployment.ProviderName)
		start := time.Now()
		usage, resp, callErr := invoke(callCtx, md)
		end := time.Now()
		r.recorder.OnRequestEnd(context.Background(), group, md.Deployment.ID, md.Deployment.ModelName, md.Deployment.ProviderName)

		if callErr != nil {
			kind, _, _ := ClassifyError(callErr)
			_ = r.recorder.OnFailure(context.Background(), metrics.Event{
				Group: group, DeploymentID: md.Deployment.ID, Model: md.Deployment.ModelName,
				Provider: md.Deployment.ProviderName, APIBase: md.Deployment.BaseURL,
				Start: start, End: end, Streaming: streaming,
			}, kind)
			return nil, callErr
		}

		cost := r.pricing.Calculate(md.Deployment.ModelName, usage.inputTokens, usage.outputTokens)
		_ = r.recorder.OnSuccess(context.Background(), metrics.Event{
			Group: group, DeploymentID: md.Deployment.ID, Model: md.Deployment.ModelName,
			Provider: md.Deployment.ProviderName, APIBase: md.Deployment.BaseURL,
			Start: start, End: end, Streaming: streaming,
			InputTokens: usage.inputTokens, OutputTokens: usage.outputTokens,
			TotalTokens: usage.inputTokens + usage.outputTokens, Cost: cost,
		})
		ev.PromptTokens = usage.inputTokens
		ev.CompletionTokens = usage.outputTokens
		ev.TotalTokens = usage.inputTokens + usage.outputTokens
		ev.ResponseCost = cost
		return resp, nil
	})

	ev.EndTime = time.Now()
	if err != nil {
		ev.Status = observability.RequestStatusFailure
		r.telemetry.EmitFailure(ctx, ev, err)
		r.telemetry.EmitPostCall(ctx, ev)
		return nil, ev, err
	}
	ev.Status = observability.RequestStatusSuccess
	r.telemetry.EmitPostCall(ctx, ev)
	r.telemetry.EmitSuccess(ctx, ev)
	return result, ev, nil
}

// usageInfo carries the token counts runRequestLifecycle needs for pricing
// and telemetry, independent of which response type actually held them.
type usageInfo struct {
	inputTokens  int
	outputTokens int
}

// Completion implements the chat completion call mode, with fingerprint-
// keyed single-flight caching in front of the retry engine.
func (r *Router) Completion(ctx context.Context, req *types.ChatRequest, ctrl *cache.CacheControl) (*types.ChatResponse, error) {
	load := func(ctx context.Context) ([]byte, error) {
		result, _, err := r.runRequestLifecycle(ctx, observability.CallTypeChatCompletion, req.Model, req.Stream, estimateRequestTokens(req), func(callCtx context.Context, md ManagedDeployment) (usageInfo, any, error) {
			resp, err := r.client.InvokeChat(callCtx, md.Provider, req)
			if err != nil {
				return usageInfo{}, nil, err
			}
			u := usageInfo{}
			if resp.Usage != nil {
				u = usageInfo{inputTokens: resp.Usage.PromptTokens, outputTokens: resp.Usage.CompletionTokens}
			}
			return u, resp, nil
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(result.(*types.ChatResponse))
	}

	raw, err := r.withCache(ctx, req.Model, req, ctrl, load)
	if err != nil {
		return nil, err
	}
	var resp types.ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: decode cached chat response: %w", err)
	}
	return &resp, nil
}

// Embedding implements the embedding call mode.
func (r *Router) Embedding(ctx context.Context, req *types.EmbeddingRequest, ctrl *cache.CacheControl) (*types.EmbeddingResponse, error) {
	load := func(ctx context.Context) ([]byte, error) {
		result, _, err := r.runRequestLifecycle(ctx, observability.CallTypeEmbedding, req.Model, false, 0, func(callCtx context.Context, md ManagedDeployment) (usageInfo, any, error) {
			resp, err := r.client.InvokeEmbedding(callCtx, md.Provider, req)
			if err != nil {
				return usageInfo{}, nil, err
			}
			return usageInfo{inputTokens: resp.Usage.PromptTokens, outputTokens: 0}, resp, nil
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(result.(*types.EmbeddingResponse))
	}

	raw, err := r.withCache(ctx, req.Model, req, ctrl, load)
	if err != nil {
		return nil, err
	}
	var resp types.EmbeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: decode cached embedding response: %w", err)
	}
	return &resp, nil
}

// Transcription implements the audio_transcription call mode. Never cached:
// audio inputs are large and rarely repeat byte-for-byte.
func (r *Router) Transcription(ctx context.Context, req *types.TranscriptionRequest) (*types.TranscriptionResponse, error) {
	result, _, err := r.runRequestLifecycle(ctx, observability.CallTypeAudioTranscr, req.Model, false, 0, func(callCtx context.Context, md ManagedDeployment) (usageInfo, any, error) {
		resp, err := r.client.InvokeTranscription(callCtx, md.Provider, req)
		if err != nil {
			return usageInfo{}, nil, err
		}
		return usageInfo{}, resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.TranscriptionResponse), nil
}

// ImageGeneration implements the image_generation call mode.
func (r *Router) ImageGeneration(ctx context.Context, req *types.ImageGenerationRequest) (*types.ImageGenerationResponse, error) {
	result, _, err := r.runRequestLifecycle(ctx, observability.CallTypeImageGen, req.Model, false, 0, func(callCtx context.Context, md ManagedDeployment) (usageInfo, any, error) {
		resp, err := r.client.InvokeImageGeneration(callCtx, md.Provider, req)
		if err != nil {
			return usageInfo{}, nil, err
		}
		return usageInfo{}, resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.ImageGenerationResponse), nil
}

// Rerank implements the rerank call mode.
func (r *Router) Rerank(ctx context.Context, req *types.RerankRequest) (*types.RerankResponse, error) {
	result, _, err := r.runRequestLifecycle(ctx, observability.CallTypeRerank, req.Model, false, 0, func(callCtx context.Context, md ManagedDeployment) (usageInfo, any, error) {
		resp, err := r.client.InvokeRerank(callCtx, md.Provider, req)
		if err != nil {
			return usageInfo{}, nil, err
		}
		return usageInfo{}, resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.RerankResponse), nil
}

// withCache runs load through the single-flight cache keyed by a
// group+params+content fingerprint, or runs it directly when caching is
// disabled or the caller opted out via CacheControl.
func (r *Router) withCache(ctx context.Context, group string, req any, ctrl *cache.CacheControl, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if r.cache == nil || (ctrl != nil && ctrl.NoCache) {
		return load(ctx)
	}
	params, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: normalize request for cache key: %w", err)
	}
	fp := string(cache.ComputeFingerprint(group, params, ""))
	ttl := r.cacheTTL
	if ctrl != nil && ctrl.TTL > 0 {
		ttl = ctrl.TTL
	}
	raw, _, err := r.cache.GetOrLoad(ctx, fp, ttl, load)
	return raw, err
}

// estimateRequestTokens gives the selector a rough input-token estimate for
// TPM-aware strategies before the real count is known post-response,
// matching client.go's pre-flight estimate (~4 characters per token).
func estimateRequestTokens(req *types.ChatRequest) int {
	chars := 0
	for _, m := range req.Messages {
		chars += len(m.Content)
	}
	return chars / 4
}
