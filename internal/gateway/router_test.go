package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvex/llmgate/internal/cache"
	"github.com/corvex/llmgate/internal/cooldown"
	"github.com/corvex/llmgate/internal/observability"
	"github.com/corvex/llmgate/internal/store"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/pkg/router"
	"github.com/corvex/llmgate/pkg/types"
)

// fakeProvider is a minimal provider.Provider backed by an httptest.Server,
// grounded on client_test.go's httpMockProvider but covering the embedding
// surface gateway.ProviderClient also dispatches through.
type fakeProvider struct {
	name    string
	baseURL string

	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string               { return f.name }
func (f *fakeProvider) SupportedModels() []string   { return []string{"test-model"} }
func (f *fakeProvider) SupportsModel(m string) bool { return m == "test-model" }

func (f *fakeProvider) BuildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	body, _ := json.Marshal(req)
	return http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/chat/completions", bytes.NewReader(body))
}

func (f *fakeProvider) ParseResponse(resp *http.Response) (*types.ChatResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out types.ChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *fakeProvider) ParseStreamChunk(data []byte) (*types.StreamChunk, error) { return nil, nil }

func (f *fakeProvider) MapError(statusCode int, body []byte) error {
	return &llmerrors.LLMError{StatusCode: statusCode, Message: string(body), Type: llmerrors.TypeInternalError, Provider: f.name}
}

func (f *fakeProvider) SupportEmbedding() bool { return false }
func (f *fakeProvider) BuildEmbeddingRequest(ctx context.Context, req *types.EmbeddingRequest) (*http.Request, error) {
	return nil, fmt.Errorf("fakeProvider: embedding not supported")
}
func (f *fakeProvider) ParseEmbeddingResponse(resp *http.Response) (*types.EmbeddingResponse, error) {
	return nil, fmt.Errorf("fakeProvider: embedding not supported")
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func chatHandler(statusFor func(n int) int) http.HandlerFunc {
	var n atomic.Int64
	return func(w http.ResponseWriter, r *http.Request) {
		attempt := int(n.Add(1))
		status := http.StatusOK
		if statusFor != nil {
			status = statusFor(attempt)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"upstream failure"}`))
			return
		}
		resp := types.ChatResponse{
			ID:      "resp-1",
			Object:  "chat.completion",
			Model:   "test-model",
			Choices: []types.Choice{{Index: 0, Message: types.ChatMessage{Role: "assistant", Content: json.RawMessage(`"ok"`)}}},
			Usage:   &types.Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// testRouter bundles a *Router with its backend Store so tests can inspect
// recorded state (cooldowns, deployment stats) after a call.
type testRouter struct {
	*Router
	backend store.Store
}

func newTestRouter(t *testing.T, strategy router.Strategy, deployments ...ManagedDeployment) *testRouter {
	t.Helper()
	backend := store.NewMemoryStore()
	t.Cleanup(func() { _ = backend.Close() })

	groups := map[string][]ManagedDeployment{"test-model": deployments}
	r, err := NewRouter(Config{
		Groups:   groups,
		Strategy: strategy,
		States:   store.NewStateStore(backend, 0),
		Cooldown: cooldown.NewManager(backend),
	})
	require.NoError(t, err)
	return &testRouter{Router: r, backend: backend}
}

func TestRouter_Completion_Succeeds(t *testing.T) {
	server := httptest.NewServer(chatHandler(nil))
	defer server.Close()

	prov := &fakeProvider{name: "mock", baseURL: server.URL}
	dep := ManagedDeployment{
		Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"},
		Provider:   prov,
	}
	tr := newTestRouter(t, router.StrategySimpleShuffle, dep)

	resp, err := tr.Completion(context.Background(), &types.ChatRequest{Model: "test-model"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, 1, prov.callCount())
}

func TestRouter_Completion_ZeroTokenUsageSafety(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := types.ChatResponse{
			ID:      "resp-empty",
			Object:  "chat.completion",
			Model:   "test-model",
			Choices: []types.Choice{{Index: 0, Message: types.ChatMessage{Role: "assistant", Content: json.RawMessage(`"ok"`)}}},
			// Usage intentionally nil: providers may omit it (e.g. a
			// streaming-only upstream or an error-tolerant adapter).
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	prov := &fakeProvider{name: "mock", baseURL: server.URL}
	dep := ManagedDeployment{
		Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"},
		Provider:   prov,
	}
	tr := newTestRouter(t, router.StrategySimpleShuffle, dep)

	resp, err := tr.Completion(context.Background(), &types.ChatRequest{Model: "test-model"}, nil)
	require.NoError(t, err, "a nil Usage must not make Completion fail")
	assert.Equal(t, "resp-empty", resp.ID)

	stats := tr.GetStats("dep-1")
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.SuccessCount)
}

func TestRouter_Completion_RetriesAndCoolsDownFailedDeployment(t *testing.T) {
	failingServer := httptest.NewServer(chatHandler(func(int) int { return http.StatusInternalServerError }))
	defer failingServer.Close()
	healthyServer := httptest.NewServer(chatHandler(nil))
	defer healthyServer.Close()

	failing := &fakeProvider{name: "failing", baseURL: failingServer.URL}
	healthy := &fakeProvider{name: "healthy", baseURL: healthyServer.URL}

	depA := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-A", ProviderName: "failing", ModelName: "test-model"}, Provider: failing}
	depB := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-B", ProviderName: "healthy", ModelName: "test-model"}, Provider: healthy}
	tr := newTestRouter(t, router.StrategySimpleShuffle, depA, depB)

	resp, err := tr.Completion(context.Background(), &types.ChatRequest{Model: "test-model"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, 1, failing.callCount(), "the failing deployment is tried exactly once before falling over to the next")
	assert.Equal(t, 1, healthy.callCount())

	cooling, err := tr.cooldown.IsCooling(context.Background(), "dep-A")
	require.NoError(t, err)
	assert.True(t, cooling, "a 5xx failure must cool the deployment down so the next request skips it")
}

func TestRouter_Completion_SingleFlightCollapsesConcurrentIdenticalCalls(t *testing.T) {
	var hits atomic.Int64
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		resp := types.ChatResponse{ID: "resp-sf", Model: "test-model", Choices: []types.Choice{{Message: types.ChatMessage{Role: "assistant", Content: json.RawMessage(`"ok"`)}}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	prov := &fakeProvider{name: "mock", baseURL: server.URL}
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}, Provider: prov}

	backend := store.NewMemoryStore()
	defer backend.Close()
	memCache := cache.NewMemoryCache(cache.DefaultMemoryCacheConfig())
	r, err := NewRouter(Config{
		Groups:   map[string][]ManagedDeployment{"test-model": {dep}},
		Strategy: router.StrategySimpleShuffle,
		States:   store.NewStateStore(backend, 0),
		Cooldown: cooldown.NewManager(backend),
		Cache:    cache.NewSingleFlightCache(memCache, nil),
		CacheTTL: time.Minute,
	})
	require.NoError(t, err)

	const concurrency = 5
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			_, err := r.Completion(context.Background(), &types.ChatRequest{Model: "test-model"}, nil)
			assert.NoError(t, err)
		}()
	}

	// Give every goroutine a chance to reach the in-flight upstream call
	// before letting the single response through.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), hits.Load(), "concurrent identical requests must collapse into one upstream call")
}

func TestRouter_Resolve_FiltersOutCoolingDeployments(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newTestRouter(t, router.StrategySimpleShuffle, dep)

	candidates, err := tr.resolve(context.Background(), "test-model")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	require.NoError(t, tr.cooldown.Mark(context.Background(), "dep-1", time.Minute))

	candidates, err = tr.resolve(context.Background(), "test-model")
	require.NoError(t, err)
	assert.Empty(t, candidates, "a cooling deployment must not be offered to the selector")
}

func TestRouter_Resolve_DefaultProviderNarrowsCandidates(t *testing.T) {
	depPrimary := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-primary", ProviderName: "primary", ModelName: "test-model"}}
	depSecondary := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-secondary", ProviderName: "secondary", ModelName: "test-model"}}

	backend := store.NewMemoryStore()
	defer backend.Close()
	r, err := NewRouter(Config{
		Groups:          map[string][]ManagedDeployment{"test-model": {depPrimary, depSecondary}},
		Strategy:        router.StrategySimpleShuffle,
		States:          store.NewStateStore(backend, 0),
		Cooldown:        cooldown.NewManager(backend),
		DefaultProvider: "primary",
	})
	require.NoError(t, err)

	candidates, err := r.resolve(context.Background(), "test-model")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "dep-primary", candidates[0].ID)
}

func TestRouter_Resolve_DefaultProviderFallsBackWhenNoMatch(t *testing.T) {
	depSecondary := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-secondary", ProviderName: "secondary", ModelName: "test-model"}}

	backend := store.NewMemoryStore()
	defer backend.Close()
	r, err := NewRouter(Config{
		Groups:          map[string][]ManagedDeployment{"test-model": {depSecondary}},
		Strategy:        router.StrategySimpleShuffle,
		States:          store.NewStateStore(backend, 0),
		Cooldown:        cooldown.NewManager(backend),
		DefaultProvider: "primary",
	})
	require.NoError(t, err)

	candidates, err := r.resolve(context.Background(), "test-model")
	require.NoError(t, err)
	require.Len(t, candidates, 1, "with no deployment from the preferred provider, the full candidate set is still offered")
}

func TestRouter_RunRequestLifecycle_TraceIDStaysConstantAcrossRetries(t *testing.T) {
	failingServer := httptest.NewServer(chatHandler(func(int) int { return http.StatusInternalServerError }))
	defer failingServer.Close()
	healthyServer := httptest.NewServer(chatHandler(nil))
	defer healthyServer.Close()

	failing := &fakeProvider{name: "failing", baseURL: failingServer.URL}
	healthy := &fakeProvider{name: "healthy", baseURL: healthyServer.URL}
	depA := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-A", ProviderName: "failing", ModelName: "test-model"}, Provider: failing}
	depB := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-B", ProviderName: "healthy", ModelName: "test-model"}, Provider: healthy}
	tr := newTestRouter(t, router.StrategySimpleShuffle, depA, depB)

	var seen []string
	var mu sync.Mutex
	handle := tr.telemetry.Register(recordingCallback{
		name: "trace-recorder",
		onAny: func(requestID string) {
			mu.Lock()
			seen = append(seen, requestID)
			mu.Unlock()
		},
	})
	defer handle.Unregister()

	_, err := tr.Completion(context.Background(), &types.ChatRequest{Model: "test-model"}, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	first := seen[0]
	assert.NotEmpty(t, first)
	for _, id := range seen {
		assert.Equal(t, first, id, "every telemetry event for one logical request must carry the same request id across retries")
	}
}

// recordingCallback implements observability.Callback, forwarding every
// pre/post/success/failure payload's RequestID to onAny so tests can assert
// trace continuity across retry attempts without depending on a specific
// production callback's side effects.
type recordingCallback struct {
	name  string
	onAny func(requestID string)
}

func (c recordingCallback) Name() string { return c.name }
func (c recordingCallback) LogPreAPICall(_ context.Context, payload *observability.StandardLoggingPayload) error {
	c.onAny(payload.RequestID)
	return nil
}
func (c recordingCallback) LogPostAPICall(_ context.Context, payload *observability.StandardLoggingPayload) error {
	c.onAny(payload.RequestID)
	return nil
}
func (c recordingCallback) LogStreamEvent(_ context.Context, payload *observability.StandardLoggingPayload, _ any) error {
	c.onAny(payload.RequestID)
	return nil
}
func (c recordingCallback) LogSuccessEvent(_ context.Context, payload *observability.StandardLoggingPayload) error {
	c.onAny(payload.RequestID)
	return nil
}
func (c recordingCallback) LogFailureEvent(_ context.Context, payload *observability.StandardLoggingPayload, _ error) error {
	c.onAny(payload.RequestID)
	return nil
}
func (c recordingCallback) LogFallbackEvent(_ context.Context, _, _ string, _ error, _ bool) error {
	return nil
}
func (c recordingCallback) Shutdown(_ context.Context) error { return nil }
