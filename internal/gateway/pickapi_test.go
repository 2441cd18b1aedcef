package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvex/llmgate/internal/cooldown"
	"github.com/corvex/llmgate/internal/store"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/pkg/router"
)

func newPickTestRouter(t *testing.T, deployments ...ManagedDeployment) *testRouter {
	t.Helper()
	return newTestRouter(t, router.StrategySimpleShuffle, deployments...)
}

func TestRouter_PickWithContext_ReturnsRegisteredDeployment(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)

	picked, err := tr.PickWithContext(context.Background(), &router.RequestContext{Model: "test-model"})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "dep-1", picked.ID)
}

func TestRouter_Pick_DelegatesToPickWithContext(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)

	picked, err := tr.Pick(context.Background(), "test-model")
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "dep-1", picked.ID)
}

func TestRouter_PickWithContext_NoAvailableDeploymentWhenAllCooling(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)

	require.NoError(t, tr.cooldown.Mark(context.Background(), "dep-1", time.Minute))

	_, err := tr.PickWithContext(context.Background(), &router.RequestContext{Model: "test-model"})
	assert.ErrorIs(t, err, ErrNoAvailableDeployment)
}

func TestRouter_PickWithContext_UnknownModelHasNoCandidates(t *testing.T) {
	tr := newPickTestRouter(t)

	_, err := tr.PickWithContext(context.Background(), &router.RequestContext{Model: "unknown-model"})
	assert.ErrorIs(t, err, ErrNoAvailableDeployment)
}

func TestRouter_AddDeploymentWithConfig_ThenPickable(t *testing.T) {
	tr := newPickTestRouter(t)
	tr.providerLookup = func(name string) (provider.Provider, bool) {
		return &fakeProvider{name: name}, name == "mock"
	}

	tr.AddDeploymentWithConfig(&provider.Deployment{ID: "dep-new", ProviderName: "mock", ModelName: "new-model"}, router.DeploymentConfig{Weight: 1})

	picked, err := tr.PickWithContext(context.Background(), &router.RequestContext{Model: "new-model"})
	require.NoError(t, err)
	assert.Equal(t, "dep-new", picked.ID)

	deployments := tr.GetDeployments("new-model")
	require.Len(t, deployments, 1)
	assert.Equal(t, "dep-new", deployments[0].ID)
}

func TestRouter_RemoveDeployment_NoLongerPickable(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)

	tr.RemoveDeployment("dep-1")

	_, err := tr.PickWithContext(context.Background(), &router.RequestContext{Model: "test-model"})
	assert.ErrorIs(t, err, ErrNoAvailableDeployment)
	assert.Empty(t, tr.GetDeployments("test-model"))
}

func TestRouter_ReportSuccess_ZeroTokenSafety(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)
	deployment := &provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}

	assert.NotPanics(t, func() {
		tr.ReportRequestStart(context.Background(), deployment)
		tr.ReportSuccess(context.Background(), deployment, nil)
		tr.ReportRequestEnd(context.Background(), deployment)
	})

	stats := tr.GetStats("dep-1")
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.SuccessCount)
}

func TestRouter_ReportSuccess_BoundsLatencyHistoryWindow(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)
	deployment := &provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}

	const windowSize = 10
	for i := 0; i < windowSize+5; i++ {
		tr.ReportSuccess(context.Background(), deployment, &router.ResponseMetrics{
			Latency:      time.Second,
			InputTokens:  10,
			OutputTokens: 10,
			TotalTokens:  20,
		})
	}

	stats := tr.GetStats("dep-1")
	require.NotNil(t, stats)
	assert.LessOrEqual(t, len(stats.LatencyHistory), windowSize, "the rolling latency window must stay bounded regardless of how many samples are reported")
}

func TestRouter_ReportFailure_MarksCooldownForRetryOtherKind(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)
	deployment := &provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}

	tr.ReportFailure(context.Background(), deployment, &llmerrors.LLMError{StatusCode: 500, Type: llmerrors.TypeInternalError})

	cooling := tr.IsCircuitOpen(deployment)
	assert.True(t, cooling, "a 5xx (RetryOther) failure must cool the deployment down")
}

func TestRouter_ReportFailure_DoesNotCooldownForRetryNoneKind(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)
	deployment := &provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}

	tr.ReportFailure(context.Background(), deployment, &llmerrors.LLMError{StatusCode: 400, Type: llmerrors.TypeInvalidRequest})

	cooling := tr.IsCircuitOpen(deployment)
	assert.False(t, cooling, "a 400 (RetryNone) failure is the caller's fault, not the deployment's — it must not be cooled down")
}

func TestRouter_SetCooldown_SetsAndClears(t *testing.T) {
	dep := ManagedDeployment{Deployment: provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}}
	tr := newPickTestRouter(t, dep)
	deployment := &provider.Deployment{ID: "dep-1", ProviderName: "mock", ModelName: "test-model"}

	require.NoError(t, tr.SetCooldown("dep-1", time.Now().Add(time.Minute)))
	assert.True(t, tr.IsCircuitOpen(deployment))

	require.NoError(t, tr.SetCooldown("dep-1", time.Time{}))
	assert.False(t, tr.IsCircuitOpen(deployment))
}

func TestRouter_GetStrategy_ReturnsConfiguredStrategy(t *testing.T) {
	backend := store.NewMemoryStore()
	defer backend.Close()
	r, err := NewRouter(Config{
		Strategy: router.StrategyLowestCost,
		States:   store.NewStateStore(backend, 0),
		Cooldown: cooldown.NewManager(backend),
	})
	require.NoError(t, err)
	assert.Equal(t, router.StrategyLowestCost, r.GetStrategy())
}

func TestRouter_IsCircuitOpen_NilDeploymentIsSafe(t *testing.T) {
	tr := newPickTestRouter(t)
	assert.False(t, tr.IsCircuitOpen(nil))
}
