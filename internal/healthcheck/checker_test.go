package healthcheck

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvex/llmgate/internal/store"
)

func newTestStates() *store.StateStore {
	return store.NewStateStore(store.NewMemoryStore(), time.Hour)
}

func TestChecker_Run_HealthyDeploymentPersisted(t *testing.T) {
	states := newTestStates()
	prober := Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		return nil
	})
	checker := NewChecker(Config{Enabled: true, Timeout: time.Second}, prober, states, nil)

	results := checker.Run(context.Background(), []Target{
		{DeploymentID: "openai-gpt-4o", Models: []string{"gpt-4o"}, Mode: ModeChat},
	})

	require.Len(t, results, 1)
	require.True(t, results[0].Healthy)
	require.Equal(t, "gpt-4o", results[0].Model)

	raw, found, err := states.GetHealth(context.Background(), "openai-gpt-4o")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEmpty(t, raw)
}

func TestChecker_Run_FailureRecordedUnhealthy(t *testing.T) {
	states := newTestStates()
	prober := Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		return errors.New("probe failed")
	})
	checker := NewChecker(Config{Enabled: true, Timeout: time.Second}, prober, states, nil)

	results := checker.Run(context.Background(), []Target{
		{DeploymentID: "openai-gpt-4o", Models: []string{"gpt-4o"}, Mode: ModeChat},
	})

	require.Len(t, results, 1)
	require.False(t, results[0].Healthy)
	require.Equal(t, "probe failed", results[0].Error)
}

func TestChecker_RunOne_FallsBackToSecondCandidate(t *testing.T) {
	var calls []string
	prober := Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		calls = append(calls, model)
		if model == "gpt-4o" {
			return errors.New("unavailable")
		}
		return nil
	})
	checker := NewChecker(Config{Enabled: true, Timeout: time.Second}, prober, nil, nil)

	result := checker.runOne(context.Background(), Target{
		DeploymentID: "openai-wildcard",
		Models:       []string{"gpt-4o", "gpt-4o-mini"},
		Mode:         ModeChat,
	})

	require.True(t, result.Healthy)
	require.Equal(t, "gpt-4o-mini", result.Model)
	require.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, calls)
}

func TestChecker_Run_UpdatesReadinessSnapshot(t *testing.T) {
	prober := Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		if deploymentID == "bad" {
			return errors.New("down")
		}
		return nil
	})
	checker := NewChecker(Config{Enabled: true, Timeout: time.Second}, prober, nil, nil)

	checker.Run(context.Background(), []Target{
		{DeploymentID: "good", Models: []string{"m1"}, Mode: ModeChat},
		{DeploymentID: "bad", Models: []string{"m1"}, Mode: ModeChat},
	})

	ready := checker.Readiness()
	require.Equal(t, 2, ready.TotalDeployments)
	require.Equal(t, 1, ready.HealthyDeployments)
	require.Equal(t, []string{"bad"}, ready.UnhealthyDeployments)
	require.True(t, ready.Ready) // at least one healthy deployment
}

func TestChecker_Readiness_StaleSnapshotReportsNotReady(t *testing.T) {
	checker := NewChecker(Config{Enabled: true}, Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		return nil
	}), nil, nil)

	checker.updateSnapshot([]Result{{DeploymentID: "d1", Healthy: true}})
	checker.snapshot.CheckedAt = time.Now().Add(-3 * time.Minute)

	ready := checker.Readiness()
	require.False(t, ready.Ready)
}

func TestChecker_Run_BoundedByWorkerPool(t *testing.T) {
	var inFlight atomic.Int32
	var maxInFlight atomic.Int32
	prober := Prober(func(ctx context.Context, deploymentID, model string, mode Mode) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	checker := NewChecker(Config{Enabled: true, Workers: 2, Timeout: time.Second}, prober, nil, nil)

	targets := make([]Target, 10)
	for i := range targets {
		targets[i] = Target{DeploymentID: "d", Models: []string{"m"}, Mode: ModeChat}
	}
	checker.Run(context.Background(), targets)

	require.LessOrEqual(t, int(maxInFlight.Load()), 2)
}
