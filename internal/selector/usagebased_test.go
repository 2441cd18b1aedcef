package selector

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvex/llmgate/internal/store"
)

func TestUsageBasedSelector_PicksLowestTPM(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	require.NoError(t, states.UpdateDeploymentMap(context.Background(), "g", func(m store.DeploymentMap) (store.DeploymentMap, error) {
		m["A"] = &store.DeploymentState{DeploymentID: "A", CurrentMinuteTPM: 900}
		m["B"] = &store.DeploymentState{DeploymentID: "B", CurrentMinuteTPM: 100}
		return m, nil
	}))

	sel := NewUsageBasedSelector(states, rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Group:       "g",
		Deployments: []Deployment{{ID: "A", TPMLimit: 10000}, {ID: "B", TPMLimit: 10000}},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID)
}

func TestUsageBasedSelector_SkipsOverTPMCap(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	require.NoError(t, states.UpdateDeploymentMap(context.Background(), "g", func(m store.DeploymentMap) (store.DeploymentMap, error) {
		m["A"] = &store.DeploymentState{DeploymentID: "A", CurrentMinuteTPM: 950}
		m["B"] = &store.DeploymentState{DeploymentID: "B", CurrentMinuteTPM: 500}
		return m, nil
	}))

	sel := NewUsageBasedSelector(states, rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Group:                "g",
		Deployments:          []Deployment{{ID: "A", TPMLimit: 1000}, {ID: "B", TPMLimit: 1000}},
		EstimatedInputTokens: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID, "A would breach its TPM cap with the estimated tokens added")
}

func TestUsageBasedSelector_SkipsOverRPMCap(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	require.NoError(t, states.UpdateDeploymentMap(context.Background(), "g", func(m store.DeploymentMap) (store.DeploymentMap, error) {
		m["A"] = &store.DeploymentState{DeploymentID: "A", CurrentMinuteRPM: 5}
		return m, nil
	}))

	sel := NewUsageBasedSelector(states, rand.New(rand.NewSource(1)))
	_, err := sel.Pick(context.Background(), Input{
		Group:       "g",
		Deployments: []Deployment{{ID: "A", RPMLimit: 5}},
	})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestUsageBasedSelector_NoHistoryDefaultsToZeroUsage(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	sel := NewUsageBasedSelector(states, rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Group:       "g",
		Deployments: []Deployment{{ID: "A", TPMLimit: 1000}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A", picked.ID)
}
