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

func TestLeastBusySelector_PicksFewestActive(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	require.NoError(t, states.UpdateDeploymentMap(context.Background(), "g", func(m store.DeploymentMap) (store.DeploymentMap, error) {
		m["A"] = &store.DeploymentState{DeploymentID: "A", ActiveRequests: 4}
		m["B"] = &store.DeploymentState{DeploymentID: "B", ActiveRequests: 1}
		return m, nil
	}))

	sel := NewLeastBusySelector(states, rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Group:       "g",
		Deployments: []Deployment{{ID: "A"}, {ID: "B"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID)
}

func TestLeastBusySelector_UntrackedDeploymentTreatedAsIdle(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	require.NoError(t, states.UpdateDeploymentMap(context.Background(), "g", func(m store.DeploymentMap) (store.DeploymentMap, error) {
		m["A"] = &store.DeploymentState{DeploymentID: "A", ActiveRequests: 2}
		return m, nil
	}))

	sel := NewLeastBusySelector(states, rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Group:       "g",
		Deployments: []Deployment{{ID: "A"}, {ID: "B"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID)
}

func TestLeastBusySelector_EmptyInput(t *testing.T) {
	states := store.NewStateStore(store.NewMemoryStore(), time.Hour)
	sel := NewLeastBusySelector(states, rand.New(rand.NewSource(1)))
	_, err := sel.Pick(context.Background(), Input{Group: "g"})
	assert.ErrorIs(t, err, ErrNoCandidates)
}
