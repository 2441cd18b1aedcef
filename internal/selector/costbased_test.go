package selector

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostBasedSelector_PicksCheapest(t *testing.T) {
	sel := NewCostBasedSelector(rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Deployments: []Deployment{
			{ID: "A", InputCostPerToken: 0.01, OutputCostPerToken: 0.02},
			{ID: "B", InputCostPerToken: 0.001, OutputCostPerToken: 0.002},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID)
}

func TestCostBasedSelector_UnknownCostDeprioritized(t *testing.T) {
	sel := NewCostBasedSelector(rand.New(rand.NewSource(1)))
	picked, err := sel.Pick(context.Background(), Input{
		Deployments: []Deployment{
			{ID: "A"}, // no cost configured, falls back to UnknownModelCost (1.0)
			{ID: "B", InputCostPerToken: 0.001, OutputCostPerToken: 0.002},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", picked.ID)
}

func TestCostBasedSelector_EmptyInput(t *testing.T) {
	sel := NewCostBasedSelector(rand.New(rand.NewSource(1)))
	_, err := sel.Pick(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}
