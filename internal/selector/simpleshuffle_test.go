package selector

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleShuffleSelector_WeightedPickFavorsHeavierWeight(t *testing.T) {
	sel := NewSimpleShuffleSelector(rand.New(rand.NewSource(7)))
	counts := map[string]int{}
	for i := 0; i < 500; i++ {
		picked, err := sel.Pick(context.Background(), Input{
			Deployments: []Deployment{
				{ID: "A", Weight: 9},
				{ID: "B", Weight: 1},
			},
		})
		require.NoError(t, err)
		counts[picked.ID]++
	}
	assert.Greater(t, counts["A"], counts["B"], "A's 9x weight should dominate the sample")
}

func TestSimpleShuffleSelector_UniformWhenNoWeights(t *testing.T) {
	sel := NewSimpleShuffleSelector(rand.New(rand.NewSource(7)))
	picked, err := sel.Pick(context.Background(), Input{
		Deployments: []Deployment{{ID: "A"}, {ID: "B"}},
	})
	require.NoError(t, err)
	assert.Contains(t, []string{"A", "B"}, picked.ID)
}

func TestSimpleShuffleSelector_EmptyInput(t *testing.T) {
	sel := NewSimpleShuffleSelector(rand.New(rand.NewSource(1)))
	_, err := sel.Pick(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}
