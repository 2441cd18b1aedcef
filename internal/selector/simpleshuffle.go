package selector

import (
	"context"
	"math/rand"
)

// SimpleShuffleSelector performs weighted random selection by Weight, or
// uniform random if no deployment has a weight configured. Grounded on
// routers/shuffle.go's ShuffleRouter.weightedPick.
type SimpleShuffleSelector struct {
	rng *rand.Rand
}

func NewSimpleShuffleSelector(rng *rand.Rand) *SimpleShuffleSelector {
	return &SimpleShuffleSelector{rng: rng}
}

func (s *SimpleShuffleSelector) Pick(_ context.Context, in Input) (*Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, ErrNoCandidates
	}

	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	if chosen := weightedPick(in.Deployments, rng); chosen != nil {
		return chosen, nil
	}

	chosen := in.Deployments[rng.Intn(len(in.Deployments))]
	return &chosen, nil
}

func weightedPick(deployments []Deployment, rng *rand.Rand) *Deployment {
	weights := make([]float64, len(deployments))
	var total float64
	hasWeights := false
	for i, d := range deployments {
		weights[i] = d.Weight
		if d.Weight > 0 {
			hasWeights = true
		}
		total += d.Weight
	}
	if !hasWeights || total == 0 {
		return nil
	}

	target := rng.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if target <= cumulative {
			chosen := deployments[i]
			return &chosen
		}
	}
	chosen := deployments[len(deployments)-1]
	return &chosen
}
