package selector

import (
	"context"
	"math/rand"
)

// UnknownModelCost deprioritizes a deployment with no configured per-token
// cost, matching routers/cost.go's CostRouter sentinel.
const UnknownModelCost = 1.0

// CostBasedSelector picks the deployment with the lowest
// input+output cost per token. Grounded on routers/cost.go's CostRouter.
type CostBasedSelector struct {
	rng *rand.Rand
}

func NewCostBasedSelector(rng *rand.Rand) *CostBasedSelector {
	return &CostBasedSelector{rng: rng}
}

func (s *CostBasedSelector) Pick(_ context.Context, in Input) (*Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, ErrNoCandidates
	}

	order := permute(len(in.Deployments), s.rng)
	var best *Deployment
	lowestCost := -1.0

	for _, idx := range order {
		d := in.Deployments[idx]
		cost := d.InputCostPerToken + d.OutputCostPerToken
		if cost <= 0 {
			cost = UnknownModelCost
		}
		if lowestCost < 0 || cost < lowestCost {
			lowestCost = cost
			chosen := d
			best = &chosen
		}
	}

	if best == nil {
		return nil, ErrNoCandidates
	}
	return best, nil
}
