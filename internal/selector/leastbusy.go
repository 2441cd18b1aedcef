package selector

import (
	"context"
	"math/rand"

	"github.com/corvex/llmgate/internal/store"
)

// LeastBusySelector picks the deployment with the fewest active requests,
// shuffling first so ties don't stick to the same deployment. Grounded on
// routers/leastbusy.go's LeastBusyRouter.PickWithContext.
type LeastBusySelector struct {
	states *store.StateStore
	rng    *rand.Rand
}

func NewLeastBusySelector(states *store.StateStore, rng *rand.Rand) *LeastBusySelector {
	return &LeastBusySelector{states: states, rng: rng}
}

func (s *LeastBusySelector) Pick(ctx context.Context, in Input) (*Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, ErrNoCandidates
	}

	requestCount := loadDeploymentMap(ctx, s.states, in.Group)
	order := permute(len(in.Deployments), s.rng)

	var best *Deployment
	minActive := int64(-1)
	for _, idx := range order {
		d := in.Deployments[idx]
		var active int64
		if entry, ok := requestCount[d.ID]; ok {
			active = entry.ActiveRequests
		}
		if minActive < 0 || active < minActive {
			minActive = active
			chosen := d
			best = &chosen
		}
	}

	if best == nil {
		return nil, ErrNoCandidates
	}
	return best, nil
}
