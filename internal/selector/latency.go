package selector

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/corvex/llmgate/internal/store"
)

// candidateScore is one eligible deployment's primary/secondary sort keys,
// per spec.md §4.5 step 5g.
type candidateScore struct {
	deployment Deployment
	primary    float64
	secondary  float64
}

// LatencySelector implements the lowest-latency/TTFT strategy exactly per
// spec.md §4.5, rewritten from routers/latency.go's mean-based
// LatencyRouter to use the median over the bounded window as the spec
// requires, with an explicit +Inf for empty history instead of treating it
// as zero.
type LatencySelector struct {
	states *store.StateStore
	rng    *rand.Rand
}

// NewLatencySelector wires a StateStore for reading "{group}_map" state. rng
// may be nil to use a process-seeded source; tests pass a seeded *rand.Rand
// for deterministic output.
func NewLatencySelector(states *store.StateStore, rng *rand.Rand) *LatencySelector {
	return &LatencySelector{states: states, rng: rng}
}

func (s *LatencySelector) Pick(ctx context.Context, in Input) (*Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, ErrNoCandidates
	}

	requestCount := loadDeploymentMap(ctx, s.states, in.Group)
	for _, d := range in.Deployments {
		if _, ok := requestCount[d.ID]; !ok {
			requestCount[d.ID] = &store.DeploymentState{
				DeploymentID:   d.ID,
				LatencyHistory: append([]float64(nil), defaultEntryLatency...),
			}
		}
	}

	order := permute(len(in.Deployments), s.rng)

	var scored []candidateScore
	for _, idx := range order {
		d := in.Deployments[idx]
		entry, ok := requestCount[d.ID]
		if !ok {
			continue
		}

		tpmLimit := capOrInfinity(d.TPMLimit)
		rpmLimit := capOrInfinity(d.RPMLimit)
		if entry.CurrentMinuteTPM+int64(in.EstimatedInputTokens) > tpmLimit {
			continue
		}
		if entry.CurrentMinuteRPM+1 > rpmLimit {
			continue
		}

		latencyScore := median(entry.LatencyHistory)
		ttftScore := median(entry.TTFTHistory)

		var primary, secondary float64
		if in.Streaming && len(entry.TTFTHistory) > 0 {
			primary, secondary = ttftScore, latencyScore
		} else {
			primary, secondary = latencyScore, ttftScore
		}

		scored = append(scored, candidateScore{deployment: d, primary: primary, secondary: secondary})
	}

	if len(scored) == 0 {
		return nil, ErrNoCandidates
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].primary != scored[j].primary {
			return scored[i].primary < scored[j].primary
		}
		return scored[i].secondary < scored[j].secondary
	})

	low := scored[0].primary
	buffer := in.LatencyBuffer * low
	if buffer < 0 || math.IsNaN(buffer) {
		buffer = 0
	}

	threshold := low + buffer
	var eligible []candidateScore
	for _, c := range scored {
		if c.primary <= threshold {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		// Numeric issue (e.g. threshold computed as NaN): fall back to the
		// full sorted candidate list rather than returning no selection.
		eligible = scored
	}

	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	choice := eligible[rng.Intn(len(eligible))].deployment
	return &choice, nil
}
