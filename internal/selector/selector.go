// Package selector implements the five deployment-selection strategies
// named in spec.md §4.5 / §2, adapted from the teacher's routers/*.go
// family (ShuffleRouter, TPMRPMRouter, LeastBusyRouter, LatencyRouter,
// CostRouter) to operate over StateStore/CooldownManager instead of
// BaseRouter's embedded map.
package selector

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/corvex/llmgate/internal/store"
)

// ErrNoCandidates is returned when every deployment in Input is over
// capacity or otherwise ineligible, distinct from an empty Input.
var ErrNoCandidates = errors.New("selector: no eligible deployment")

// Deployment is the selection-relevant slice of deployment configuration;
// callers translate provider.Deployment + router.DeploymentConfig into this
// shape so selector has no dependency on the provider/router packages.
type Deployment struct {
	ID                 string
	ProviderName       string
	TPMLimit           int64
	RPMLimit           int64
	Weight             float64
	InputCostPerToken  float64
	OutputCostPerToken float64
}

// Input is one selection request: the candidate set (already filtered for
// cooldown and health by the caller) plus request shape.
type Input struct {
	Group                string
	Deployments          []Deployment
	Streaming            bool
	EstimatedInputTokens int
	// LatencyBuffer configures the lowest-latency strategy's eligible-set
	// tolerance (e.g. 0.1 = within 10% of the lowest score). Ignored by
	// other strategies.
	LatencyBuffer float64
}

// Selector picks one deployment from Input.Deployments, or returns
// ErrNoCandidates if none qualify.
type Selector interface {
	Pick(ctx context.Context, in Input) (*Deployment, error)
}

// defaultEntryLatency seeds a cold deployment's latency window with a
// single 0 sample (spec.md §4.5 step 2), so it participates in scoring
// immediately rather than being treated as having no data at all.
var defaultEntryLatency = []float64{0}

// median returns the median of values, or +Inf for an empty slice per
// spec.md §4.5 step 5d/5e ("if list empty, treat as +∞").
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// capOrInfinity treats a non-positive limit as unlimited, matching
// pkg/router.DeploymentConfig's "0 = unlimited" convention.
func capOrInfinity(limit int64) int64 {
	if limit <= 0 {
		return math.MaxInt64
	}
	return limit
}

// permute returns a random permutation of indices 0..n-1 using rng (or the
// package-level source if rng is nil), so tie-breaking between equally
// scored deployments isn't sticky (spec.md §4.5 step 4).
func permute(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}

// loadDeploymentMap is the shared Store.get("{group}_map") step (spec.md
// §4.5 step 1); a Store failure degrades to an empty map rather than
// failing selection, per spec.md §4.1's read-failure semantics.
func loadDeploymentMap(ctx context.Context, states *store.StateStore, group string) store.DeploymentMap {
	m, err := states.GetDeploymentMap(ctx, group)
	if err != nil || m == nil {
		return store.DeploymentMap{}
	}
	return m
}
