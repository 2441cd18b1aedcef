package selector

import (
	"context"
	"math/rand"

	"github.com/corvex/llmgate/internal/store"
)

// defaultTokenEstimate matches TPMRPMRouter's fallback when the caller has
// no prompt-token estimate available.
const defaultTokenEstimate = 100

// UsageBasedSelector picks the deployment with the lowest current-minute
// TPM, skipping any that would breach its TPM/RPM cap. Grounded on
// routers/tpmrpm.go's TPMRPMRouter.PickWithContext.
type UsageBasedSelector struct {
	states *store.StateStore
	rng    *rand.Rand
}

func NewUsageBasedSelector(states *store.StateStore, rng *rand.Rand) *UsageBasedSelector {
	return &UsageBasedSelector{states: states, rng: rng}
}

func (s *UsageBasedSelector) Pick(ctx context.Context, in Input) (*Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, ErrNoCandidates
	}

	requestCount := loadDeploymentMap(ctx, s.states, in.Group)
	estimatedTokens := int64(in.EstimatedInputTokens)
	if estimatedTokens == 0 {
		estimatedTokens = defaultTokenEstimate
	}

	order := permute(len(in.Deployments), s.rng)
	var best *Deployment
	lowestTPM := int64(-1)

	for _, idx := range order {
		d := in.Deployments[idx]
		var tpm, rpm int64
		if entry, ok := requestCount[d.ID]; ok {
			tpm, rpm = entry.CurrentMinuteTPM, entry.CurrentMinuteRPM
		}

		if d.TPMLimit > 0 && tpm+estimatedTokens > d.TPMLimit {
			continue
		}
		if d.RPMLimit > 0 && rpm+1 > d.RPMLimit {
			continue
		}

		if lowestTPM < 0 || tpm < lowestTPM {
			lowestTPM = tpm
			chosen := d
			best = &chosen
		}
	}

	if best == nil {
		return nil, ErrNoCandidates
	}
	return best, nil
}
