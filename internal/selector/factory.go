package selector

import (
	"fmt"
	"math/rand"

	"github.com/corvex/llmgate/internal/store"
	"github.com/corvex/llmgate/pkg/router"
)

// New builds a Selector for the given strategy, grounded on
// routers/factory.go's New/NewWithStore. rng may be nil (process-seeded).
func New(strategy router.Strategy, states *store.StateStore, rng *rand.Rand) (Selector, error) {
	switch strategy {
	case router.StrategySimpleShuffle, "":
		return NewSimpleShuffleSelector(rng), nil
	case router.StrategyLowestLatency:
		return NewLatencySelector(states, rng), nil
	case router.StrategyLeastBusy:
		return NewLeastBusySelector(states, rng), nil
	case router.StrategyLowestTPMRPM:
		return NewUsageBasedSelector(states, rng), nil
	case router.StrategyLowestCost:
		return NewCostBasedSelector(rng), nil
	default:
		return nil, fmt.Errorf("selector: unknown strategy %q", strategy)
	}
}

// AvailableStrategies lists the strategies New supports.
func AvailableStrategies() []router.Strategy {
	return []router.Strategy{
		router.StrategySimpleShuffle,
		router.StrategyLowestLatency,
		router.StrategyLeastBusy,
		router.StrategyLowestTPMRPM,
		router.StrategyLowestCost,
	}
}
