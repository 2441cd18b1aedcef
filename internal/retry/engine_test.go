package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvex/llmgate/internal/cooldown"
	"github.com/corvex/llmgate/internal/selector"
	"github.com/corvex/llmgate/internal/store"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.DefaultTimeout = time.Second
	return cfg
}

// firstSelector always picks in.Deployments[0], keeping retry-engine tests
// independent of any particular selection strategy's tie-breaking behavior.
type firstSelector struct{}

func (firstSelector) Pick(_ context.Context, in selector.Input) (*selector.Deployment, error) {
	if len(in.Deployments) == 0 {
		return nil, selector.ErrNoCandidates
	}
	d := in.Deployments[0]
	return &d, nil
}

func singleShuffle() selector.Selector {
	return firstSelector{}
}

func errClassifier(kind llmerrors.ErrorKind) Classifier {
	return func(err error) (llmerrors.ErrorKind, time.Duration) { return kind, 0 }
}

func TestEngine_SucceedsOnFirstAttempt(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	e := NewEngine(fastConfig(), singleShuffle(), mgr, Hooks{})

	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}}, nil
	}
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		return "ok", nil
	}

	resp, err := e.Invoke(context.Background(), []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindInternalServerError), invoke)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestEngine_NonRetriableFailsFast(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	e := NewEngine(fastConfig(), singleShuffle(), mgr, Hooks{})

	calls := 0
	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}}, nil
	}
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		calls++
		return nil, errors.New("bad request")
	}

	_, err := e.Invoke(context.Background(), []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindBadRequest), invoke)
	require.Error(t, err)
	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, llmerrors.KindBadRequest, retryErr.Kind)
	assert.Equal(t, 1, calls, "a non-retriable error must not be retried")
}

func TestEngine_RetryOtherCoolsDownAndTriesNextDeployment(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	e := NewEngine(fastConfig(), singleShuffle(), mgr, Hooks{})

	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}, {ID: "B"}}, nil
	}
	var invoked []string
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		invoked = append(invoked, d.ID)
		if d.ID == "A" {
			return nil, errors.New("upstream 500")
		}
		return "ok-from-B", nil
	}

	resp, err := e.Invoke(context.Background(), []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindInternalServerError), invoke)
	require.NoError(t, err)
	assert.Equal(t, "ok-from-B", resp)
	assert.Equal(t, []string{"A", "B"}, invoked)

	cooling, err := mgr.IsCooling(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, cooling, "A must be cooled down after a retriable_other failure")
}

func TestEngine_RetrySameStaysOnDeployment(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	cfg := fastConfig()
	e := NewEngine(cfg, singleShuffle(), mgr, Hooks{})

	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}}, nil
	}
	attempts := 0
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("429")
		}
		return "ok", nil
	}

	resp, err := e.Invoke(context.Background(), []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindRateLimited), invoke)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 2, attempts)
}

func TestEngine_ExhaustsAttemptsReturnsNoDeploymentsAvailable(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	e := NewEngine(cfg, singleShuffle(), mgr, Hooks{})

	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}, {ID: "B"}}, nil
	}
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		return nil, errors.New("upstream 500")
	}

	_, err := e.Invoke(context.Background(), []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindInternalServerError), invoke)
	require.Error(t, err)
	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Len(t, retryErr.Attempts, 2)
}

func TestEngine_FallbackGroupSwapPreservesAttemptBudget(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	e := NewEngine(cfg, singleShuffle(), mgr, Hooks{})

	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		if group == "primary" {
			return nil, nil // no candidates, forces a group swap
		}
		return []selector.Deployment{{ID: "F"}}, nil
	}
	var invoked []string
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		invoked = append(invoked, group+"/"+d.ID)
		return "ok", nil
	}

	resp, err := e.Invoke(context.Background(), []string{"primary", "fallback"}, selector.Input{}, resolve, errClassifier(llmerrors.KindInternalServerError), invoke)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, []string{"fallback/F"}, invoked, "the group swap itself must not consume a provider call")
}

func TestEngine_NoGroupsConfiguredRaisesImmediately(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	e := NewEngine(fastConfig(), singleShuffle(), mgr, Hooks{})
	_, err := e.Invoke(context.Background(), nil, selector.Input{}, nil, nil, nil)
	require.Error(t, err)
	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, llmerrors.KindNoDeploymentsAvailable, retryErr.Kind)
}

func TestEngine_CancellationStopsRetrying(t *testing.T) {
	mgr := cooldown.NewManager(store.NewMemoryStore())
	e := NewEngine(fastConfig(), singleShuffle(), mgr, Hooks{})

	ctx, cancel := context.WithCancel(context.Background())
	resolve := func(ctx context.Context, group string) ([]selector.Deployment, error) {
		return []selector.Deployment{{ID: "A"}}, nil
	}
	calls := 0
	invoke := func(ctx context.Context, group string, d selector.Deployment) (any, error) {
		calls++
		cancel()
		return nil, errors.New("429")
	}

	_, err := e.Invoke(ctx, []string{"g"}, selector.Input{}, resolve, errClassifier(llmerrors.KindRateLimited), invoke)
	require.Error(t, err)
	var retryErr *Error
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, llmerrors.KindCancelled, retryErr.Kind)
	assert.Equal(t, 1, calls)
}
