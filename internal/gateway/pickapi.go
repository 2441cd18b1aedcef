package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/corvex/llmgate/internal/metrics"
	"github.com/corvex/llmgate/internal/selector"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
	"github.com/corvex/llmgate/pkg/provider"
	"github.com/corvex/llmgate/pkg/router"
)

// ErrNoAvailableDeployment mirrors the library-mode router's sentinel so
// callers that type-switch on it (client.go's streaming loop, fallback
// reporting) keep working against a *Router-backed pkg/router.Router.
var ErrNoAvailableDeployment = fmt.Errorf("gateway: no available deployment")

// pkg/router.Router compatibility surface. ChatCompletionStream can't run
// through retry.Engine.Invoke (its per-attempt context is canceled the
// instant Invoke's invoke func returns, which would tear down an open
// streaming body), so it keeps its own manual pick/report loop — but pointed
// at the same Router instance and the same selector/cooldown/store/metrics
// collaborators every other call mode uses, instead of a second, disconnected
// router implementation.

// Pick selects a deployment for model with no request-shape hints.
func (r *Router) Pick(ctx context.Context, model string) (*provider.Deployment, error) {
	return r.PickWithContext(ctx, &router.RequestContext{Model: model})
}

// PickWithContext selects a deployment for reqCtx.Model, filtered for
// cooldown and scored by the configured strategy.
func (r *Router) PickWithContext(ctx context.Context, reqCtx *router.RequestContext) (*provider.Deployment, error) {
	candidates, err := r.resolve(ctx, reqCtx.Model)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableDeployment
	}

	picked, err := r.sel.Pick(ctx, selectorInputFor(reqCtx, candidates, r.latencyBuffer))
	if err != nil {
		return nil, ErrNoAvailableDeployment
	}

	md, ok := r.lookup(picked.ID)
	if !ok {
		return nil, ErrNoAvailableDeployment
	}
	dep := md.Deployment
	return &dep, nil
}

// ReportSuccess records a completed request against the shared metrics
// recorder, the same path runRequestLifecycle uses internally.
func (r *Router) ReportSuccess(ctx context.Context, deployment *provider.Deployment, m *router.ResponseMetrics) {
	if deployment == nil {
		return
	}
	group := r.groupFor(deployment.ID)
	ev := metrics.Event{
		Group: group, DeploymentID: deployment.ID, Model: deployment.ModelName,
		Provider: deployment.ProviderName, APIBase: deployment.BaseURL,
		End: time.Now(), Streaming: true,
	}
	if m != nil {
		ev.Start = ev.End.Add(-m.Latency)
		ev.TTFT = m.TimeToFirstToken
		ev.InputTokens = m.InputTokens
		ev.OutputTokens = m.OutputTokens
		ev.TotalTokens = m.TotalTokens
		ev.Cost = m.Cost
	}
	_ = r.recorder.OnSuccess(ctx, ev)
}

// ReportFailure records a failed request and, for cooldown-worthy error
// kinds, marks the deployment cooling via the same cooldown.Manager the
// retry engine uses.
func (r *Router) ReportFailure(ctx context.Context, deployment *provider.Deployment, err error) {
	if deployment == nil {
		return
	}
	group := r.groupFor(deployment.ID)
	kind, _, retriability := ClassifyError(err)
	_ = r.recorder.OnFailure(ctx, metrics.Event{
		Group: group, DeploymentID: deployment.ID, Model: deployment.ModelName,
		Provider: deployment.ProviderName, APIBase: deployment.BaseURL, End: time.Now(),
	}, kind)

	if retriability == llmerrors.RetryOther {
		// 0 tells cooldown.Manager.Mark to fall back to its own default
		// period; ReportFailure has no retry.Config in scope to source one from.
		_ = r.cooldown.Mark(ctx, deployment.ID, 0)
	}
}

func (r *Router) ReportRequestStart(ctx context.Context, deployment *provider.Deployment) {
	if deployment == nil {
		return
	}
	group := r.groupFor(deployment.ID)
	_ = r.recorder.OnRequestStart(ctx, group, deployment.ID, deployment.ModelName, deployment.ProviderName)
}

func (r *Router) ReportRequestEnd(ctx context.Context, deployment *provider.Deployment) {
	if deployment == nil {
		return
	}
	group := r.groupFor(deployment.ID)
	_ = r.recorder.OnRequestEnd(ctx, group, deployment.ID, deployment.ModelName, deployment.ProviderName)
}

// IsCircuitOpen reports whether deployment is currently cooling down.
func (r *Router) IsCircuitOpen(deployment *provider.Deployment) bool {
	if deployment == nil {
		return false
	}
	cooling, err := r.cooldown.IsCooling(context.Background(), deployment.ID)
	return err == nil && cooling
}

// AddDeployment registers deployment under its ModelName group using a
// zero-value DeploymentConfig.
func (r *Router) AddDeployment(deployment *provider.Deployment) {
	r.AddDeploymentWithConfig(deployment, router.DeploymentConfig{})
}

// AddDeploymentWithConfig registers deployment under its ModelName group
// with the given routing config, resolving its live provider.Provider via
// Config.ProviderLookup.
func (r *Router) AddDeploymentWithConfig(deployment *provider.Deployment, cfg router.DeploymentConfig) {
	if deployment == nil {
		return
	}
	var prov provider.Provider
	if r.providerLookup != nil {
		prov, _ = r.providerLookup(deployment.ProviderName)
	}
	md := ManagedDeployment{
		Deployment: *deployment,
		Provider:   prov,
		Config:     cfg,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[deployment.ModelName] = append(r.groups[deployment.ModelName], md)
	r.byID[deployment.ID] = md
	r.groupByID[deployment.ID] = deployment.ModelName
}

// RemoveDeployment drops deploymentID from every group it was registered
// under.
func (r *Router) RemoveDeployment(deploymentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for group, deployments := range r.groups {
		remaining := deployments[:0:0]
		for _, d := range deployments {
			if d.Deployment.ID != deploymentID {
				remaining = append(remaining, d)
			}
		}
		if len(remaining) == 0 {
			delete(r.groups, group)
		} else {
			r.groups[group] = remaining
		}
	}
	delete(r.byID, deploymentID)
	delete(r.groupByID, deploymentID)
}

// GetDeployments returns every deployment registered under model.
func (r *Router) GetDeployments(model string) []*provider.Deployment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	managed := r.groups[model]
	out := make([]*provider.Deployment, 0, len(managed))
	for _, md := range managed {
		dep := md.Deployment
		out = append(out, &dep)
	}
	return out
}

// GetStats reconstructs a pkg/router.DeploymentStats snapshot from the
// shared StateStore + cooldown.Manager, the same state runRequestLifecycle
// writes through metrics.Recorder.
func (r *Router) GetStats(deploymentID string) *router.DeploymentStats {
	group := r.groupFor(deploymentID)
	if group == "" {
		return nil
	}
	ctx := context.Background()
	dm, err := r.states.GetDeploymentMap(ctx, group)
	if err != nil {
		return nil
	}
	st, ok := dm[deploymentID]
	if !ok {
		return nil
	}
	until, _ := r.cooldown.Until(ctx, deploymentID)

	stats := &router.DeploymentStats{
		TotalRequests:      st.TotalRequests,
		SuccessCount:       st.SuccessCount,
		FailureCount:       st.FailureCount,
		ActiveRequests:     st.ActiveRequests,
		LatencyHistory:     append([]float64(nil), st.LatencyHistory...),
		TTFTHistory:        append([]float64(nil), st.TTFTHistory...),
		MaxLatencyListSize: 10,
		CurrentMinuteTPM:   st.CurrentMinuteTPM,
		CurrentMinuteRPM:   st.CurrentMinuteRPM,
		CurrentMinuteKey:   st.CurrentMinuteKey,
		LastRequestTime:    st.LastRequestTime,
		CooldownUntil:      until,
	}
	if n := len(stats.LatencyHistory); n > 0 {
		var sum float64
		for _, v := range stats.LatencyHistory {
			sum += v
		}
		stats.AvgLatencyMs = sum / float64(n)
	}
	if n := len(stats.TTFTHistory); n > 0 {
		var sum float64
		for _, v := range stats.TTFTHistory {
			sum += v
		}
		stats.AvgTTFTMs = sum / float64(n)
	}
	return stats
}

// GetStrategy returns the routing strategy Router was configured with.
func (r *Router) GetStrategy() router.Strategy {
	return r.strategy
}

// SetCooldown sets (or clears, when until is zero) deploymentID's cooldown
// expiry via the shared cooldown.Manager.
func (r *Router) SetCooldown(deploymentID string, until time.Time) error {
	ctx := context.Background()
	if until.IsZero() || !until.After(time.Now()) {
		return r.cooldown.Clear(ctx, deploymentID)
	}
	return r.cooldown.Mark(ctx, deploymentID, time.Until(until))
}

// groupFor returns the group deploymentID was registered under, or "".
func (r *Router) groupFor(deploymentID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groupByID[deploymentID]
}

// selectorInputFor adapts a pkg/router.RequestContext plus cooldown-filtered
// candidates into the selector.Input shape r.sel.Pick expects.
func selectorInputFor(reqCtx *router.RequestContext, candidates []selector.Deployment, latencyBuffer float64) selector.Input {
	return selector.Input{
		Group:                reqCtx.Model,
		Deployments:          candidates,
		Streaming:            reqCtx.IsStreaming,
		EstimatedInputTokens: reqCtx.EstimatedInputTokens,
		LatencyBuffer:        latencyBuffer,
	}
}
