package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/corvex/llmgate/internal/healthcheck"
	"github.com/corvex/llmgate/pkg/types"
)

// HealthCheckConfig controls the background prober Router.StartHealthChecks
// builds, mirroring internal/healthcheck.Config minus the Prober callback
// (Router supplies that itself).
type HealthCheckConfig = healthcheck.Config

// StartHealthChecks builds a healthcheck.Checker wired to this Router's own
// deployments and starts its background probe loop until ctx is canceled.
// Safe to call at most once; a second call is a no-op (Checker.Start guards
// re-entry).
func (r *Router) StartHealthChecks(ctx context.Context, cfg HealthCheckConfig) {
	if r.checker == nil {
		r.checker = healthcheck.NewChecker(cfg, r.probe, r.states, nil)
	}
	r.checker.Start(ctx, r.healthTargets)
}

// HealthCheck runs one synchronous probe round across every registered
// deployment and returns each deployment's Result.
func (r *Router) HealthCheck(ctx context.Context) ([]healthcheck.Result, error) {
	if r.checker == nil {
		r.checker = healthcheck.NewChecker(healthcheck.Config{Enabled: true}, r.probe, r.states, nil)
	}
	return r.checker.Run(ctx, r.healthTargets()), nil
}

// Readiness returns the checker's cached readiness snapshot (computed by
// the most recent HealthCheck/background probe round), annotated with the
// number of telemetry callbacks currently registered.
func (r *Router) Readiness() *healthcheck.Readiness {
	if r.checker == nil {
		return &healthcheck.Readiness{Ready: false, CheckedAt: time.Now()}
	}
	snap := r.checker.Readiness()
	snap.CallbacksRegistered = r.telemetry.CallbackCount()
	return snap
}

// Liveness reports whether the Router itself is constructed and able to
// serve requests (always true once NewRouter has returned successfully);
// distinct from Readiness, which reflects upstream deployment health.
func (r *Router) Liveness() bool {
	return r != nil
}

// healthTargets builds one healthcheck.Target per registered deployment,
// expanding a wildcard ModelName (e.g. "openai/*") into a concrete
// candidate list via the deployment's own provider.SupportedModels(), so
// the first N-1 candidates serve as probe fallbacks per spec.md §4.8.
func (r *Router) healthTargets() []healthcheck.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]healthcheck.Target, 0, len(r.byID))
	for id, md := range r.byID {
		targets = append(targets, healthcheck.Target{
			DeploymentID: id,
			Models:       probeModelCandidates(md),
			Mode:         healthcheck.ModeChat,
		})
	}
	return targets
}

// probeModelCandidates resolves the concrete models to probe for md: the
// literal ModelName when it names one model, or up to 3 of the provider's
// SupportedModels() when ModelName is a wildcard ("*" or "provider/*").
func probeModelCandidates(md ManagedDeployment) []string {
	if !strings.Contains(md.Deployment.ModelName, "*") {
		return []string{md.Deployment.ModelName}
	}
	supported := md.Provider.SupportedModels()
	const maxCandidates = 3
	if len(supported) > maxCandidates {
		supported = supported[:maxCandidates]
	}
	if len(supported) == 0 {
		return nil
	}
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// probe is the healthcheck.Prober Router supplies: a minimal per-mode
// payload built and sent through the same ProviderClient.InvokeX methods
// live traffic uses, so a probe exercises the real request path.
func (r *Router) probe(ctx context.Context, deploymentID string, model string, mode healthcheck.Mode) error {
	md, ok := r.lookup(deploymentID)
	if !ok {
		return fmt.Errorf("gateway: unknown deployment %q", deploymentID)
	}

	switch mode {
	case healthcheck.ModeChat:
		_, err := r.client.InvokeChat(ctx, md.Provider, buildChatProbe(model))
		return err
	case healthcheck.ModeEmbedding:
		_, err := r.client.InvokeEmbedding(ctx, md.Provider, buildEmbeddingProbe(model))
		return err
	case healthcheck.ModeAudioTranscription, healthcheck.ModeAudioSpeech:
		// Audio probes require sample media the deployment config doesn't
		// carry; fall back to a chat probe against the same deployment so
		// reachability is still exercised.
		_, err := r.client.InvokeChat(ctx, md.Provider, buildChatProbe(model))
		return err
	case healthcheck.ModeImageGeneration:
		_, err := r.client.InvokeImageGeneration(ctx, md.Provider, buildImageProbe(model))
		return err
	case healthcheck.ModeRerank:
		_, err := r.client.InvokeRerank(ctx, md.Provider, buildRerankProbe(model))
		return err
	default:
		return fmt.Errorf("gateway: unsupported health probe mode %q", mode)
	}
}

func buildChatProbe(model string) *types.ChatRequest {
	return &types.ChatRequest{
		Model:     model,
		Messages:  []types.ChatMessage{{Role: "user", Content: []byte(`"healthcheck"`)}},
		MaxTokens: 1,
	}
}

func buildEmbeddingProbe(model string) *types.EmbeddingRequest {
	return &types.EmbeddingRequest{
		Model: model,
		Input: types.NewEmbeddingInputFromString("healthcheck"),
	}
}

func buildImageProbe(model string) *types.ImageGenerationRequest {
	return &types.ImageGenerationRequest{
		Model:  model,
		Prompt: "healthcheck",
		N:      1,
	}
}

func buildRerankProbe(model string) *types.RerankRequest {
	return &types.RerankRequest{
		Model:     model,
		Query:     "healthcheck",
		Documents: []string{"healthcheck"},
	}
}
