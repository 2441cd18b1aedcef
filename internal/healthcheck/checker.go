// Package healthcheck provides proactive deployment probing, decoupled from
// pkg/provider's build/send/parse machinery by the Prober callback type so
// this package never imports internal/gateway (which owns the real probe
// implementation via its ProviderClient).
package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/corvex/llmgate/internal/resilience"
	"github.com/corvex/llmgate/internal/store"
)

const (
	defaultProbeInterval = 30 * time.Second
	defaultProbeTimeout  = 10 * time.Second
	defaultWorkerCount   = 8
	readinessCacheTTL    = 2 * time.Minute
)

// Config controls the proactive health checker's behavior.
type Config struct {
	Enabled        bool
	Interval       time.Duration
	Timeout        time.Duration
	CooldownPeriod time.Duration
	Workers        int
}

// Prober executes one probe call for (deploymentID, model, mode).
// internal/gateway.Router supplies the real implementation, wrapping its
// ProviderClient.InvokeX methods with a minimal per-mode payload.
type Prober func(ctx context.Context, deploymentID string, model string, mode Mode) error

// Checker periodically probes a set of Targets and persists each Result to
// StateStore under HealthKey(deploymentID), generalizing the teacher's
// single-mode chat-only Prober into the full mode matrix spec.md §4.8 names.
type Checker struct {
	cfg     Config
	probe   Prober
	states  *store.StateStore
	logger  *slog.Logger
	sem     *resilience.Semaphore
	started atomic.Bool

	readyMu  sync.Mutex
	snapshot *Readiness

	cooldownMu           sync.Mutex
	cooldownByDeployment map[string]time.Time
}

// NewChecker creates a Checker. states may be nil to disable persistence
// (results are still computed and returned, just not durably stored).
func NewChecker(cfg Config, probe Prober, states *store.StateStore, logger *slog.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		cfg:                  cfg,
		probe:                probe,
		states:               states,
		logger:               logger,
		sem:                  resilience.NewSemaphore(cfg.Workers),
		cooldownByDeployment: make(map[string]time.Time),
	}
}

// Start begins the probe loop until ctx is canceled. targets is re-evaluated
// before every round so newly registered deployments get picked up without
// restarting the checker.
func (c *Checker) Start(ctx context.Context, targets func() []Target) {
	if c == nil || !c.cfg.Enabled {
		return
	}
	if c.probe == nil {
		c.logger.Warn("healthcheck checker missing prober")
		return
	}
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx, targets)
}

func (c *Checker) run(ctx context.Context, targets func() []Target) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.Run(ctx, targets())

	for {
		select {
		case <-ticker.C:
			c.Run(ctx, targets())
		case <-ctx.Done():
			c.logger.Info("healthcheck checker stopped")
			return
		}
	}
}

// Run probes every target concurrently, bounded by the checker's worker
// semaphore, persists each Result, refreshes the cached Readiness snapshot,
// and returns the full result set.
func (c *Checker) Run(ctx context.Context, targets []Target) []Result {
	if len(targets) == 0 {
		return nil
	}

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		i, t := i, t
		if err := c.sem.Acquire(ctx); err != nil {
			results[i] = Result{DeploymentID: t.DeploymentID, Mode: t.Mode, Healthy: false, CheckedAt: time.Now(), Error: err.Error()}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer c.sem.Release()
			r := c.runOne(ctx, t)
			c.persist(ctx, r)
			results[i] = r
		}()
	}
	wg.Wait()

	c.updateSnapshot(results)
	return results
}

// runOne tries Target.Models in order, first success wins: the N-1
// fallback-candidate rule for a wildcard deployment's probe model.
func (c *Checker) runOne(ctx context.Context, t Target) Result {
	if len(t.Models) == 0 {
		return Result{DeploymentID: t.DeploymentID, Mode: t.Mode, Healthy: false, CheckedAt: time.Now(), Error: "no candidate models configured"}
	}

	var lastErr error
	var lastModel string
	for _, model := range t.Models {
		probeCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		start := time.Now()
		err := c.probe(probeCtx, t.DeploymentID, model, t.Mode)
		cancel()
		latency := float64(time.Since(start).Milliseconds())

		if err == nil {
			return Result{
				DeploymentID: t.DeploymentID,
				Mode:         t.Mode,
				Model:        model,
				Healthy:      true,
				CheckedAt:    time.Now(),
				LatencyMs:    latency,
			}
		}
		lastErr, lastModel = err, model
	}

	return Result{
		DeploymentID: t.DeploymentID,
		Mode:         t.Mode,
		Model:        lastModel,
		Healthy:      false,
		CheckedAt:    time.Now(),
		Error:        lastErr.Error(),
	}
}

func (c *Checker) persist(ctx context.Context, r Result) {
	if !r.Healthy {
		c.logger.Warn("healthcheck probe failed",
			"deployment_id", r.DeploymentID, "mode", r.Mode, "model", r.Model, "error", r.Error)
	}
	if c.states == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		c.logger.Warn("healthcheck result marshal failed", "deployment_id", r.DeploymentID, "error", err)
		return
	}
	// Keep the stored snapshot around for a few probe rounds past its own
	// freshness so a transient store hiccup doesn't immediately read back
	// as "no health data".
	if err := c.states.SetHealth(ctx, r.DeploymentID, raw, c.cfg.Interval*3); err != nil {
		c.logger.Warn("healthcheck result persist failed", "deployment_id", r.DeploymentID, "error", err)
	}
}
