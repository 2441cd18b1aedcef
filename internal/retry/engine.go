// Package retry consolidates the retry/fallback loop that the teacher
// duplicates three times across client.go's ChatCompletion,
// ChatCompletionStream and Embedding into one Engine.Invoke, per spec.md
// §4.6. The backoff shape (exponential with jitter, capped) is grounded on
// client.go's retryBackoff/randomFloat64; the cancellation-aware sleep is
// grounded on the same file's ctx.Done()/time.After select in its retry
// loops.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/corvex/llmgate/internal/cooldown"
	"github.com/corvex/llmgate/internal/selector"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
)

// Config carries the router-core tunables spec.md §6.5 names for the retry
// engine: max_attempts, default_timeout, cooldown_duration.
type Config struct {
	MaxAttempts      int
	DefaultTimeout   time.Duration
	ProviderTimeout  time.Duration // per-attempt cap; 0 means "use remaining deadline"
	CooldownDuration time.Duration
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	Jitter           float64 // 0..1
}

// DefaultConfig matches spec.md §4.6/§6.5's named defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		DefaultTimeout:   60 * time.Second,
		CooldownDuration: cooldown.DefaultPeriod,
		BaseBackoff:      200 * time.Millisecond,
		MaxBackoff:       5 * time.Second,
		Jitter:           0.2,
	}
}

// Resolver fetches the live, cooldown/health-filtered candidate set for a
// model group. Engine.Invoke calls it fresh on every attempt so a deployment
// that just went into cooldown drops out immediately.
type Resolver func(ctx context.Context, group string) ([]selector.Deployment, error)

// Classifier derives the classification + any provider-supplied
// retry-after hint from a provider-call error.
type Classifier func(err error) (kind llmerrors.ErrorKind, retryAfter time.Duration)

// Invoker performs the actual provider call for one chosen deployment, under
// a context bounded to the attempt's deadline.
type Invoker func(ctx context.Context, group string, d selector.Deployment) (response any, err error)

// Hooks lets a caller observe attempt-level events for telemetry without
// Engine depending on a telemetry package.
type Hooks struct {
	OnAttemptFailure func(ctx context.Context, group, deploymentID string, kind llmerrors.ErrorKind, err error)
	OnCooldown       func(ctx context.Context, group, deploymentID string, duration time.Duration)
}

// Engine implements spec.md §4.6's Retry/FallbackEngine: deadline budget,
// bounded attempt loop, classification-driven branching, fallback-group
// swap that preserves the attempt budget (the resolved Open Question in
// spec.md §9 — swapping groups never resets the counter).
type Engine struct {
	cfg      Config
	sel      selector.Selector
	cooldown *cooldown.Manager
	hooks    Hooks

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine wires a Selector and CooldownManager (both already built)
// behind the shared retry loop. hooks may be the zero value.
func NewEngine(cfg Config, sel selector.Selector, cooldownMgr *cooldown.Manager, hooks Hooks) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.CooldownDuration <= 0 {
		cfg.CooldownDuration = DefaultConfig().CooldownDuration
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultConfig().BaseBackoff
	}
	return &Engine{
		cfg:      cfg,
		sel:      sel,
		cooldown: cooldownMgr,
		hooks:    hooks,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Invoke runs the retry/fallback loop for one logical request. groups is the
// ordered fallback chain: groups[0] is the primary model group, groups[1:]
// are tried in order once the current group has no eligible candidate left
// — a group swap never consumes attempt budget, only a completed provider
// call (success or failure) does.
func (e *Engine) Invoke(ctx context.Context, groups []string, baseInput selector.Input, resolve Resolver, classify Classifier, invoke Invoker) (any, error) {
	if len(groups) == 0 {
		return nil, &Error{Kind: llmerrors.KindNoDeploymentsAvailable}
	}

	deadline := time.Now().Add(e.cfg.DefaultTimeout)
	tried := make(map[string]bool)
	var attempts []AttemptError
	groupIdx := 0
	attempt := 0

	for attempt < e.cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: llmerrors.KindCancelled, Cause: err, Attempts: attempts}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &Error{Kind: llmerrors.KindTimeout, Attempts: attempts}
		}

		group := groups[groupIdx]
		candidates, err := resolve(ctx, group)
		var picked *selector.Deployment
		if err == nil {
			in := baseInput
			in.Group = group
			in.Deployments = excludeTried(candidates, tried)
			picked, err = e.sel.Pick(ctx, in)
		}

		if err != nil || picked == nil {
			if groupIdx+1 < len(groups) {
				groupIdx++
				continue
			}
			return nil, &Error{Kind: llmerrors.KindNoDeploymentsAvailable, Cause: err, Attempts: attempts}
		}

		callDeadline := deadline
		if e.cfg.ProviderTimeout > 0 {
			if alt := time.Now().Add(e.cfg.ProviderTimeout); alt.Before(callDeadline) {
				callDeadline = alt
			}
		}
		callCtx, cancel := context.WithDeadline(ctx, callDeadline)
		resp, callErr := invoke(callCtx, group, *picked)
		cancel()

		if callErr == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, &Error{Kind: llmerrors.KindCancelled, Cause: ctx.Err(), Attempts: attempts}
		}

		kind, retryAfter := classify(callErr)
		attempts = append(attempts, AttemptError{Group: group, DeploymentID: picked.ID, Kind: kind, Err: callErr})
		if e.hooks.OnAttemptFailure != nil {
			e.hooks.OnAttemptFailure(ctx, group, picked.ID, kind, callErr)
		}
		attempt++

		_, policy := llmerrors.Classify(kind)
		switch policy {
		case llmerrors.RetryNone:
			return nil, &Error{Kind: kind, Cause: callErr, Attempts: attempts}
		case llmerrors.RetrySame:
			sleepFor := retryAfter
			if sleepFor <= 0 {
				sleepFor = e.backoff(attempt)
			}
			if left := time.Until(deadline); sleepFor > left {
				sleepFor = left
			}
			if !sleepCancelable(ctx, sleepFor) {
				return nil, &Error{Kind: llmerrors.KindCancelled, Cause: ctx.Err(), Attempts: attempts}
			}
			// same deployment, not added to tried; loop retries it.
		case llmerrors.RetryOther:
			tried[picked.ID] = true
			if e.cooldown != nil {
				_ = e.cooldown.Mark(ctx, picked.ID, e.cfg.CooldownDuration)
				if e.hooks.OnCooldown != nil {
					e.hooks.OnCooldown(ctx, group, picked.ID, e.cfg.CooldownDuration)
				}
			}
		}
	}

	return nil, &Error{Kind: llmerrors.KindNoDeploymentsAvailable, Attempts: attempts}
}

// backoff computes exponential backoff with jitter, capped at MaxBackoff,
// matching client.go's retryBackoff.
func (e *Engine) backoff(attempt int) time.Duration {
	if attempt <= 0 || e.cfg.BaseBackoff <= 0 {
		return 0
	}
	b := e.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		next := b * 2
		if next < b {
			break
		}
		b = next
	}
	if e.cfg.MaxBackoff > 0 && b > e.cfg.MaxBackoff {
		b = e.cfg.MaxBackoff
	}
	if e.cfg.Jitter > 0 {
		j := e.cfg.Jitter
		if j > 1 {
			j = 1
		}
		factor := (1 - j) + e.randomFloat64()*(2*j)
		b = time.Duration(float64(b) * factor)
		if e.cfg.MaxBackoff > 0 && b > e.cfg.MaxBackoff {
			b = e.cfg.MaxBackoff
		}
	}
	return b
}

func (e *Engine) randomFloat64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func excludeTried(candidates []selector.Deployment, tried map[string]bool) []selector.Deployment {
	if len(tried) == 0 {
		return candidates
	}
	out := make([]selector.Deployment, 0, len(candidates))
	for _, d := range candidates {
		if !tried[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

// sleepCancelable waits for d, cancellation-aware, matching client.go's
// streaming retry loop's select-on-ctx.Done pattern. Returns false if ctx
// was cancelled before d elapsed.
func sleepCancelable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
