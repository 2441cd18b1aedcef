package metrics

import (
	"context"
	"time"

	"github.com/corvex/llmgate/internal/store"
	llmerrors "github.com/corvex/llmgate/pkg/errors"
)

// transientFailurePenaltySeconds is appended to a deployment's latency
// window on a transient failure, per spec.md §4.4, pushing the selector
// away from a bad deployment before its cooldown kicks in.
const transientFailurePenaltySeconds = 1000.0

// RecorderConfig mirrors the tunables spec.md §6.5 names for the recorder.
type RecorderConfig struct {
	WindowSize             int
	MinTokensForLatency    int
	MaxLatencySecondsPerToken float64
	MaxTTFTSeconds         float64
	GroupMapTTL            time.Duration
}

// DefaultRecorderConfig matches the teacher's pkg/router.DefaultConfig
// MaxLatencyListSize and spec.md §4.4's named defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		WindowSize:                10,
		MinTokensForLatency:       5,
		MaxLatencySecondsPerToken: 60,
		MaxTTFTSeconds:            60,
		GroupMapTTL:               time.Hour,
	}
}

// Event carries the outcome of one provider call, enough for OnSuccess/
// OnFailure to update both the Store-backed DeploymentState and the
// Prometheus Collector.
type Event struct {
	Group        string
	DeploymentID string
	Model        string
	Provider     string
	APIBase      string

	Start    time.Time
	End      time.Time
	TTFT     time.Duration // zero if not streaming or not observed
	Streaming bool

	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	Cost             float64
	StatusCode       int
	ExceptionClass   string
}

// Recorder implements spec.md §4.4's MetricsRecorder: it updates per-
// deployment rolling latency/TTFT windows and minute-bucket usage counters
// under one Store.Update call per event, grounded on
// BaseRouter.ReportSuccess/ReportFailure and
// MemoryStatsStore.appendToHistoryLocked, and mirrors the same event into
// the teacher's existing Prometheus Collector.
type Recorder struct {
	states    *store.StateStore
	collector *Collector
	cfg       RecorderConfig
}

// NewRecorder wires a StateStore (the Store-backed "{group}_map" owner) and
// the existing Prometheus Collector together behind one recording surface.
func NewRecorder(states *store.StateStore, collector *Collector, cfg RecorderConfig) *Recorder {
	if cfg.WindowSize <= 0 {
		cfg = DefaultRecorderConfig()
	}
	if collector == nil {
		collector = NewCollector()
	}
	return &Recorder{states: states, collector: collector, cfg: cfg}
}

// OnSuccess records a completed request per spec.md §4.4 steps 1-6.
func (r *Recorder) OnSuccess(ctx context.Context, ev Event) error {
	if ev.Group == "" || ev.DeploymentID == "" {
		return nil
	}

	responseSeconds := ev.End.Sub(ev.Start).Seconds()
	if responseSeconds < 0 {
		responseSeconds = 0
	}

	var ttftSeconds float64
	if ev.Streaming && ev.TTFT > 0 {
		ttftSeconds = ev.TTFT.Seconds()
		if ttftSeconds > r.cfg.MaxTTFTSeconds {
			ttftSeconds = r.cfg.MaxTTFTSeconds
		}
	}

	perTokenLatency := responseSeconds
	if ev.OutputTokens >= r.cfg.MinTokensForLatency && ev.OutputTokens > 0 {
		perTokenLatency = responseSeconds / float64(ev.OutputTokens)
	}
	if perTokenLatency > r.cfg.MaxLatencySecondsPerToken {
		perTokenLatency = r.cfg.MaxLatencySecondsPerToken
	}

	err := r.states.UpdateDeploymentMap(ctx, ev.Group, func(m store.DeploymentMap) (store.DeploymentMap, error) {
		state := ensureState(m, ev.DeploymentID)
		state.LatencyHistory = appendBounded(state.LatencyHistory, perTokenLatency, r.cfg.WindowSize)
		if ev.Streaming && ttftSeconds > 0 {
			state.TTFTHistory = appendBounded(state.TTFTHistory, ttftSeconds, r.cfg.WindowSize)
		}
		bumpUsage(state, ev.TotalTokens, ev.End)
		state.SuccessCount++
		state.TotalRequests++
		state.LastRequestTime = ev.End
		return m, nil
	})
	if err != nil {
		// Write failures must not fail the in-flight client request
		// (spec.md §4.1 failure semantics); the caller already has its
		// response.
		_ = err
	}

	r.collector.RecordRequest(&RequestMetrics{
		Labels: Labels{
			Model:        ev.Model,
			ModelGroup:   ev.Group,
			APIProvider:  ev.Provider,
			APIBase:      ev.APIBase,
			DeploymentID: ev.DeploymentID,
			StatusCode:   200,
		},
		StartTime:    ev.Start,
		EndTime:      ev.End,
		TTFT:         ev.TTFT,
		UpstreamTime: ev.End.Sub(ev.Start),
		InputTokens:  ev.InputTokens,
		OutputTokens: ev.OutputTokens,
		TotalTokens:  ev.TotalTokens,
		Cost:         ev.Cost,
		Success:      true,
		Streaming:    ev.Streaming,
	})
	return nil
}

// OnFailure records a failed request per spec.md §4.4's failure path: a
// transient-class error gets a large penalty appended to the latency
// window; non-transient errors are not penalized at all.
func (r *Recorder) OnFailure(ctx context.Context, ev Event, kind llmerrors.ErrorKind) error {
	if ev.Group == "" || ev.DeploymentID == "" {
		return nil
	}

	transient, _ := llmerrors.Classify(kind)

	err := r.states.UpdateDeploymentMap(ctx, ev.Group, func(m store.DeploymentMap) (store.DeploymentMap, error) {
		state := ensureState(m, ev.DeploymentID)
		if transient {
			state.LatencyHistory = appendBounded(state.LatencyHistory, transientFailurePenaltySeconds, r.cfg.WindowSize)
		}
		state.FailureCount++
		state.TotalRequests++
		state.LastRequestTime = ev.End
		return m, nil
	})
	if err != nil {
		_ = err
	}

	r.collector.RecordRequest(&RequestMetrics{
		Labels: Labels{
			Model:           ev.Model,
			ModelGroup:      ev.Group,
			APIProvider:     ev.Provider,
			APIBase:         ev.APIBase,
			DeploymentID:    ev.DeploymentID,
			StatusCode:      ev.StatusCode,
			ExceptionStatus: string(kind),
			ExceptionClass:  ev.ExceptionClass,
		},
		StartTime:    ev.Start,
		EndTime:      ev.End,
		UpstreamTime: ev.End.Sub(ev.Start),
		Success:      false,
		Streaming:    ev.Streaming,
	})
	return nil
}

// OnRequestStart increments a deployment's active-request gauge, used by
// the least-busy selector strategy. Grounded on
// BaseRouter.ReportRequestStart.
func (r *Recorder) OnRequestStart(ctx context.Context, group, deploymentID, model, provider string) error {
	r.collector.RecordActiveRequest(deploymentID, model, provider, 1)
	return r.states.UpdateDeploymentMap(ctx, group, func(m store.DeploymentMap) (store.DeploymentMap, error) {
		ensureState(m, deploymentID).ActiveRequests++
		return m, nil
	})
}

// OnRequestEnd decrements the active-request gauge. Grounded on
// BaseRouter.ReportRequestEnd.
func (r *Recorder) OnRequestEnd(ctx context.Context, group, deploymentID, model, provider string) error {
	r.collector.RecordActiveRequest(deploymentID, model, provider, -1)
	return r.states.UpdateDeploymentMap(ctx, group, func(m store.DeploymentMap) (store.DeploymentMap, error) {
		state := ensureState(m, deploymentID)
		if state.ActiveRequests > 0 {
			state.ActiveRequests--
		}
		return m, nil
	})
}

func ensureState(m store.DeploymentMap, id string) *store.DeploymentState {
	state, ok := m[id]
	if !ok {
		state = &store.DeploymentState{DeploymentID: id}
		m[id] = state
	}
	return state
}

// appendBounded appends v to history, dropping the oldest entries so the
// length never exceeds size, matching appendToHistoryLocked's
// shift-left-then-append discipline.
func appendBounded(history []float64, v float64, size int) []float64 {
	history = append(history, v)
	if len(history) > size {
		history = history[len(history)-size:]
	}
	return history
}

// bumpUsage updates the current-minute TPM/RPM bucket, resetting the
// counters when the minute key rolls over (format matches
// MemoryStatsStore.updateUsageStatsLocked).
func bumpUsage(state *store.DeploymentState, totalTokens int, at time.Time) {
	key := at.Format("2006-01-02-15-04")
	if state.CurrentMinuteKey != key {
		state.CurrentMinuteKey = key
		state.CurrentMinuteTPM = 0
		state.CurrentMinuteRPM = 0
	}
	state.CurrentMinuteTPM += int64(totalTokens)
	state.CurrentMinuteRPM++
}
