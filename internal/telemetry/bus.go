// Package telemetry wraps the teacher's observability.CallbackManager as
// spec.md §9's TelemetryBus: explicit Register/Unregister handles owned by
// the caller, replacing the process-wide mutable callback list the REDESIGN
// FLAGS call out (no hidden lifetime coupling via weakrefs).
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/corvex/llmgate/internal/observability"
)

// Event is the one payload type every TelemetryBus observer receives,
// matching spec.md §6.3's StandardLoggingPayload exactly.
type Event = observability.StandardLoggingPayload

// Handle is returned by Register; the caller uses it to Unregister without
// needing to know or coordinate on a name.
type Handle struct {
	bus  *Bus
	name string
}

// Unregister removes the callback this Handle was issued for. Safe to call
// more than once.
func (h Handle) Unregister() {
	if h.bus != nil {
		h.bus.manager.Unregister(h.name)
	}
}

// Bus is the Router's sole telemetry sink: synchronous pre/post-call
// observers plus success/failure/fallback/stream fan-out, all delegated to
// the wrapped CallbackManager. A process-level default (Default()) exists
// for embedding convenience, per spec.md §9, but nothing requires using it.
type Bus struct {
	manager *observability.CallbackManager
	seq     int64
}

// New creates an empty Bus. Register the OTel/Prometheus/Datadog/Langfuse/
// Slack/S3 callbacks (or any custom observability.Callback) onto it.
func New() *Bus {
	return &Bus{manager: observability.NewCallbackManager()}
}

var (
	defaultOnce sync.Once
	defaultBus  *Bus
)

// Default returns the process-level convenience Bus. A Router is never
// required to use it; it exists only so a program with exactly one Router
// doesn't have to thread a Bus through every call site.
func Default() *Bus {
	defaultOnce.Do(func() { defaultBus = New() })
	return defaultBus
}

// Register adds cb to the fan-out list and returns a Handle the caller owns
// for later Unregister — the explicit-handle pattern spec.md §9 calls for in
// place of a weakref callback list.
func (b *Bus) Register(cb observability.Callback) Handle {
	name := cb.Name()
	if name == "" {
		name = fmt.Sprintf("anon-%d", atomic.AddInt64(&b.seq, 1))
	}
	b.manager.Register(cb)
	return Handle{bus: b, name: name}
}

// EmitPreCall fires before a provider call is attempted.
func (b *Bus) EmitPreCall(ctx context.Context, ev *Event) {
	b.manager.LogPreAPICall(ctx, ev)
}

// EmitPostCall fires after a provider call returns, success or failure.
func (b *Bus) EmitPostCall(ctx context.Context, ev *Event) {
	b.manager.LogPostAPICall(ctx, ev)
}

// EmitStreamChunk fires once per streaming chunk.
func (b *Bus) EmitStreamChunk(ctx context.Context, ev *Event, chunk any) {
	b.manager.LogStreamEvent(ctx, ev, chunk)
}

// EmitSuccess fires once a request lifecycle completes successfully,
// matching spec.md §4.9 step 5c.
func (b *Bus) EmitSuccess(ctx context.Context, ev *Event) {
	b.manager.LogSuccessEvent(ctx, ev)
}

// EmitFailure fires on terminal failure propagation, matching spec.md §4.9
// step 6.
func (b *Bus) EmitFailure(ctx context.Context, ev *Event, err error) {
	b.manager.LogFailureEvent(ctx, ev, err)
}

// EmitFallback fires when the retry engine swaps model groups.
func (b *Bus) EmitFallback(ctx context.Context, originalModel, fallbackModel string, err error, success bool) {
	b.manager.LogFallbackEvent(ctx, originalModel, fallbackModel, err, success)
}

// Shutdown gracefully shuts down every registered callback.
func (b *Bus) Shutdown(ctx context.Context) error {
	return b.manager.Shutdown(ctx)
}

// CallbackCount reports how many observers are currently registered, used by
// HealthChecker.Readiness (spec.md §4.8: "number of callbacks registered").
func (b *Bus) CallbackCount() int {
	return b.manager.Len()
}
