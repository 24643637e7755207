package sched

import (
	"context"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants, styled after the pipz connectors (see
// backoff.go/fallback.go in the retrieval pack): metric keys, span keys and
// hook event keys are declared once, as typed constants, rather than raw
// strings scattered through the implementation.
const (
	// Metrics.
	MetricTasksRun         = metricz.Key("sched.tasks.run.total")
	MetricStealsAttempted  = metricz.Key("sched.steals.attempted.total")
	MetricStealsSucceeded  = metricz.Key("sched.steals.succeeded.total")
	MetricRevocationTotal  = metricz.Key("sched.revocations.total")
	MetricThreadPoolSpawn  = metricz.Key("sched.threadpool.spawned.total")
	MetricThreadPoolExit   = metricz.Key("sched.threadpool.exited.total")
	MetricProcessorsAsleep = metricz.Key("sched.processors.asleep")

	// Spans.
	SpanRunTask    = tracez.Key("sched.run_task")
	SpanRevocation = tracez.Key("sched.revoke")

	// Tags.
	TagProcessorIndex = tracez.Tag("sched.processor_index")
	TagTaskHint       = tracez.Tag("sched.task_hint")
	TagStallMillis    = tracez.Tag("sched.stall_ms")

	// Hook events.
	EventRevocation = hookz.Key("sched.revocation")
)

// RevocationEvent is emitted via hookz whenever sysmon revokes a Processor
// from a stuck Machine and binds a fresh one, mirroring the original Rust
// crate's trace line for the same event (gated there behind the "tracing"
// feature; offered here as an always-on, opt-in hook instead).
type RevocationEvent struct {
	ProcessorIndex int
	StalledFor     time.Duration
	OldMachineID   uint64
	NewMachineID   uint64
	Timestamp      time.Time
}

// Observability bundles the optional third-party instrumentation a System
// is configured with. All fields have safe zero-overhead defaults so a
// System can be constructed without opting into any of them.
type Observability struct {
	Logger  Logger
	Tracer  *tracez.Tracer
	Metrics *metricz.Registry
	Hooks   *hookz.Hooks[RevocationEvent]
}

// NewObservability builds an Observability with working (if unconfigured)
// defaults: a tracer and metrics registry are always created (they're
// cheap and inert until read), hooks are created so a handler for
// EventRevocation can be registered before or after the System starts.
func NewObservability() *Observability {
	return &Observability{
		Logger:  NoopLogger,
		Tracer:  tracez.New(),
		Metrics: metricz.New(),
		Hooks:   hookz.New[RevocationEvent](),
	}
}

func (o *Observability) emitRevocation(ctx context.Context, ev RevocationEvent) {
	if o.Hooks == nil {
		return
	}
	_ = o.Hooks.Emit(ctx, EventRevocation, ev) //nolint:errcheck
}

// Close releases the tracer and hook dispatcher. The metrics registry has
// no teardown.
func (o *Observability) Close() error {
	if o.Tracer != nil {
		o.Tracer.Close()
	}
	if o.Hooks != nil {
		o.Hooks.Close()
	}
	return nil
}
