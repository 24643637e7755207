package lelet

import (
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"

	"github.com/isgasho/lelet/internal/sched"
)

// Option configures the package-level scheduler before its first use.
// Every With* function follows the corpus's functional-options shape
// (stumpy.L.WithStumpy, logiface.WithLevel, eventloop's options.go, pipz
// connectors' WithClock) — apply them via Configure before the first
// Spawn; once Spawn has started the scheduler singleton, Configure
// rejects them with ErrAlreadyInitialized.
type Option func(*sched.Config)

// WithLogger overrides the scheduler's diagnostic sink for this process,
// in place of whatever SetLogger last installed.
func WithLogger(l sched.Logger) Option {
	return func(cfg *sched.Config) { cfg.Obs.Logger = l }
}

// WithClock replaces the scheduler's time source — its tick cadence, the
// ThreadPool idle-reclaim timer — with c, so tests can drive it with
// clockz.NewFakeClock() instead of waiting on wall-clock sleeps.
func WithClock(c clockz.Clock) Option {
	return func(cfg *sched.Config) { cfg.Clock = c }
}

// WithTracer attaches a tracez.Tracer; spans are created around each task
// poll and around every revocation.
func WithTracer(t *tracez.Tracer) Option {
	return func(cfg *sched.Config) { cfg.Obs.Tracer = t }
}

// WithMetrics attaches a metricz.Registry for scheduler-wide counters
// (tasks run, steals, revocations, thread-pool spawns/exits). No gauges
// are maintained.
func WithMetrics(m *metricz.Registry) Option {
	return func(cfg *sched.Config) { cfg.Obs.Metrics = m }
}

// WithHooks attaches a hookz.Hooks dispatcher; sysmon emits
// sched.EventRevocation whenever it revokes a stalled Processor.
func WithHooks(h *hookz.Hooks[sched.RevocationEvent]) Option {
	return func(cfg *sched.Config) { cfg.Obs.Hooks = h }
}

// WithStallThreshold overrides spec.md §9's stall-detection threshold
// (default sched.DefaultStallThreshold).
func WithStallThreshold(d time.Duration) Option {
	return func(cfg *sched.Config) { cfg.StallThreshold = d }
}

// WithSysmonPeriod overrides sysmon's tick cadence (default
// sched.DefaultSysmonPeriod).
func WithSysmonPeriod(d time.Duration) Option {
	return func(cfg *sched.Config) { cfg.SysmonPeriod = d }
}

// WithIdleWindow overrides the ThreadPool's idle-reclaim window (default
// sched.DefaultIdleWindow).
func WithIdleWindow(d time.Duration) Option {
	return func(cfg *sched.Config) { cfg.IdleWindow = d }
}

// WithRunQuantum overrides spec.md §4.3's MAX_RUNS fairness constant
// (default sched.DefaultRunQuantum).
func WithRunQuantum(n int) Option {
	return func(cfg *sched.Config) { cfg.RunQuantum = n }
}
