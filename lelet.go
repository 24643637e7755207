// Package lelet is an M:N asynchronous task executor: user futures are
// multiplexed over a fixed set of logical Processors, each driven by a
// replaceable Machine, with a sysmon goroutine that detects and recovers
// from a Machine blocked inside a task.
package lelet

import (
	"context"
	"fmt"
	"sync"

	"github.com/isgasho/lelet/internal/sched"
)

var (
	mu      sync.Mutex
	sys     *sched.System
	cfg     sched.Config
	cfgOnce sync.Once
)

// baseConfig lazily seeds cfg with working defaults, reading the current
// package-level logger (SetLogger) as its baseline — called under mu,
// exactly once, before either Configure's options or System construction
// observe cfg.
func baseConfig() {
	cfgOnce.Do(func() {
		cfg.Obs = sched.NewObservability()
		cfg.Obs.Logger = getLogger()
	})
}

// Configure applies opts to the scheduler's configuration. It must be
// called before the first Spawn (which constructs the System singleton);
// after that it returns ErrAlreadyInitialized — spec.md's "set_num_cpus
// may only be called before the first task is submitted" generalizes
// here to every option, since they all govern how the System singleton is
// constructed.
func Configure(opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	if sys != nil {
		return fmt.Errorf("lelet: %w", ErrAlreadyInitialized)
	}
	baseConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return nil
}

func ensureSystemLocked() *sched.System {
	baseConfig()
	if sys == nil {
		sys = sched.NewSystem(cfg)
	}
	return sys
}

// Spawn submits f to the scheduler and returns a handle for its eventual
// result — spec.md §6's `spawn(future) -> join_handle`.
func Spawn[T any](f Future[T]) JoinHandle[T] {
	mu.Lock()
	s := ensureSystemLocked()
	mu.Unlock()

	t := newTask(s, f)
	s.Push(t)
	return JoinHandle[T]{t: t}
}

// SetNumCPUs configures scheduler parallelism — spec.md §6. Default is
// detected hardware parallelism. Returns ErrAlreadyInitialized if any
// task has already been spawned.
func SetNumCPUs(n int) error {
	mu.Lock()
	defer mu.Unlock()
	if sys != nil {
		return asConfigError(sys.SetNumCPUs(n))
	}
	baseConfig()
	cfg.NumCPU = n
	return nil
}

// MarkBlocking is spec.md §4.6's synchronous hint: call it from inside a
// running Future just before a long blocking operation, so the scheduler
// can hand this Processor to a fresh Machine immediately rather than
// waiting for sysmon's stall detection. ctx must be the one passed to
// Future.Poll; calling it with any other context (or outside of a running
// task) is a no-op.
func MarkBlocking(ctx context.Context) {
	sched.MarkBlocking(ctx)
}
