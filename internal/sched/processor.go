package sched

import (
	"context"
	"sync/atomic"
)

// DefaultRunQuantum is the fairness constant from spec.md §4.3: after this
// many tasks run back-to-back from the local worker deque, the Processor
// is forced to check its injector before continuing, so a steady stream
// of locally-resident work can never starve a submission sitting in the
// injector (P7). Configurable per System via Config.RunQuantum.
const DefaultRunQuantum = 64

// Processor is a fixed logical execution slot (spec.md §3/§4.3). N of
// them are created at System init (and rebuilt only by a SetNumCPUs call
// made before first use); after that they are handed off between Machines
// by the revocation protocol rather than created or torn down.
type Processor struct {
	index int

	// machineID is the revocation ballot: the bound Machine stores its id
	// here on entry to Run, and compares it against its own id after every
	// task to detect having been revoked. NoHint until a Machine first
	// binds; parking does not reset it (only lastSeen marks a park).
	machineID atomic.Uint64
	// lastSeen is the liveness heartbeat sysmon reads. NoHint while
	// parked, so a parked Processor is never mistaken for stalled.
	lastSeen atomic.Uint64
	// started records whether a Machine has ever been spawned for this
	// Processor, gating System.Push's lazy first-spawn.
	started atomic.Bool

	injector *Injector
	// worker is this Processor's work-stealing deque. Unlike the Rust
	// original (where the deque is Machine-owned and recreated per
	// Machine), it lives for the Processor's entire lifetime: a revoked
	// Machine's unfinished local queue would otherwise be stranded and
	// unstealable the moment a fresh Machine brought its own empty one.
	// See DESIGN.md.
	worker *WorkerDeque
	wake   chan struct{} // capacity 1, see Processor.WakeUp

	sys *System
}

func newProcessor(index int, sys *System) *Processor {
	p := &Processor{
		index:    index,
		injector: NewInjector(),
		worker:   NewWorkerDeque(),
		wake:     make(chan struct{}, 1),
		sys:      sys,
	}
	p.machineID.Store(NoHint)
	p.lastSeen.Store(NoHint)
	return p
}

// Worker returns this Processor's persistent work-stealing deque, shared
// across however many Machines run it in succession.
func (p *Processor) Worker() *WorkerDeque { return p.worker }

// markStarted reports, on its first call for this Processor, that no
// Machine has ever been spawned for it (returning true so the caller
// spawns one); every subsequent call returns false.
func (p *Processor) markStarted() bool {
	return p.started.CompareAndSwap(false, true)
}

// Index is this Processor's stable position in System.processors.
func (p *Processor) Index() int { return p.index }

// Injector exposes the Processor-scoped global queue, for System.Push and
// System.Steal.
func (p *Processor) Injector() *Injector { return p.injector }

// LastSeen returns the last tick at which a Machine heartbeat was
// recorded for this Processor, or NoHint if it is parked. Sysmon uses
// this to decide whether to revoke.
func (p *Processor) LastSeen() uint64 { return p.lastSeen.Load() }

// StillOnMachine reports whether m is still the Machine bound to this
// Processor — the revocation check performed before and after every
// Task.Run.
func (p *Processor) StillOnMachine(m *Machine) bool {
	return p.machineID.Load() == m.id
}

// WakeUp delivers a wake-up signal if the channel isn't already holding
// one (try-send semantics), reporting whether a signal was actually
// delivered. Idempotent: multiple callers waking the same parked
// Processor produce exactly one delivered signal, but no signal is ever
// lost because a Processor always drains the channel before it parks.
func (p *Processor) WakeUp() bool {
	select {
	case p.wake <- struct{}{}:
		return true
	default:
		return false
	}
}

// PushThenWakeUp pushes t onto this Processor's injector then wakes it.
func (p *Processor) PushThenWakeUp(t Task) bool {
	p.injector.Push(t)
	return p.WakeUp()
}

func (p *Processor) drainWakeNotification() {
	select {
	case <-p.wake:
	default:
	}
}

// Run is the Processor's main loop (spec.md §4.3), driven by Machine m on
// its own goroutine/locked OS thread, using worker as the local deque.
// It returns when m has been revoked (another Machine now owns p) — the
// caller (the closure built by spawnMachine or respawnOnto) must exit
// immediately afterward.
func (p *Processor) Run(ctx context.Context, m *Machine, worker *WorkerDeque) {
	p.machineID.Store(m.id)
	p.lastSeen.Store(p.sys.now())

	runCounter := 0
	bo := newBackoff()

	for {
		p.lastSeen.Store(p.sys.now())

		if runCounter >= p.sys.runQuantum {
			runCounter = 0
			p.drainWakeNotification()
			if t, ok := p.sys.pop(p.index, worker); ok {
				if !p.runTask(ctx, m, t) {
					return
				}
				runCounter++
				continue
			}
		}

		if t, ok := worker.Pop(); ok {
			if !p.runTask(ctx, m, t) {
				return
			}
			runCounter++
			continue
		}

		// worker is empty: 1. drain+pop from the injector.
		runCounter = 0
		p.drainWakeNotification()
		if t, ok := p.sys.pop(p.index, worker); ok {
			if !p.runTask(ctx, m, t) {
				return
			}
			runCounter++
			continue
		}

		// 2. steal from peers.
		if t, ok := p.sys.steal(worker); ok {
			if !p.runTask(ctx, m, t) {
				return
			}
			runCounter++
			continue
		}

		// 3. no work anywhere: sleep, then give the injector one more
		// chance (a submission may have landed while falling asleep).
		p.sleep(bo)

		if t, ok := p.sys.pop(p.index, worker); ok {
			if !p.runTask(ctx, m, t) {
				return
			}
			runCounter = 0
			continue
		}
	}
}

// runTask polls a single task, handling the revocation check on both
// sides of the call. It returns false if the Machine has been (or just
// was) revoked, meaning Run must return immediately.
func (p *Processor) runTask(ctx context.Context, m *Machine, t Task) bool {
	if !p.StillOnMachine(m) {
		// lost the race between obtaining the task and checking — hand it
		// back rather than run work this Machine no longer owns.
		p.sys.Push(t)
		return false
	}

	t.Tag().SetHint(p.index)

	runCtx := withMachine(ctx, m, p)
	if tr := p.sys.obs.Tracer; tr != nil {
		spanCtx, span := tr.StartSpan(runCtx, SpanRunTask)
		span.SetTag(TagProcessorIndex, itoa(p.index))
		span.SetTag(TagTaskHint, itoa64(t.Tag().Hint()))
		runCtx = spanCtx
		defer span.Finish()
	}

	t.Run(runCtx)
	if p.sys.obs.Metrics != nil {
		p.sys.obs.Metrics.Counter(MetricTasksRun).Inc()
	}

	if !p.StillOnMachine(m) {
		// the task blocked this Machine's thread; sysmon rebound the
		// Processor to a fresh Machine while we were away in Task.Run.
		return false
	}

	return true
}

func (p *Processor) sleep(bo *backoff) {
	if !bo.isCompleted() {
		bo.snooze()
		return
	}
	p.lastSeen.Store(NoHint)
	<-p.wake
	p.lastSeen.Store(p.sys.now())
	p.sys.sysmonWakeUp()
	bo.reset()
}
