package sched

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// DefaultStallThreshold and DefaultSysmonPeriod are the policy constants
// spec.md §9 recommends: a stall threshold significantly larger than a
// typical poll, and a sysmon period an order of magnitude smaller, so
// revocation reacts quickly without false-triggering on ordinary load.
const (
	DefaultStallThreshold = 100 * time.Millisecond
	DefaultSysmonPeriod   = 10 * time.Millisecond
)

// Config configures a System at construction time. Every field has a
// working zero-value default, mirroring the functional-options surface
// the root package builds on top of this.
type Config struct {
	NumCPU         int
	Clock          clockz.Clock
	Obs            *Observability
	StallThreshold time.Duration
	SysmonPeriod   time.Duration
	IdleWindow     time.Duration
	// RunQuantum overrides DefaultRunQuantum (spec.md §4.3's MAX_RUNS).
	RunQuantum int
}

// System is the process-wide registry described in spec.md §3/§4.5: the
// fixed (until first use) set of Processors, the tick clock sysmon drives,
// the round-robin push cursor, and the Machine id source.
type System struct {
	mu         sync.RWMutex
	processors []*Processor

	tick             atomic.Uint64
	pushCounter      atomic.Uint64
	machineIDCounter atomic.Uint64
	used             atomic.Bool

	clock               clockz.Clock
	stallThresholdTicks uint64
	sysmonPeriod        time.Duration
	runQuantum          int

	threadPool *ThreadPool
	obs        *Observability

	sysmonWake chan struct{}
	stopSysmon chan struct{}
	sysmonDone chan struct{}
}

// NewSystem constructs a System and starts its sysmon goroutine. No
// Machines are spawned yet: spec.md treats Processors as "created once at
// first use", which this port implements as a lazy spawn on the first
// push routed to each one (see System.Push).
func NewSystem(cfg Config) *System {
	if cfg.NumCPU <= 0 {
		cfg.NumCPU = runtime.NumCPU()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockz.RealClock
	}
	if cfg.Obs == nil {
		cfg.Obs = NewObservability()
	}
	if cfg.StallThreshold <= 0 {
		cfg.StallThreshold = DefaultStallThreshold
	}
	if cfg.SysmonPeriod <= 0 {
		cfg.SysmonPeriod = DefaultSysmonPeriod
	}
	if cfg.RunQuantum <= 0 {
		cfg.RunQuantum = DefaultRunQuantum
	}

	s := &System{
		clock:        cfg.Clock,
		sysmonPeriod: cfg.SysmonPeriod,
		runQuantum:   cfg.RunQuantum,
		obs:          cfg.Obs,
		sysmonWake:   make(chan struct{}, 1),
		stopSysmon:   make(chan struct{}),
		sysmonDone:   make(chan struct{}),
	}
	s.stallThresholdTicks = stallTicks(cfg.StallThreshold, cfg.SysmonPeriod)
	s.threadPool = NewThreadPool(cfg.IdleWindow, cfg.Clock, cfg.Obs)
	s.processors = newProcessorSet(cfg.NumCPU, s)

	go s.runSysmon()
	return s
}

func newProcessorSet(n int, sys *System) []*Processor {
	procs := make([]*Processor, n)
	for i := range procs {
		procs[i] = newProcessor(i, sys)
	}
	return procs
}

func stallTicks(threshold, period time.Duration) uint64 {
	ticks := (int64(threshold) + int64(period) - 1) / int64(period)
	if ticks < 1 {
		ticks = 1
	}
	return uint64(ticks)
}

func (s *System) procs() []*Processor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processors
}

// NumCPU reports the current Processor count.
func (s *System) NumCPU() int {
	return len(s.procs())
}

// SetNumCPUs resizes the Processor set. spec.md §4.5/§6: only legal before
// the first task is ever pushed through this System.
func (s *System) SetNumCPUs(n int) error {
	if n <= 0 {
		return fmt.Errorf("sched: NumCPU must be positive, got %d", n)
	}
	if s.used.Load() {
		return ErrAlreadyInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used.Load() {
		return ErrAlreadyInitialized
	}
	s.processors = newProcessorSet(n, s)
	return nil
}

// now loads the current tick, serving as the Processor/Machine "clock".
func (s *System) now() uint64 { return s.tick.Load() }

func (s *System) nextMachineID() uint64 { return s.machineIDCounter.Add(1) }

// Push implements spec.md §4.5 System::push: route by hint if valid, else
// round-robin, lazily spawn the target Processor's first Machine, then
// push+wake. Sysmon is nudged after every push, whether or not the wake
// signal was delivered (see the comment in the body).
func (s *System) Push(t Task) {
	s.used.Store(true)

	procs := s.procs()
	n := len(procs)
	idx := 0
	if hint := t.Tag().Hint(); hint != NoHint && int(hint) < n {
		idx = int(hint)
	} else {
		idx = int(s.pushCounter.Add(1)-1) % n
	}

	p := procs[idx]
	if p.markStarted() {
		spawnMachine(s, p)
	}

	p.PushThenWakeUp(t)
	// Always nudge sysmon: it may be parked in its quiescent wait from
	// before this Processor had any work, and needs a reason to resume
	// ticking and watching for stalls.
	s.sysmonWakeUp()
}

// pop implements spec.md §4.5 System::pop: delegate to the calling
// Processor's own injector.
func (s *System) pop(callerIndex int, worker *WorkerDeque) (Task, bool) {
	procs := s.procs()
	if callerIndex < 0 || callerIndex >= len(procs) {
		return nil, false
	}
	return procs[callerIndex].injector.PopBatch(worker)
}

// steal implements spec.md §4.5 System::steal: visit every other
// Processor (every one whose deque is not worker) in rotated order,
// trying its injector then its worker deque.
func (s *System) steal(worker *WorkerDeque) (Task, bool) {
	procs := s.procs()
	n := len(procs)
	if n == 0 {
		return nil, false
	}
	if s.obs.Metrics != nil {
		s.obs.Metrics.Counter(MetricStealsAttempted).Inc()
	}

	// rotate by tick, not pushCounter, so stealing never shifts Push's
	// round-robin placement of new submissions.
	start := int(s.tick.Load() % uint64(n))
	for i := 0; i < n; i++ {
		p := procs[(start+i)%n]
		if p.Worker() == worker {
			continue // the caller's own Processor
		}
		if t, ok := p.injector.StealBatch(worker); ok {
			s.recordStealSucceeded()
			return t, true
		}
		if t, ok := p.Worker().Steal(); ok {
			s.recordStealSucceeded()
			return t, true
		}
	}
	return nil, false
}

func (s *System) recordStealSucceeded() {
	if s.obs.Metrics != nil {
		s.obs.Metrics.Counter(MetricStealsSucceeded).Inc()
	}
}

// sysmonWakeUp rouses sysmon out of its idle park, try-send semantics
// identical to Processor.WakeUp.
func (s *System) sysmonWakeUp() {
	select {
	case s.sysmonWake <- struct{}{}:
	default:
	}
}

// Close stops sysmon and releases observability resources. Intended for
// tests and short-lived programs; a long-running server typically never
// calls this.
func (s *System) Close() error {
	close(s.stopSysmon)
	<-s.sysmonDone
	return s.obs.Close()
}

// runSysmon is the loop described in spec.md §4.5 "Sysmon loop": on a
// steady cadence, advance the tick and scan for stalled Processors; when
// there is nothing live and nothing queued, park on sysmonWake instead of
// polling, so an idle scheduler costs nothing.
func (s *System) runSysmon() {
	defer close(s.sysmonDone)
	runProtected(func() {
		var timer <-chan time.Time
		for {
			if s.quiescent() {
				timer = nil
				select {
				case <-s.sysmonWake:
				case <-s.stopSysmon:
					return
				}
				continue
			}

			if timer == nil {
				timer = s.clock.After(s.sysmonPeriod)
			}
			select {
			case <-timer:
				timer = nil
			case <-s.sysmonWake:
				// re-check quiescence only; the tick advances on the timer
				continue
			case <-s.stopSysmon:
				return
			}

			s.tick.Add(1)
			s.scanAndRevoke()
		}
	})
}

// quiescent reports whether every Processor is either never-started or
// genuinely parked with nothing pending — the condition under which
// sysmon can safely stop ticking and just wait to be woken.
func (s *System) quiescent() bool {
	for _, p := range s.procs() {
		if !p.started.Load() {
			continue
		}
		if p.LastSeen() != NoHint {
			return false
		}
		if p.Injector().Len() > 0 {
			return false
		}
	}
	return true
}

// scanAndRevoke implements spec.md §4.4's revocation protocol trigger:
// any started, non-parked Processor whose heartbeat has fallen more than
// stallThresholdTicks behind the current tick is handed to a fresh
// Machine.
func (s *System) scanAndRevoke() {
	cur := s.tick.Load()
	for idx, p := range s.procs() {
		if !p.started.Load() {
			continue
		}
		last := p.LastSeen()
		if last == NoHint {
			continue
		}
		if cur <= last+s.stallThresholdTicks {
			continue
		}

		oldMachineID := p.machineID.Load()
		fresh := respawnOnto(s, p)

		if s.obs.Metrics != nil {
			s.obs.Metrics.Counter(MetricRevocationTotal).Inc()
		}
		stalledFor := time.Duration(cur-last) * s.sysmonPeriod
		if tr := s.obs.Tracer; tr != nil {
			_, span := tr.StartSpan(context.Background(), SpanRevocation)
			span.SetTag(TagProcessorIndex, itoa(idx))
			span.SetTag(TagStallMillis, itoa64(uint64(stalledFor.Milliseconds())))
			span.Finish()
		}
		s.obs.Logger.Event(LevelWarning, "processor revoked: stalled machine replaced", map[string]any{
			"processor_index": idx,
			"old_machine_id":  oldMachineID,
			"new_machine_id":  fresh.id,
			"stalled_for":     stalledFor.String(),
		})
		s.obs.emitRevocation(context.Background(), RevocationEvent{
			ProcessorIndex: idx,
			StalledFor:     stalledFor,
			OldMachineID:   oldMachineID,
			NewMachineID:   fresh.id,
			Timestamp:      s.clock.Now(),
		})
	}
}
