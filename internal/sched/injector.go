package sched

import "sync"

// injectorBatchSize bounds how many tasks a single Pop/Steal call moves
// out of an Injector into a destination WorkerDeque, amortizing lock
// acquisition the way crossbeam's steal_batch_and_pop does for the Rust
// original, without the unbounded-pause risk of moving the whole queue.
const injectorBatchSize = 32

// Injector is the multi-producer, Processor-scoped global queue described
// in spec.md §3: it receives every submission System.Push routes to this
// Processor, whether by hint or round-robin. The WorkerDeque is unbounded,
// so nothing overflows from it into here. Same mutex-protected-FIFO
// reasoning as WorkerDeque (see its doc comment) applies here.
type Injector struct {
	mu    sync.Mutex
	tasks []Task
}

// NewInjector returns an empty injector.
func NewInjector() *Injector {
	return &Injector{}
}

// Push enqueues a task for future draining by PopBatch/StealBatch.
func (inj *Injector) Push(t Task) {
	inj.mu.Lock()
	inj.tasks = append(inj.tasks, t)
	inj.mu.Unlock()
}

// PopBatch moves up to injectorBatchSize tasks into dest and returns one
// of them (the rest are left for dest's owner to Pop later), or false if
// the injector was empty. This is the "pop" side used by the Processor
// that owns this injector.
func (inj *Injector) PopBatch(dest *WorkerDeque) (Task, bool) {
	return inj.drainBatch(dest)
}

// StealBatch is identical to PopBatch but named distinctly for call sites
// that are stealing from a peer's injector rather than draining their own
// — the behavior is the same, a batch move plus one returned task.
func (inj *Injector) StealBatch(dest *WorkerDeque) (Task, bool) {
	return inj.drainBatch(dest)
}

func (inj *Injector) drainBatch(dest *WorkerDeque) (Task, bool) {
	inj.mu.Lock()
	n := len(inj.tasks)
	if n == 0 {
		inj.mu.Unlock()
		return nil, false
	}
	if n > injectorBatchSize {
		n = injectorBatchSize
	}
	batch := make([]Task, n)
	copy(batch, inj.tasks[:n])
	remaining := len(inj.tasks) - n
	copy(inj.tasks, inj.tasks[n:])
	inj.tasks = inj.tasks[:remaining]
	inj.mu.Unlock()

	first := batch[0]
	for _, t := range batch[1:] {
		dest.Push(t)
	}
	return first, true
}

// Len reports the current queue depth, for metrics/diagnostics only.
func (inj *Injector) Len() int {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return len(inj.tasks)
}
