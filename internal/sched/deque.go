package sched

import "sync"

// WorkerDeque is the work-stealing queue described in spec.md §3, held
// here by its Processor for the Processor's whole lifetime (see
// Processor.worker) rather than by a single Machine: the Machine currently
// running that Processor pushes/pops from one end (LIFO, for
// locality of just-woken tasks), while peers steal from the other end
// (FIFO, so a steal takes the oldest, coldest work rather than racing the
// owner for the task it's about to run next).
//
// The Rust original uses crossbeam_deque, a lock-free Chase-Lev deque;
// nothing in the retrieval pack provides an equivalent for Go (see
// DESIGN.md), so this is a mutex-protected slice. Contention is low in
// practice: steals only happen when a Processor's own queues are empty.
type WorkerDeque struct {
	mu    sync.Mutex
	tasks []Task
}

// NewWorkerDeque returns an empty deque.
func NewWorkerDeque() *WorkerDeque {
	return &WorkerDeque{}
}

// Push adds a task at the owner's end.
func (d *WorkerDeque) Push(t Task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

// Pop removes and returns the owner's next task (LIFO), or false if empty.
// Only the Machine currently running the owning Processor may call this.
func (d *WorkerDeque) Pop() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.tasks)
	if n == 0 {
		return nil, false
	}
	t := d.tasks[n-1]
	d.tasks[n-1] = nil
	d.tasks = d.tasks[:n-1]
	return t, true
}

// Steal removes and returns the oldest task (FIFO), for use by any peer
// Machine. Safe to call concurrently with the owner's Push/Pop.
func (d *WorkerDeque) Steal() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil, false
	}
	t := d.tasks[0]
	d.tasks[0] = nil
	d.tasks = d.tasks[1:]
	return t, true
}

// Len reports the current queue depth, for metrics/diagnostics only.
func (d *WorkerDeque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
