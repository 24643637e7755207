package sched

import (
	"context"
	"sync/atomic"
)

// NoHint is the sentinel value of a TaskTag's schedule index hint meaning
// "no processor has ever run this task" — the Rust original uses
// usize::MAX for the same purpose.
const NoHint = ^uint64(0)

// Task is the scheduler's view of a unit of work: poll it once via Run,
// and look at Tag for the scheduling metadata the scheduler itself owns.
// Everything about *what* Run does (the future, the waker, the result)
// is outside the scheduler's concern — see the root package's Future/
// task[T] for the concrete implementation.
type Task interface {
	// Run polls the task once. It may take arbitrarily long: a cooperative
	// poll, CPU-bound work, or a blocking syscall. Completion is not
	// signalled through the return value — the task re-enters the
	// scheduler (if it has more work) via the schedule callback it was
	// given at construction time.
	//
	// ctx carries the identity of the Processor/Machine currently running
	// the task (see MarkBlocking in the root package), so a task may
	// request an immediate Machine hand-off without any goroutine-local
	// state.
	Run(ctx context.Context)
	// Tag returns the task's scheduling metadata.
	Tag() *TaskTag
}

// TaskTag is per-task metadata owned by the scheduler: a diagnostic id and
// the "last processor that ran this task" hint, consulted by System.Push
// to pick a target Processor and updated by a Processor just before it
// calls Task.Run.
type TaskTag struct {
	id                uint64
	scheduleIndexHint atomic.Uint64
}

var taskIDCounter atomic.Uint64

// NewTaskTag allocates a tag with no scheduling history.
func NewTaskTag() *TaskTag {
	t := &TaskTag{id: taskIDCounter.Add(1)}
	t.scheduleIndexHint.Store(NoHint)
	return t
}

// ID is a stable, opaque identifier, used only for diagnostics/tracing.
func (t *TaskTag) ID() uint64 { return t.id }

// Hint returns the index of the Processor that most recently ran this
// task, or NoHint if it has never run.
func (t *TaskTag) Hint() uint64 {
	return t.scheduleIndexHint.Load()
}

// SetHint records the Processor that is about to run this task. It
// load-checks before storing, avoiding an unconditional cache-line
// invalidation when the hint is already correct — ported from the Rust
// TaskTag::set_schedule_index_hint.
func (t *TaskTag) SetHint(index int) {
	v := uint64(index)
	if t.scheduleIndexHint.Load() != v {
		t.scheduleIndexHint.Store(v)
	}
}

// ClearHint resets the hint to NoHint, used by tests and by callers that
// want a task to fall back to round-robin placement.
func (t *TaskTag) ClearHint() {
	t.scheduleIndexHint.Store(NoHint)
}
