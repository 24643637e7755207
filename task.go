package lelet

import (
	"context"
	"sync/atomic"

	"github.com/isgasho/lelet/internal/sched"
)

// task adapts a Future[T] to the scheduler core's sched.Task contract
// (spec.md §3/§6's "task contract"): Run polls once, Tag exposes the
// scheduling metadata the core owns. The schedule callback re-enqueues
// the task via System.Push whenever the Future's own wake fires.
//
// val/ready are how a completed result reaches every JoinHandle that ever
// asks for it: ready is closed exactly once, after val is written, so any
// number of Join calls — sequential or concurrent — observe the same
// value via the happens-before edge a channel close establishes, rather
// than racing to drain a single-delivery channel.
type task[T any] struct {
	fut     Future[T]
	tag     *sched.TaskTag
	sys     *sched.System
	done    atomic.Bool
	polling atomic.Bool
	val     T
	ready   chan struct{}
}

func newTask[T any](sys *sched.System, fut Future[T]) *task[T] {
	return &task[T]{
		fut:   fut,
		tag:   sched.NewTaskTag(),
		sys:   sys,
		ready: make(chan struct{}),
	}
}

// Run implements sched.Task. ctx carries the Processor/Machine identity
// installed by the core (see MarkBlocking), which the Future may ignore.
//
// polling guards against a task being polled twice concurrently: a Future
// like Yields calls wake() synchronously, before its own Poll call
// returns, which can re-enqueue t and have another Processor pick it up
// and call Run again while the first Poll call is still unwinding. If
// that race is caught here, t is simply pushed back onto the scheduler
// instead of polled — the original call releases the guard and the
// result is a deferred retry, not lost work or a concurrent Poll.
func (t *task[T]) Run(ctx context.Context) {
	if !t.polling.CompareAndSwap(false, true) {
		t.sys.Push(t)
		return
	}
	val, ok := t.fut.Poll(ctx, t.wake)
	t.polling.Store(false)
	if !ok {
		return
	}
	if t.done.CompareAndSwap(false, true) {
		t.val = val
		close(t.ready)
	}
}

// Tag implements sched.Task.
func (t *task[T]) Tag() *sched.TaskTag { return t.tag }

// wake re-submits the task to the scheduler. Passed to Future.Poll as the
// waker; a Future not yet done must call this (synchronously, for a
// purely cooperative future like Yields, or later from another goroutine
// for one genuinely waiting on an external event) or the task stalls
// forever — spec.md explicitly treats this as outside the core's concern.
func (t *task[T]) wake() {
	if t.done.Load() {
		return
	}
	t.sys.Push(t)
}
