package lelet

import "context"

// Future is the task primitive the scheduler core treats as opaque
// (spec.md §1/§3): a value, polled once per call, that either completes
// or arranges to be polled again. wake is provided fresh on every Poll
// call; a Future that returns false must eventually call it (now or from
// another goroutine) or it will never run again.
type Future[T any] interface {
	Poll(ctx context.Context, wake func()) (T, bool)
}

// FuncFuture adapts a plain function into a Future that completes on its
// first poll — the common case for CPU-bound or already-available work.
type FuncFuture[T any] func(ctx context.Context) T

// Poll runs f and returns its result as already complete.
func (f FuncFuture[T]) Poll(ctx context.Context, wake func()) (T, bool) {
	return f(ctx), true
}

// yieldsFuture is the supplemented "yields k times" future from
// original_source/lelet-utils's Yields: it reports Pending n times,
// re-arming its own waker immediately each time, before completing.
type yieldsFuture struct {
	remaining int
	polls     int
}

// Yields returns a Future[int] that is polled Pending exactly n times
// before completing with its total poll count (n+1) — spec.md §8
// scenario 7: "yields k=5 times then returns, increments poll count to
// 6".
func Yields(n int) Future[int] {
	return &yieldsFuture{remaining: n}
}

func (y *yieldsFuture) Poll(ctx context.Context, wake func()) (int, bool) {
	y.polls++
	if y.remaining <= 0 {
		return y.polls, true
	}
	y.remaining--
	wake()
	return y.polls, false
}
