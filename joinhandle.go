package lelet

import (
	"context"
	"sync"
)

// JoinHandle is returned by Spawn. Its zero value is not usable; obtain
// one only from Spawn. spec.md §6: "resolves only on normal completion —
// there is no cancelled result", so Join's only failure mode is the
// caller's own ctx expiring while waiting, never the task itself.
type JoinHandle[T any] struct {
	t *task[T]
}

// Join blocks until the task completes or ctx is done, whichever comes
// first. Calling Join more than once — sequentially or concurrently, from
// one or many goroutines — is safe and every call observes the same
// result: the underlying task closes its ready channel exactly once,
// after recording its value, so every Join call after the first simply
// reads the already-closed channel and the already-written value instead
// of racing to drain a single-delivery channel.
func (h JoinHandle[T]) Join(ctx context.Context) (T, error) {
	select {
	case <-h.t.ready:
		return h.t.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// BlockOn polls f to completion on the calling goroutine, parking between
// polls instead of busy-looping — ported from original_source/lelet-
// utils's condvar-based block_on, for running a single Future without a
// full scheduler (e.g. from a test, or a program with no other work).
func BlockOn[T any](f Future[T]) T {
	var (
		mu    sync.Mutex
		cond  = sync.NewCond(&mu)
		woken bool
	)
	wake := func() {
		mu.Lock()
		woken = true
		mu.Unlock()
		cond.Signal()
	}

	ctx := context.Background()
	for {
		val, ok := f.Poll(ctx, wake)
		if ok {
			return val
		}
		mu.Lock()
		for !woken {
			cond.Wait()
		}
		woken = false
		mu.Unlock()
	}
}
