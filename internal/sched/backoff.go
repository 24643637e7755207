package sched

import "runtime"

// spinLimit/yieldLimit mirror crossbeam_utils::Backoff's staging: up to
// spinLimit, each snooze yields 2^step times through spin (every
// iteration is a runtime.Gosched(), not a busy-wait); past it, each
// snooze yields once; past yieldLimit the backoff declares itself
// "completed" so the caller knows to fall back to a real blocking wait.
const (
	spinLimit  = 6
	yieldLimit = 10
)

// backoff is the Processor's sleep-spinner: repeated calls to snooze get
// progressively less eager to retry, and isCompleted flips true once it's
// no longer worth spinning — at which point the caller should block on
// its wake channel instead. reset returns it to the initial state.
type backoff struct {
	step int
}

func newBackoff() *backoff {
	return &backoff{}
}

func (b *backoff) snooze() {
	if b.step <= spinLimit {
		spin(1 << uint(b.step))
	} else {
		runtime.Gosched()
	}
	if b.step < yieldLimit+1 {
		b.step++
	}
}

func (b *backoff) isCompleted() bool {
	return b.step > yieldLimit
}

func (b *backoff) reset() {
	b.step = 0
}

//go:noinline
func spin(n int) {
	for i := 0; i < n; i++ {
		runtime.Gosched()
	}
}
