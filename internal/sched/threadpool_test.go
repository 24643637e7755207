package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

func TestThreadPoolRunsJobs(t *testing.T) {
	obs := NewObservability()
	p := NewThreadPool(time.Minute, clockz.NewFakeClock(), obs)

	done := make(chan struct{})
	p.Go(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	require.Equal(t, float64(1), obs.Metrics.Counter(MetricThreadPoolSpawn).Value())
}

func TestThreadPoolReusesIdleWorker(t *testing.T) {
	obs := NewObservability()
	clock := clockz.NewFakeClock()
	p := NewThreadPool(time.Minute, clock, obs)

	first := make(chan struct{})
	p.Go(func() { close(first) })
	<-first

	// give the worker a moment to re-enter its select loop before the
	// second job arrives, so the try-send path (not a fresh spawn) fires.
	time.Sleep(20 * time.Millisecond)

	second := make(chan struct{})
	p.Go(func() { close(second) })
	<-second

	require.Equal(t, float64(1), obs.Metrics.Counter(MetricThreadPoolSpawn).Value())
}

func TestThreadPoolReclaimsAtMostOnePerIdleWindow(t *testing.T) {
	obs := NewObservability()
	clock := clockz.NewFakeClock()
	idleWindow := 50 * time.Millisecond
	p := NewThreadPool(idleWindow, clock, obs)

	const workers = 5
	var started sync.WaitGroup
	started.Add(workers)
	for i := 0; i < workers; i++ {
		done := make(chan struct{})
		p.Go(func() { close(done) })
		<-done
		started.Done()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)

	clock.Advance(idleWindow + time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	exited := obs.Metrics.Counter(MetricThreadPoolExit).Value()
	require.LessOrEqual(t, exited, float64(1))
}
