package lelet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestScenarios exercises spec.md §8's end-to-end scenarios against the
// package-level scheduler singleton, in one function, since SetNumCPUs
// only succeeds once per process (before the first Spawn) — every
// scenario below therefore runs under the single N=1 configuration set at
// the top, and the final subtest confirms reconfiguration is rejected
// once that first Spawn has happened.
func TestScenarios(t *testing.T) {
	require.NoError(t, SetNumCPUs(1))

	t.Run("simple spawn and await", func(t *testing.T) {
		h := Spawn[int](FuncFuture[int](func(ctx context.Context) int { return 42 }))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := h.Join(ctx)
		require.NoError(t, err)
		require.Equal(t, 42, v)
	})

	t.Run("mark_blocking isolates a blocked task despite N=1", func(t *testing.T) {
		a := Spawn[string](FuncFuture[string](func(ctx context.Context) string {
			MarkBlocking(ctx)
			time.Sleep(200 * time.Millisecond)
			return "a"
		}))
		b := Spawn[string](FuncFuture[string](func(ctx context.Context) string { return "ok" }))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		bv, err := b.Join(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", bv)
		require.Less(t, time.Since(start), 100*time.Millisecond)

		longCtx, longCancel := context.WithTimeout(context.Background(), time.Second)
		defer longCancel()
		av, err := a.Join(longCtx)
		require.NoError(t, err)
		require.Equal(t, "a", av)
	})

	t.Run("yields future", func(t *testing.T) {
		h := Spawn[int](Yields(5))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := h.Join(ctx)
		require.NoError(t, err)
		require.Equal(t, 6, v)
	})

	// This runs under the file-wide SetNumCPUs(1), so it only checks the
	// N-independent part of spec.md §8 scenario 2 (every index seen
	// exactly once, correct total) rather than actual cross-Processor
	// scheduling; see internal/sched/system_test.go's
	// TestScenarioParallelSum for the NumCPU>1 version of this scenario.
	t.Run("sum over many spawned tasks", func(t *testing.T) {
		const n = 1000
		handles := make([]JoinHandle[int], n)
		for i := 0; i < n; i++ {
			i := i
			handles[i] = Spawn[int](FuncFuture[int](func(ctx context.Context) int { return i }))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		seen := make(map[int]bool, n)
		total := 0
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := range handles {
			wg.Add(1)
			go func(h JoinHandle[int]) {
				defer wg.Done()
				v, err := h.Join(ctx)
				require.NoError(t, err)
				mu.Lock()
				seen[v] = true
				total += v
				mu.Unlock()
			}(handles[i])
		}
		wg.Wait()

		require.Len(t, seen, n)
		require.Equal(t, 499500, total)
	})

	t.Run("re-configuration after use fails", func(t *testing.T) {
		err := SetNumCPUs(8)
		require.ErrorIs(t, err, ErrAlreadyInitialized)
	})
}
