package lelet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuncFutureCompletesImmediately(t *testing.T) {
	f := FuncFuture[int](func(ctx context.Context) int { return 7 })
	v, ok := f.Poll(context.Background(), func() {})
	require.True(t, ok)
	require.Equal(t, 7, v)
}

func TestYieldsPollCount(t *testing.T) {
	f := Yields(5)
	polls := 0
	var wake func()
	wake = func() {}

	for {
		polls++
		v, ok := f.Poll(context.Background(), wake)
		if ok {
			require.Equal(t, 6, v)
			break
		}
		require.LessOrEqual(t, polls, 6)
	}
	require.Equal(t, 6, polls)
}

func TestBlockOnDrivesYieldsToCompletion(t *testing.T) {
	v := BlockOn[int](Yields(3))
	require.Equal(t, 4, v)
}

func TestBlockOnFuncFuture(t *testing.T) {
	v := BlockOn[string](FuncFuture[string](func(ctx context.Context) string { return "done" }))
	require.Equal(t, "done", v)
}
