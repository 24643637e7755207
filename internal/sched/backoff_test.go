package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackoffCompletesAfterYieldLimit(t *testing.T) {
	bo := newBackoff()
	require.False(t, bo.isCompleted())

	for i := 0; i <= yieldLimit; i++ {
		bo.snooze()
	}
	require.True(t, bo.isCompleted())

	bo.reset()
	require.False(t, bo.isCompleted())
}
