package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInjectorPopBatchReturnsOneAndSpillsRest(t *testing.T) {
	inj := NewInjector()
	for i := 0; i < 5; i++ {
		inj.Push(newFakeTask(i))
	}

	dest := NewWorkerDeque()
	got, ok := inj.PopBatch(dest)
	require.True(t, ok)
	require.Equal(t, 0, got.(*fakeTask).id)
	require.Equal(t, 4, dest.Len())
	require.Equal(t, 0, inj.Len())
}

func TestInjectorBatchSizeCap(t *testing.T) {
	inj := NewInjector()
	for i := 0; i < injectorBatchSize+10; i++ {
		inj.Push(newFakeTask(i))
	}

	dest := NewWorkerDeque()
	_, ok := inj.PopBatch(dest)
	require.True(t, ok)
	require.Equal(t, injectorBatchSize-1, dest.Len())
	require.Equal(t, 10, inj.Len())
}

func TestInjectorEmpty(t *testing.T) {
	inj := NewInjector()
	_, ok := inj.PopBatch(NewWorkerDeque())
	require.False(t, ok)
}
