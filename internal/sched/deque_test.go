package sched

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	id  int
	tag *TaskTag
}

func newFakeTask(id int) *fakeTask {
	return &fakeTask{id: id, tag: NewTaskTag()}
}

func (f *fakeTask) Run(ctx context.Context) {}
func (f *fakeTask) Tag() *TaskTag           { return f.tag }

func TestWorkerDequeOwnerIsLIFO(t *testing.T) {
	d := NewWorkerDeque()
	d.Push(newFakeTask(1))
	d.Push(newFakeTask(2))
	d.Push(newFakeTask(3))

	got, ok := d.Pop()
	require.True(t, ok)
	require.Equal(t, 3, got.(*fakeTask).id)

	got, ok = d.Pop()
	require.True(t, ok)
	require.Equal(t, 2, got.(*fakeTask).id)
}

func TestWorkerDequeStealIsFIFO(t *testing.T) {
	d := NewWorkerDeque()
	d.Push(newFakeTask(1))
	d.Push(newFakeTask(2))
	d.Push(newFakeTask(3))

	got, ok := d.Steal()
	require.True(t, ok)
	require.Equal(t, 1, got.(*fakeTask).id)
}

func TestWorkerDequeEmpty(t *testing.T) {
	d := NewWorkerDeque()
	_, ok := d.Pop()
	require.False(t, ok)
	_, ok = d.Steal()
	require.False(t, ok)
	require.Equal(t, 0, d.Len())
}

func TestWorkerDequeConcurrentStealsNeverDuplicate(t *testing.T) {
	d := NewWorkerDeque()
	const n = 200
	for i := 0; i < n; i++ {
		d.Push(newFakeTask(i))
	}

	seen := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				tsk, ok := d.Steal()
				if !ok {
					return
				}
				seen <- tsk.(*fakeTask).id
			}
		}()
	}
	wg.Wait()
	close(seen)

	ids := make(map[int]bool)
	for id := range seen {
		require.False(t, ids[id], "task %d stolen more than once", id)
		ids[id] = true
	}
	require.Len(t, ids, n)
}
