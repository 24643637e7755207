package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskTagHint(t *testing.T) {
	tag := NewTaskTag()
	require.Equal(t, NoHint, tag.Hint())

	tag.SetHint(3)
	require.Equal(t, uint64(3), tag.Hint())

	tag.SetHint(3) // load-check-then-store: no-op path, same observable value
	require.Equal(t, uint64(3), tag.Hint())

	tag.ClearHint()
	require.Equal(t, NoHint, tag.Hint())
}

func TestTaskTagIDsAreUniqueAndStable(t *testing.T) {
	a := NewTaskTag()
	b := NewTaskTag()
	require.NotEqual(t, a.ID(), b.ID())
	require.Equal(t, a.ID(), a.ID())
}
