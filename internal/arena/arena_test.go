package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	val  int
	next *node
}

func TestArena_AllocateStable(t *testing.T) {
	a := New[node]()
	ptrs := make([]*node, 0, 200000)
	for i := 0; i < 200000; i++ {
		p := a.Allocate()
		p.val = i
		ptrs = append(ptrs, p)
	}
	// Pointers must remain valid and distinguishable after many chunk
	// rollovers -- growing the arena must never move earlier allocations.
	for i, p := range ptrs {
		require.Equal(t, i, p.val)
	}
	require.Equal(t, 200000, a.Len())
}

func TestArena_Reset(t *testing.T) {
	a := New[node]()
	for i := 0; i < 10; i++ {
		a.Allocate()
	}
	require.Equal(t, 10, a.Len())
	a.Reset()
	require.Equal(t, 0, a.Len())
	p := a.Allocate()
	require.Equal(t, 0, p.val)
	require.Equal(t, 1, a.Len())
}
