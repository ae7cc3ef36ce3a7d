package wave

import (
	"testing"

	"github.com/BarrensZeppelin/andersen/internal/scc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIsTopological(t *testing.T) {
	g := scc.Graph{Succ: map[uint32][]uint32{
		9: {3, 4},
		3: {1},
		4: {1},
		1: {7},
	}}
	s := New(g)

	require.Len(t, s.Order(), 5)
	for from, tos := range g.Succ {
		for _, to := range tos {
			assert.Less(t, s.Wave(from), s.Wave(to), "%d -> %d", from, to)
		}
	}
	assert.Equal(t, []uint32{9, 3, 4, 1, 7}, s.Order())
	assert.Equal(t, 5, s.Wave(100), "unknown nodes rank last")
}

func TestPopsLowestWaveFirst(t *testing.T) {
	s := New(scc.Graph{Succ: map[uint32][]uint32{
		10: {20},
		20: {30},
	}})

	s.Push(30)
	s.Push(99)
	s.Push(10)
	s.Push(20)
	s.Push(10)
	assert.Equal(t, 4, s.Len())

	var popped []uint32
	for !s.Empty() {
		popped = append(popped, s.Pop())
	}
	assert.Equal(t, []uint32{10, 20, 30, 99}, popped)
}

func TestResidualCycleIsStillRanked(t *testing.T) {
	s := New(scc.Graph{Succ: map[uint32][]uint32{
		1: {2},
		2: {1},
		0: {1},
	}})

	assert.Equal(t, []uint32{0, 1, 2}, s.Order())
}
