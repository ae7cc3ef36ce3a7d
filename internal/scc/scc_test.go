package scc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarjanCycle(t *testing.T) {
	// 1 -> 2 -> 3 -> 1, 3 -> 4
	d := Tarjan(Graph{Succ: map[uint32][]uint32{
		1: {2},
		2: {3},
		3: {1, 4},
	}})

	require.Len(t, d.Components, 2)
	assert.Equal(t, []uint32{4}, d.Components[0], "sink component comes first")
	assert.Equal(t, []uint32{1, 2, 3}, d.Components[1])
	assert.Equal(t, 1, d.NonTrivial())

	for _, v := range []uint32{1, 2, 3} {
		assert.Equal(t, uint32(1), d.Representative(v))
	}
	assert.Equal(t, uint32(4), d.Representative(4))
	_, mapped := d.Rep[4]
	assert.False(t, mapped, "singleton components are not part of the mapping")

	assert.Equal(t, d.ComponentOf(1), d.ComponentOf(3))
	assert.Equal(t, -1, d.ComponentOf(99))
}

func TestTarjanDAG(t *testing.T) {
	d := Tarjan(Graph{Succ: map[uint32][]uint32{
		1: {2, 3},
		2: {4},
		3: {4},
	}})

	assert.Len(t, d.Components, 4)
	assert.Empty(t, d.Rep)

	// Reverse topological order: every edge goes to a lower component index.
	g := map[uint32][]uint32{1: {2, 3}, 2: {4}, 3: {4}}
	for from, tos := range g {
		for _, to := range tos {
			assert.Greater(t, d.ComponentOf(from), d.ComponentOf(to))
		}
	}
}

func TestTarjanSelfLoopAndNestedCycles(t *testing.T) {
	d := Tarjan(Graph{Succ: map[uint32][]uint32{
		5:  {5},
		10: {11},
		11: {12, 10},
		12: {13},
		13: {11},
	}})

	assert.Equal(t, uint32(5), d.Representative(5))
	for _, v := range []uint32{11, 12, 13} {
		assert.Equal(t, uint32(10), d.Representative(v))
	}
	assert.Equal(t, 1, d.NonTrivial())
}

func TestNodes(t *testing.T) {
	g := Graph{Succ: map[uint32][]uint32{7: {3}, 1: {7, 9}}}
	assert.Equal(t, []uint32{1, 3, 7, 9}, g.Nodes())
}
