// Package wave orders worklist processing by the topological rank ("wave") of
// nodes in an acyclic copy-edge graph, so that a node is usually final before
// its successors are visited.
package wave

import (
	"github.com/BarrensZeppelin/andersen/internal/queue"
	"github.com/BarrensZeppelin/andersen/internal/scc"
)

type item struct {
	node uint32
	wave int
}

// Scheduler is a priority worklist that pops the pending node with the lowest
// wave first. Ties are broken by node id.
type Scheduler struct {
	order []uint32
	wave  map[uint32]int
	work  *queue.Priority[item]
}

// New computes a topological order of g with Kahn's algorithm. g is expected
// to be acyclic; nodes on a residual cycle are ranked after every other node.
func New(g scc.Graph) *Scheduler {
	nodes := g.Nodes()

	indeg := make(map[uint32]int, len(nodes))
	for _, succs := range g.Succ {
		for _, s := range succs {
			indeg[s]++
		}
	}

	ready := queue.NewPriority(func(a, b uint32) bool { return a < b })
	for _, n := range nodes {
		if indeg[n] == 0 {
			ready.Push(n)
		}
	}

	s := &Scheduler{
		wave: make(map[uint32]int, len(nodes)),
		work: queue.NewPriority(func(a, b item) bool {
			if a.wave != b.wave {
				return a.wave < b.wave
			}
			return a.node < b.node
		}),
	}

	for !ready.Empty() {
		n := ready.Pop()
		s.wave[n] = len(s.order)
		s.order = append(s.order, n)

		for _, succ := range g.Succ[n] {
			indeg[succ]--
			if indeg[succ] == 0 {
				ready.Push(succ)
			}
		}
	}

	for _, n := range nodes {
		if _, ranked := s.wave[n]; !ranked {
			s.wave[n] = len(s.order)
			s.order = append(s.order, n)
		}
	}

	return s
}

// Order returns the nodes of the graph in topological order.
func (s *Scheduler) Order() []uint32 {
	return s.order
}

// Wave returns the topological rank of n. Nodes outside the graph rank after
// all of its nodes.
func (s *Scheduler) Wave(n uint32) int {
	if w, found := s.wave[n]; found {
		return w
	}
	return len(s.order)
}

// Push enqueues n at its wave unless it is already pending.
func (s *Scheduler) Push(n uint32) {
	s.work.Push(item{n, s.Wave(n)})
}

// Pop returns the pending node with the lowest wave.
func (s *Scheduler) Pop() uint32 {
	return s.work.Pop().node
}

func (s *Scheduler) Empty() bool { return s.work.Empty() }
func (s *Scheduler) Len() int    { return s.work.Len() }
