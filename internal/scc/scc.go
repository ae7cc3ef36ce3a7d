// Package scc finds the strongly connected components of the copy-edge graph
// of a constraint system so that each cycle can be collapsed onto a single
// representative variable.
package scc

import "slices"

// Graph is a directed graph over uint32 node ids, given as an adjacency map.
// Nodes that only occur as edge targets need not be keys of Succ.
type Graph struct {
	Succ map[uint32][]uint32
}

// Nodes returns every node mentioned by the graph in increasing order.
func (g Graph) Nodes() []uint32 {
	seen := make(map[uint32]struct{}, len(g.Succ))
	for n, succs := range g.Succ {
		seen[n] = struct{}{}
		for _, s := range succs {
			seen[s] = struct{}{}
		}
	}

	nodes := make([]uint32, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return nodes
}

// Decomposition is the result of Tarjan's algorithm. Components are listed in
// reverse topological order: edges only lead from a component to components
// at the same or a lower index.
type Decomposition struct {
	Components [][]uint32
	comp       map[uint32]int
	// Rep maps every node of a component with more than one member to the
	// smallest node id of that component.
	Rep map[uint32]uint32
}

// ComponentOf returns the index of the component containing node, or -1.
func (d Decomposition) ComponentOf(node uint32) int {
	if c, found := d.comp[node]; found {
		return c
	}
	return -1
}

// Representative resolves node through the collapse mapping.
func (d Decomposition) Representative(node uint32) uint32 {
	if r, found := d.Rep[node]; found {
		return r
	}
	return node
}

// NonTrivial counts the components with more than one member.
func (d Decomposition) NonTrivial() int {
	n := 0
	for _, c := range d.Components {
		if len(c) > 1 {
			n++
		}
	}
	return n
}

// Tarjan computes the strongly connected components of g. The traversal visits
// roots and successors in increasing id order so the result is deterministic.
func Tarjan(g Graph) Decomposition {
	// Source:
	// https://github.com/kth-competitive-programming/kactl/blob/main/content/graph/SCC.h
	nodes := g.Nodes()

	succ := make(map[uint32][]uint32, len(g.Succ))
	for n, ss := range g.Succ {
		ss = slices.Clone(ss)
		slices.Sort(ss)
		succ[n] = slices.Compact(ss)
	}

	val := make(map[uint32]int, len(nodes))
	comp := make(map[uint32]int, len(nodes))
	time := 0
	var z []uint32
	var components [][]uint32

	var rec func(uint32) int
	rec = func(node uint32) int {
		time++
		low := time
		val[node] = low
		stackH := len(z)
		z = append(z, node)

		for _, e := range succ[node] {
			if _, hasComp := comp[e]; hasComp {
				continue
			}

			eLow, visited := val[e]
			if !visited {
				eLow = rec(e)
			}
			if eLow < low {
				low = eLow
			}
		}

		if low == val[node] {
			cont := slices.Clone(z[stackH:])
			z = z[:stackH]
			for _, x := range cont {
				comp[x] = len(components)
			}
			slices.Sort(cont)
			components = append(components, cont)
		}

		val[node] = low
		return low
	}

	for _, node := range nodes {
		if _, hasComp := comp[node]; !hasComp {
			rec(node)
		}
	}

	rep := make(map[uint32]uint32)
	for _, c := range components {
		if len(c) > 1 {
			for _, x := range c[1:] {
				rep[x] = c[0]
			}
		}
	}

	return Decomposition{
		Components: components,
		comp:       comp,
		Rep:        rep,
	}
}
