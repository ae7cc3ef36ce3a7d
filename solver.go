package andersen

// This file defines the inclusion-based (Andersen-style) solver. Solving
// proceeds in three phases:
//
//  1. Cycles of copy constraints are collapsed onto a representative
//     variable (optional).
//  2. Points-to sets are seeded from allocation constraints, and copy edges
//     and complex (load/store) constraints are attached to nodes.
//  3. Sets are propagated along copy edges until a fixpoint is reached.
//     Resolving a load or store against a newly discovered location installs
//     a copy edge to or from the heap cell of that location.

import (
	"time"

	"github.com/BarrensZeppelin/andersen/internal/queue"
	"github.com/BarrensZeppelin/andersen/internal/scc"
	"github.com/BarrensZeppelin/andersen/internal/wave"
	"github.com/BarrensZeppelin/andersen/sparse"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Solver accumulates constraints and solves them. A Solver is not safe for
// concurrent use.
type Solver struct {
	config Config
	store  ConstraintStore
	locs   *LocationFactory
}

func NewSolver(config Config) *Solver {
	return &Solver{
		config: config,
		locs:   NewLocationFactory(),
	}
}

// Add appends a constraint to the system.
func (s *Solver) Add(c Constraint) error {
	if err := s.store.Add(c); err != nil {
		return err
	}

	if a, ok := c.(Alloc); ok {
		s.locs.Reserve(a.Loc, allocTag)
	}
	return nil
}

// AddAll appends constraints in order and stops at the first invalid one.
func (s *Solver) AddAll(cs ...Constraint) error {
	for _, c := range cs {
		if err := s.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// NewLocation creates an abstract location with a fresh id.
func (s *Solver) NewLocation(tag string) LocationID {
	return s.locs.Fresh(tag).ID
}

func (s *Solver) Constraints() *ConstraintStore {
	return &s.store
}

type nodeID = uint32

// complexRef attaches a load or store to the node of its pointer operand.
// For loads other is the destination, for stores it is the source.
type complexRef struct {
	other nodeID
	field Field
}

// nodeKey records what a solver node stands for: a (representative)
// variable or a heap cell.
type nodeKey struct {
	isCell bool
	v      VarID
	c      Cell
}

type node struct {
	pts sparse.Set
	// The part of pts that has already been propagated.
	prev sparse.Set
	// Copy edges: pts(n) flows into pts(m) for every m in succ.
	succ   sparse.Set
	loads  []complexRef
	stores []complexRef
}

type worklist interface {
	Push(nodeID)
	Pop() nodeID
	Empty() bool
	Len() int
}

var (
	_ worklist = (*queue.Worklist[nodeID])(nil)
	_ worklist = (*wave.Scheduler)(nil)
)

type solveState struct {
	config Config
	log    logrus.FieldLogger

	rep   map[VarID]VarID
	nodes []*node
	keys  []nodeKey
	vars  map[VarID]nodeID
	cells map[Cell]nodeID

	work  worklist
	stats Stats
}

// Solve computes the points-to relation of the constraints added so far.
// Every call starts from scratch; the returned graph shares no state with the
// solver.
func (s *Solver) Solve() *PointsToGraph {
	st := &solveState{
		config: s.config,
		log:    s.config.logger(),
		rep:    make(map[VarID]VarID),
		vars:   make(map[VarID]nodeID),
		cells:  make(map[Cell]nodeID),
	}
	st.stats.Constraints = s.store.Len()
	st.stats.Ceiling = s.config.IterationCeiling(s.store.Len())

	start := time.Now()
	st.collapseCycles(&s.store)
	st.seed(&s.store, s.locs)
	st.attach(&s.store)
	st.propagate()

	st.log.WithFields(logrus.Fields{
		"constraints": st.stats.Constraints,
		"nodes":       len(st.nodes),
		"iterations":  st.stats.Iterations,
		"elapsed":     time.Since(start),
	}).Debug("Solved points-to constraints")

	return st.graph(&s.store, s.locs)
}

func (st *solveState) getRep(v VarID) VarID {
	if r, found := st.rep[v]; found {
		return r
	}
	return v
}

func (st *solveState) newNode(key nodeKey) nodeID {
	id := nodeID(len(st.nodes))
	st.nodes = append(st.nodes, &node{})
	st.keys = append(st.keys, key)
	return id
}

// varNode returns the node of v, which must already be a representative.
func (st *solveState) varNode(v VarID) nodeID {
	if id, found := st.vars[v]; found {
		return id
	}

	id := st.newNode(nodeKey{v: v})
	st.vars[v] = id
	return id
}

func (st *solveState) cellNode(base LocationID, f Field) nodeID {
	if !st.config.FieldSensitive {
		f = NoField
	}

	c := FieldCell(base, f)
	if id, found := st.cells[c]; found {
		return id
	}

	id := st.newNode(nodeKey{isCell: true, c: c})
	st.cells[c] = id
	return id
}

func (st *solveState) collapseCycles(store *ConstraintStore) {
	if !st.config.EnableSCC {
		return
	}

	start := time.Now()
	g := scc.Graph{Succ: make(map[uint32][]uint32)}
	for _, c := range store.Copies() {
		if c.LHS != c.RHS {
			g.Succ[uint32(c.RHS)] = append(g.Succ[uint32(c.RHS)], uint32(c.LHS))
		}
	}

	d := scc.Tarjan(g)
	for v, r := range d.Rep {
		st.rep[VarID(v)] = VarID(r)
	}

	st.stats.SCCs = d.NonTrivial()
	st.stats.Collapsed = len(d.Rep)
	st.log.WithFields(logrus.Fields{
		"sccs":      st.stats.SCCs,
		"collapsed": st.stats.Collapsed,
		"elapsed":   time.Since(start),
	}).Debug("Collapsed copy cycles")
}

// seedReps resolves the variable of every allocation constraint to its
// representative, fanning out over several goroutines for large inputs.
func (st *solveState) seedReps(allocs []Alloc) []VarID {
	reps := make([]VarID, len(allocs))
	if !st.config.EnableParallel || len(allocs) == 0 ||
		len(allocs) < st.config.ParallelThreshold {
		for i, a := range allocs {
			reps[i] = st.getRep(a.Var)
		}
		return reps
	}

	st.stats.ParallelSeeding = true
	workers := st.config.workers()
	chunk := (len(allocs) + workers - 1) / workers

	// Workers only read the representative map and write disjoint ranges of
	// reps.
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < len(allocs); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(allocs))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				reps[i] = st.getRep(allocs[i].Var)
			}
			return nil
		})
	}
	_ = g.Wait()

	return reps
}

func (st *solveState) seed(store *ConstraintStore, locs *LocationFactory) {
	allocs := store.Allocs()
	reps := st.seedReps(allocs)

	for i, a := range allocs {
		locs.Reserve(a.Loc, allocTag)
		id := st.varNode(reps[i])
		st.nodes[id].pts.Insert(uint32(a.Loc))
	}
}

func (st *solveState) attach(store *ConstraintStore) {
	for _, c := range store.Copies() {
		lhs, rhs := st.getRep(c.LHS), st.getRep(c.RHS)
		if lhs == rhs {
			continue
		}

		from, to := st.varNode(rhs), st.varNode(lhs)
		st.nodes[from].succ.Insert(to)
	}

	for _, c := range store.Loads() {
		ptr, dst := st.varNode(st.getRep(c.RHS)), st.varNode(st.getRep(c.LHS))
		n := st.nodes[ptr]
		n.loads = append(n.loads, complexRef{dst, c.Field})
	}

	for _, c := range store.Stores() {
		ptr, src := st.varNode(st.getRep(c.LHS)), st.varNode(st.getRep(c.RHS))
		n := st.nodes[ptr]
		n.stores = append(n.stores, complexRef{src, c.Field})
	}

	if st.config.waveEnabled() {
		g := scc.Graph{Succ: make(map[uint32][]uint32)}
		for id, n := range st.nodes {
			if !n.succ.IsEmpty() {
				g.Succ[nodeID(id)] = n.succ.Elems()
			}
		}
		st.work = wave.New(g)
	} else {
		st.work = queue.NewWorklist[nodeID]()
	}

	for id, n := range st.nodes {
		if !n.pts.IsEmpty() {
			st.work.Push(nodeID(id))
		}
	}
}

func (st *solveState) propagate() {
	start := time.Now()
	ceiling := st.stats.Ceiling

	for !st.work.Empty() {
		if st.stats.Iterations >= ceiling {
			st.stats.Truncated = true
			st.log.WithFields(logrus.Fields{
				"iterations": st.stats.Iterations,
				"ceiling":    ceiling,
				"pending":    st.work.Len(),
			}).Warn("Points-to solver reached its iteration ceiling; results are partial")
			break
		}

		st.stats.Iterations++
		st.process(st.work.Pop())
	}

	st.log.WithFields(logrus.Fields{
		"iterations": st.stats.Iterations,
		"wave":       st.config.waveEnabled(),
		"elapsed":    time.Since(start),
	}).Debug("Propagation finished")
}

// process propagates the part of pts(id) that has not been propagated yet.
func (st *solveState) process(id nodeID) {
	n := st.nodes[id]

	delta := n.pts.Clone()
	delta.DifferenceWith(&n.prev)
	if delta.IsEmpty() {
		return
	}
	n.prev.UnionWith(delta)

	if len(n.loads) > 0 || len(n.stores) > 0 {
		delta.ForEach(func(o uint32) {
			for _, ld := range n.loads {
				st.addEdge(st.cellNode(LocationID(o), ld.field), ld.other)
			}
			for _, sr := range n.stores {
				st.addEdge(sr.other, st.cellNode(LocationID(o), sr.field))
			}
		})
	}

	for _, succ := range n.succ.Elems() {
		if st.nodes[succ].pts.UnionWith(delta) {
			st.work.Push(succ)
		}
	}
}

// addEdge installs the copy edge from -> to. A new edge carries the whole of
// pts(from) immediately; later growth of from travels along it as deltas.
func (st *solveState) addEdge(from, to nodeID) {
	if from == to || !st.nodes[from].succ.Insert(to) {
		return
	}

	if st.nodes[to].pts.UnionWith(&st.nodes[from].pts) {
		st.work.Push(to)
	}
}
