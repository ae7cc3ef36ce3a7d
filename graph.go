package andersen

import (
	"slices"

	"github.com/BarrensZeppelin/andersen/sparse"
	"github.com/benbjohnson/immutable"
)

// Stats describes a solver run.
type Stats struct {
	Constraints int
	// Distinct variables mentioned by the constraints.
	Variables int
	Locations int
	// Copy cycles with more than one member, and the number of variables
	// that were merged into another variable's slot.
	SCCs      int
	Collapsed int

	Iterations int
	Ceiling    int
	// Truncated is set when the iteration ceiling stopped propagation. The
	// points-to sets are then an under-approximation.
	Truncated       bool
	ParallelSeeding bool
}

// PointsToGraph is the immutable result of a solver run. All methods are safe
// for concurrent use.
type PointsToGraph struct {
	fieldSensitive bool

	pts   *immutable.SortedMap[VarID, *sparse.Set]
	cells *immutable.SortedMap[Cell, *sparse.Set]
	locs  *immutable.SortedMap[LocationID, AbstractLocation]
	reps  *immutable.Map[VarID, VarID]
	vars  []VarID

	stats Stats
}

func (st *solveState) graph(store *ConstraintStore, lf *LocationFactory) *PointsToGraph {
	pts := immutable.NewSortedMapBuilder[VarID, *sparse.Set](idComparer[VarID]{})
	cells := immutable.NewSortedMapBuilder[Cell, *sparse.Set](idComparer[Cell]{})
	for id, n := range st.nodes {
		if n.pts.IsEmpty() {
			continue
		}

		// Consolidated sets are never written by read operations.
		n.pts.Consolidate()
		if key := st.keys[id]; key.isCell {
			cells.Set(key.c, &n.pts)
		} else {
			pts.Set(key.v, &n.pts)
		}
	}

	locs := immutable.NewSortedMapBuilder[LocationID, AbstractLocation](idComparer[LocationID]{})
	for id, l := range lf.locs {
		locs.Set(id, l)
	}

	reps := immutable.NewMapBuilder[VarID, VarID](idHasher[VarID]{})
	for v, r := range st.rep {
		reps.Set(v, r)
	}

	seen := make(map[VarID]struct{})
	store.ForEach(func(c Constraint) {
		switch c := c.(type) {
		case Alloc:
			seen[c.Var] = struct{}{}
		case Copy:
			seen[c.LHS], seen[c.RHS] = struct{}{}, struct{}{}
		case Load:
			seen[c.LHS], seen[c.RHS] = struct{}{}, struct{}{}
		case Store:
			seen[c.LHS], seen[c.RHS] = struct{}{}, struct{}{}
		}
	})
	vars := make([]VarID, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	slices.Sort(vars)

	stats := st.stats
	stats.Variables = len(vars)
	stats.Locations = len(lf.locs)

	return &PointsToGraph{
		fieldSensitive: st.config.FieldSensitive,
		pts:            pts.Map(),
		cells:          cells.Map(),
		locs:           locs.Map(),
		reps:           reps.Map(),
		vars:           vars,
		stats:          stats,
	}
}

// Rep returns the variable whose solver slot v was merged into. Variables
// outside copy cycles are their own representative.
func (g *PointsToGraph) Rep(v VarID) VarID {
	if r, found := g.reps.Get(v); found {
		return r
	}
	return v
}

func (g *PointsToGraph) set(v VarID) *sparse.Set {
	s, _ := g.pts.Get(g.Rep(v))
	return s
}

func toLocations(s *sparse.Set) []LocationID {
	if s == nil {
		return nil
	}

	res := make([]LocationID, 0, s.Len())
	s.ForEach(func(x uint32) {
		res = append(res, LocationID(x))
	})
	return res
}

// PointsTo returns the locations v may point to in increasing order. A
// variable that no constraint mentions points to nothing.
func (g *PointsToGraph) PointsTo(v VarID) []LocationID {
	return toLocations(g.set(v))
}

// PointsToSet returns a copy of the points-to set of v.
func (g *PointsToGraph) PointsToSet(v VarID) *sparse.Set {
	if s := g.set(v); s != nil {
		return s.Clone()
	}
	return &sparse.Set{}
}

func (g *PointsToGraph) PointsToSize(v VarID) int {
	if s := g.set(v); s != nil {
		return s.Len()
	}
	return 0
}

// MayAlias reports whether a and b may point to a common location.
func (g *PointsToGraph) MayAlias(a, b VarID) bool {
	sa, sb := g.set(a), g.set(b)
	if sa == nil || sb == nil {
		return false
	}
	return sa.Intersects(sb)
}

// MustAlias reports whether a and b point to the same non-empty set of
// locations.
func (g *PointsToGraph) MustAlias(a, b VarID) bool {
	sa, sb := g.set(a), g.set(b)
	if sa == nil || sb == nil {
		return false
	}
	return sa == sb || sa.Equals(sb)
}

// CellPointsTo returns the locations stored in field f of the object base.
func (g *PointsToGraph) CellPointsTo(base LocationID, f Field) []LocationID {
	if !g.fieldSensitive {
		f = NoField
	}
	s, _ := g.cells.Get(FieldCell(base, f))
	return toLocations(s)
}

func (g *PointsToGraph) Location(id LocationID) (AbstractLocation, bool) {
	return g.locs.Get(id)
}

// Locations returns the location table ordered by id.
func (g *PointsToGraph) Locations() []AbstractLocation {
	res := make([]AbstractLocation, 0, g.locs.Len())
	for it := g.locs.Iterator(); !it.Done(); {
		_, l, _ := it.Next()
		res = append(res, l)
	}
	return res
}

// Vars returns every variable mentioned by the solved constraints in
// increasing order.
func (g *PointsToGraph) Vars() []VarID {
	return slices.Clone(g.vars)
}

func (g *PointsToGraph) Stats() Stats {
	return g.stats
}

type idComparer[K ~uint32 | ~uint64] struct{}

func (idComparer[K]) Compare(a, b K) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type idHasher[K ~uint32] struct{}

func (idHasher[K]) Hash(key K) uint32 { return uint32(key) }
func (idHasher[K]) Equal(a, b K) bool { return a == b }

var (
	_ immutable.Comparer[Cell] = idComparer[Cell]{}
	_ immutable.Hasher[VarID]  = idHasher[VarID]{}
)
