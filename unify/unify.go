// Package unify implements a unification-based (Steensgaard-style) points-to
// analysis over the same constraint language as the inclusion-based solver.
// It runs in almost linear time but merges everything that flows together,
// which makes it a useful baseline when judging the precision of the
// inclusion-based results.
package unify

import (
	"slices"

	"github.com/BarrensZeppelin/andersen"
	uf "github.com/spakin/disjoint"
)

// class is the data attached to the representative element of an
// equivalence class of abstract values.
type class struct {
	// The class of everything that values in this class point to.
	pointee *uf.Element
	// Abstract locations that belong to this class.
	locs []andersen.LocationID
}

type solver struct {
	vars map[andersen.VarID]*uf.Element
	locs map[andersen.LocationID]*uf.Element
}

func newElement() *uf.Element {
	el := uf.NewElement()
	el.Data = &class{}
	return el
}

func (s *solver) variable(v andersen.VarID) *uf.Element {
	if el, found := s.vars[v]; found {
		return el
	}
	el := newElement()
	s.vars[v] = el
	return el
}

func (s *solver) location(l andersen.LocationID) *uf.Element {
	if el, found := s.locs[l]; found {
		return el
	}
	el := uf.NewElement()
	el.Data = &class{locs: []andersen.LocationID{l}}
	s.locs[l] = el
	return el
}

// pointee returns the class that members of the class of el point to,
// creating it if necessary.
func (s *solver) pointee(el *uf.Element) *uf.Element {
	c := el.Find().Data.(*class)
	if c.pointee == nil {
		c.pointee = newElement()
	}
	return c.pointee
}

// unify merges the classes of a and b, and then (recursively) their pointees.
func (s *solver) unify(a, b *uf.Element) {
	a, b = a.Find(), b.Find()
	if a == b {
		return
	}

	ca, cb := a.Data.(*class), b.Data.(*class)
	uf.Union(a, b)

	merged := &class{locs: append(ca.locs, cb.locs...)}
	pa, pb := ca.pointee, cb.pointee
	if pa != nil {
		merged.pointee = pa
	} else {
		merged.pointee = pb
	}
	// The merged class must be in place before recursing, since the pointees
	// may lead back to it.
	a.Find().Data = merged

	if pa != nil && pb != nil {
		s.unify(pa, pb)
	}
}

func (s *solver) add(c andersen.Constraint) {
	switch c := c.(type) {
	case andersen.Alloc:
		s.unify(s.pointee(s.variable(c.Var)), s.location(c.Loc))
	case andersen.Copy:
		s.unify(s.pointee(s.variable(c.LHS)), s.pointee(s.variable(c.RHS)))
	case andersen.Load:
		s.unify(s.pointee(s.variable(c.LHS)), s.pointee(s.pointee(s.variable(c.RHS))))
	case andersen.Store:
		s.unify(s.pointee(s.pointee(s.variable(c.LHS))), s.pointee(s.variable(c.RHS)))
	}
}

// Result is the outcome of the unification analysis. Fields of objects are
// not distinguished. A Result is safe for concurrent use.
type Result struct {
	// Representative element of the pointee class of each variable.
	pts map[andersen.VarID]*uf.Element
	// Sorted locations of each pointee class.
	locs map[*uf.Element][]andersen.LocationID
}

// Solve unifies the constraints of store.
func Solve(store *andersen.ConstraintStore) *Result {
	s := &solver{
		vars: make(map[andersen.VarID]*uf.Element),
		locs: make(map[andersen.LocationID]*uf.Element),
	}
	store.ForEach(s.add)

	res := &Result{
		pts:  make(map[andersen.VarID]*uf.Element, len(s.vars)),
		locs: make(map[*uf.Element][]andersen.LocationID),
	}
	for v, el := range s.vars {
		p := el.Find().Data.(*class).pointee
		if p == nil {
			continue
		}

		p = p.Find()
		res.pts[v] = p
		if _, found := res.locs[p]; !found {
			locs := slices.Clone(p.Data.(*class).locs)
			slices.Sort(locs)
			res.locs[p] = locs
		}
	}
	return res
}

// MayAlias reports whether the pointees of a and b were unified.
func (r *Result) MayAlias(a, b andersen.VarID) bool {
	pa, foundA := r.pts[a]
	pb, foundB := r.pts[b]
	return foundA && foundB && pa == pb
}

// PointsTo returns the locations in the pointee class of v in increasing
// order.
func (r *Result) PointsTo(v andersen.VarID) []andersen.LocationID {
	if p, found := r.pts[v]; found {
		return slices.Clone(r.locs[p])
	}
	return nil
}

// Classes returns the number of distinct pointee classes.
func (r *Result) Classes() int {
	return len(r.locs)
}
