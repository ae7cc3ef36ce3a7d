package ssagen

import (
	"fmt"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/slices"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

type Result struct {
	Graph     *andersen.PointsToGraph
	CallGraph *callgraph.Graph
	Reachable map[*ssa.Function]bool

	vars  map[ssa.Value]andersen.VarID
	sites map[andersen.LocationID]ssa.Value
	paths []string
}

// Var returns the constraint variable of v. Values that were never reached,
// or that cannot hold pointers, have no variable.
func (r *Result) Var(v ssa.Value) (andersen.VarID, bool) {
	id, found := r.vars[v]
	return id, found
}

// Site returns the value that allocates the object l.
func (r *Result) Site(l andersen.LocationID) (ssa.Value, bool) {
	site, found := r.sites[l]
	return site, found
}

// FieldPath returns the access path that f was generated for.
func (r *Result) FieldPath(f andersen.Field) string {
	if f == andersen.NoField || int(f) >= len(r.paths) {
		return ""
	}
	return r.paths[f]
}

type Pointer struct {
	res   *Result
	v     andersen.VarID
	found bool
}

func (r *Result) Pointer(v ssa.Value) *Pointer {
	if !PointerLike(v.Type()) {
		panic(fmt.Errorf("the type of %v is not pointer-like", v))
	}

	id, found := r.vars[v]
	return &Pointer{r, id, found}
}

func (p *Pointer) MayAlias(o *Pointer) bool {
	return p.found && o.found && p.res.Graph.MayAlias(p.v, o.v)
}

// PointsTo returns the allocation sites of the objects p may point to,
// ordered by location.
func (p *Pointer) PointsTo() []ssa.Value {
	if !p.found {
		return nil
	}

	return slices.Map(p.res.Graph.PointsTo(p.v), func(l andersen.LocationID) ssa.Value {
		return p.res.sites[l]
	})
}
