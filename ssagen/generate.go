// Package ssagen produces points-to constraints from programs in SSA form and
// solves them with the inclusion-based solver.
//
// Only statically resolved calls are followed. Fields of structs are
// distinguished by access path (".0", ".1[*]", ...), while the elements of
// arrays, slices, maps and channels are summarized by a single path each.
// When the address of a field or element is passed on instead of being
// dereferenced on the spot, that field is merged with the plain contents of
// the enclosing object.
package ssagen

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/queue"
	"github.com/BarrensZeppelin/andersen/internal/slices"
	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Access paths of summarized contents.
const (
	elemPath  = "[*]"
	keyPath   = "{k}"
	valuePath = "{v}"
	chanPath  = "<-"
)

type Config struct {
	Program *ssa.Program

	// Functions named main and init in these packages are the roots of the
	// analysis. When empty, the main packages of the program are used.
	EntryPackages []*ssa.Package

	Solver andersen.Config
}

// slotKey identifies a component of a tuple-typed value, or a result of a
// function when ret is set.
type slotKey struct {
	v   ssa.Value
	i   int
	ret bool
}

type generator struct {
	prog   *ssa.Program
	solver *andersen.Solver
	log    logrus.FieldLogger
	err    error

	queue   queue.Queue[*ssa.Function]
	visited map[*ssa.Function]bool

	next  andersen.VarID
	vars  map[ssa.Value]andersen.VarID
	slots map[slotKey]andersen.VarID

	objects map[ssa.Value]andersen.LocationID
	sites   map[andersen.LocationID]ssa.Value

	fields map[string]andersen.Field
	paths  []string

	// Constraint variable for the global panic argument
	panicVar andersen.VarID

	dynamicCalls int
}

func (g *generator) fresh() andersen.VarID {
	id := g.next
	g.next++
	return id
}

func (g *generator) add(c andersen.Constraint) {
	if err := g.solver.Add(c); err != nil && g.err == nil {
		g.err = err
	}
}

func (g *generator) variable(v ssa.Value) andersen.VarID {
	if id, found := g.vars[v]; found {
		return id
	}
	id := g.fresh()
	g.vars[v] = id
	return id
}

func (g *generator) slot(key slotKey) andersen.VarID {
	if id, found := g.slots[key]; found {
		return id
	}
	id := g.fresh()
	g.slots[key] = id
	return id
}

// component returns the variable of the i'th component of the tuple v, if it
// is pointer-like.
func (g *generator) component(v ssa.Value, i int) (andersen.VarID, bool) {
	if !PointerLike(componentType(v, i)) {
		return 0, false
	}
	return g.slot(slotKey{v: v, i: i}), true
}

// result returns the variable of the i'th result of fun, if it is
// pointer-like.
func (g *generator) result(fun *ssa.Function, i int) (andersen.VarID, bool) {
	if !PointerLike(fun.Signature.Results().At(i).Type()) {
		return 0, false
	}
	return g.slot(slotKey{v: fun, i: i, ret: true}), true
}

// location returns the abstract object allocated by site.
func (g *generator) location(site ssa.Value) andersen.LocationID {
	if id, found := g.objects[site]; found {
		return id
	}
	id := g.solver.NewLocation(PPValue(site))
	g.objects[site] = id
	g.sites[id] = site
	return id
}

func (g *generator) field(path string) andersen.Field {
	if path == "" {
		return andersen.NoField
	}
	if f, found := g.fields[path]; found {
		return f
	}
	f := andersen.Field(len(g.paths))
	g.fields[path] = f
	g.paths = append(g.paths, path)
	return f
}

// eval returns the constraint variable holding v. The second result is false
// for values that cannot hold pointers, such as constants and non
// pointer-like values.
func (g *generator) eval(v ssa.Value) (andersen.VarID, bool) {
	if !PointerLike(v.Type()) {
		return 0, false
	}

	switch v := v.(type) {
	case *ssa.Const, *ssa.Builtin:
		return 0, false

	case *ssa.Global, *ssa.Function:
		if id, found := g.vars[v]; found {
			return id, true
		}
		id := g.variable(v)
		g.add(andersen.NewAlloc(id, g.location(v)))
		return id, true

	default:
		return g.variable(v), true
	}
}

// value returns the variable that receives the result of v, or the first
// component of the result when commaOk is set.
func (g *generator) value(v ssa.Value, commaOk bool) (andersen.VarID, bool) {
	if commaOk {
		return g.component(v, 0)
	}
	return g.eval(v)
}

func (g *generator) copy(dst andersen.VarID, src ssa.Value) {
	if rhs, ok := g.eval(src); ok {
		g.add(andersen.NewCopy(dst, rhs))
	}
}

func (g *generator) alloc(v ssa.Value) {
	if reg, ok := g.eval(v); ok {
		g.add(andersen.NewAlloc(reg, g.location(v)))
	}
}

// address resolves a chain of field and element address computations to the
// pointer at its root and the access path relative to that pointer.
func address(v ssa.Value) (ssa.Value, string) {
	var path string
	for {
		switch a := v.(type) {
		case *ssa.FieldAddr:
			path = fmt.Sprintf(".%d", a.Field) + path
			v = a.X
		case *ssa.IndexAddr:
			path = elemPath + path
			v = a.X
		default:
			return v, path
		}
	}
}

// escapes reports whether the interior pointer v is used other than as the
// address of a load or store, or as the base of a further address
// computation.
func escapes(v ssa.Value) bool {
	refs := v.Referrers()
	if refs == nil {
		return false
	}

	for _, r := range *refs {
		switch r := r.(type) {
		case *ssa.UnOp:
			if r.Op != token.MUL {
				return true
			}
		case *ssa.Store:
			if r.Val == v {
				return true
			}
		case *ssa.FieldAddr, *ssa.IndexAddr, *ssa.DebugRef:
		default:
			return true
		}
	}
	return false
}

// mergeCells makes the contents at path of the objects base points to flow
// both ways with their plain contents, where accesses through an escaped
// interior pointer end up.
func (g *generator) mergeCells(base ssa.Value, path string) {
	ptr, ok := g.eval(base)
	if !ok {
		return
	}

	f := g.field(path)
	in, out := g.fresh(), g.fresh()
	g.add(andersen.NewFieldLoad(in, ptr, f))
	g.add(andersen.NewStore(ptr, in))
	g.add(andersen.NewLoad(out, ptr))
	g.add(andersen.NewFieldStore(ptr, f, out))
}

// load emits dst = *(addr+path).
func (g *generator) load(dst andersen.VarID, addr ssa.Value, path string) {
	base, prefix := address(addr)
	if ptr, ok := g.eval(base); ok {
		g.add(andersen.NewFieldLoad(dst, ptr, g.field(prefix+path)))
	}
}

// store emits *(addr+path) = val.
func (g *generator) store(addr ssa.Value, path string, val ssa.Value) {
	src, ok := g.eval(val)
	if !ok {
		return
	}

	base, prefix := address(addr)
	if ptr, ok := g.eval(base); ok {
		g.add(andersen.NewFieldStore(ptr, g.field(prefix+path), src))
	}
}

func (g *generator) discoverFun(fun *ssa.Function) {
	if g.visited[fun] {
		return
	}
	g.visited[fun] = true

	if fun.TypeParams().Len() > len(fun.TypeArgs()) {
		g.log.WithField("function", fun.String()).
			Warn("Skipping uninstantiated generic function (build with ssa.InstantiateGenerics)")
		return
	}
	g.queue.Push(fun)
}

// Analyze generates constraints for the functions reachable from the entry
// packages and solves them.
func Analyze(config Config) (*Result, error) {
	prog := config.Program

	log := config.Solver.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	g := &generator{
		prog:    prog,
		solver:  andersen.NewSolver(config.Solver),
		log:     log,
		visited: make(map[*ssa.Function]bool),
		vars:    make(map[ssa.Value]andersen.VarID),
		slots:   make(map[slotKey]andersen.VarID),
		objects: make(map[ssa.Value]andersen.LocationID),
		sites:   make(map[andersen.LocationID]ssa.Value),
		fields:  make(map[string]andersen.Field),
	}
	g.panicVar = g.fresh()

	entries := config.EntryPackages
	if len(entries) == 0 {
		entries = ssautil.MainPackages(prog.AllPackages())
	}
	for _, pkg := range entries {
		for _, name := range [...]string{"main", "init"} {
			if fun := pkg.Func(name); fun != nil {
				g.discoverFun(fun)
			}
		}
	}

	for !g.queue.Empty() {
		g.processFunc(g.queue.Pop())
	}
	if g.err != nil {
		return nil, fmt.Errorf("generating constraints: %w", g.err)
	}

	g.log.WithFields(logrus.Fields{
		"functions":     len(g.visited),
		"constraints":   g.solver.Constraints().Len(),
		"dynamic_calls": g.dynamicCalls,
	}).Debug("Generated constraints")

	return &Result{
		Graph:     g.solver.Solve(),
		CallGraph: g.callGraph(entries),
		Reachable: g.visited,

		vars:  g.vars,
		sites: g.sites,
		paths: g.paths,
	}, nil
}

func (g *generator) handleBuiltin(call ssa.CallInstruction) {
	common := call.Common()
	v := call.Value()

	switch common.Value.Name() {
	case "append":
		// The result may be a new backing array holding the elements of both
		// arguments.
		reg, ok := g.eval(v)
		if !ok {
			return
		}
		g.add(andersen.NewAlloc(reg, g.location(v)))
		g.copy(reg, common.Args[0])
		for _, arg := range common.Args {
			if PointerLike(elemType(arg.Type())) {
				tmp := g.fresh()
				g.load(tmp, arg, elemPath)
				g.add(andersen.NewFieldStore(reg, g.field(elemPath), tmp))
			}
		}

	case "copy":
		dst, src := common.Args[0], common.Args[1]
		if PointerLike(elemType(src.Type())) {
			tmp := g.fresh()
			g.load(tmp, src, elemPath)
			if ptr, ok := g.eval(dst); ok {
				g.add(andersen.NewFieldStore(ptr, g.field(elemPath), tmp))
			}
		}

	case "recover":
		if reg, ok := g.eval(v); ok {
			g.add(andersen.NewCopy(reg, g.panicVar))
		}

	case "ssa:wrapnilchk":
		if reg, ok := g.eval(v); ok {
			g.copy(reg, common.Args[0])
		}
	}
}

// elemType returns the element type of slices and the invalid type for
// anything else, e.g. the string operand of append([]byte, string...).
func elemType(t types.Type) types.Type {
	if s, ok := t.Underlying().(*types.Slice); ok {
		return s.Elem()
	}
	return types.Typ[types.Invalid]
}

func (g *generator) handleCall(call ssa.CallInstruction) {
	common := call.Common()
	if _, isBuiltin := common.Value.(*ssa.Builtin); isBuiltin {
		g.handleBuiltin(call)
		return
	}

	callee := common.StaticCallee()
	if common.IsInvoke() || callee == nil {
		g.dynamicCalls++
		return
	}
	g.discoverFun(callee)

	for i, param := range callee.Params {
		if i >= len(common.Args) {
			break
		}
		if p, ok := g.eval(param); ok {
			g.copy(p, common.Args[i])
		}
	}

	v := call.Value()
	if v == nil {
		// go and defer statements
		return
	}

	switch results := callee.Signature.Results(); results.Len() {
	case 0:
	case 1:
		if reg, ok := g.eval(v); ok {
			if ret, ok := g.result(callee, 0); ok {
				g.add(andersen.NewCopy(reg, ret))
			}
		}
	default:
		for i := 0; i < results.Len(); i++ {
			if c, ok := g.component(v, i); ok {
				ret, _ := g.result(callee, i)
				g.add(andersen.NewCopy(c, ret))
			}
		}
	}
}

func (g *generator) processFunc(fun *ssa.Function) {
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			switch t := insn.(type) {
			case ssa.CallInstruction:
				g.handleCall(t)

			case *ssa.Store:
				g.store(t.Addr, "", t.Val)

			case *ssa.Send:
				g.store(t.Chan, chanPath, t.X)

			case *ssa.MapUpdate:
				g.store(t.Map, keyPath, t.Key)
				g.store(t.Map, valuePath, t.Value)

			case *ssa.Panic:
				g.copy(g.panicVar, t.X)

			case *ssa.Return:
				for i, r := range t.Results {
					if ret, ok := g.result(fun, i); ok {
						g.copy(ret, r)
					}
				}

			case ssa.Value:
				g.processValue(t)
			}
		}
	}
}

func (g *generator) processValue(v ssa.Value) {
	switch t := v.(type) {
	case *ssa.Alloc, *ssa.MakeSlice, *ssa.MakeMap, *ssa.MakeChan:
		g.alloc(t)

	case *ssa.MakeClosure:
		g.alloc(t)
		fn := t.Fn.(*ssa.Function)
		for i, b := range t.Bindings {
			if fv, ok := g.eval(fn.FreeVars[i]); ok {
				g.copy(fv, b)
			}
		}

	case *ssa.MakeInterface:
		// The boxed value lives in a fresh object.
		g.alloc(t)
		g.store(t, "", t.X)

	case *ssa.FieldAddr, *ssa.IndexAddr:
		// Interior pointers that are not dereferenced directly are
		// approximated by the pointer to the enclosing object.
		if reg, ok := g.eval(t); ok {
			base, path := address(t)
			g.copy(reg, base)
			if escapes(t) {
				g.mergeCells(base, path)
			}
		}

	case *ssa.UnOp:
		switch t.Op {
		case token.MUL:
			if reg, ok := g.eval(t); ok {
				g.load(reg, t.X, "")
			}
		case token.ARROW:
			if reg, ok := g.value(t, t.CommaOk); ok {
				g.load(reg, t.X, chanPath)
			}
		}

	case *ssa.Field:
		// Field of a struct loaded from memory.
		if ld, ok := t.X.(*ssa.UnOp); ok && ld.Op == token.MUL {
			if reg, ok := g.eval(t); ok {
				g.load(reg, ld.X, fmt.Sprintf(".%d", t.Field))
			}
		}

	case *ssa.Phi:
		if reg, ok := g.eval(t); ok {
			for _, rhs := range slices.FilterMap(t.Edges, g.eval) {
				g.add(andersen.NewCopy(reg, rhs))
			}
		}

	case *ssa.ChangeType, *ssa.ChangeInterface, *ssa.Slice,
		*ssa.SliceToArrayPointer, *ssa.MultiConvert, *ssa.Convert:
		reg, ok := g.eval(t)
		if !ok {
			return
		}

		x := *t.(ssa.Instruction).Operands(nil)[0]
		if _, isPtr := g.eval(x); isPtr {
			g.copy(reg, x)
		} else {
			// Conversions from unsafe.Pointer or strings produce new objects.
			g.add(andersen.NewAlloc(reg, g.location(t)))
		}

	case *ssa.TypeAssert:
		reg, ok := g.value(t, t.CommaOk)
		if !ok {
			return
		}
		if _, isItf := t.AssertedType.Underlying().(*types.Interface); isItf {
			g.copy(reg, t.X)
		} else {
			g.load(reg, t.X, "")
		}

	case *ssa.Extract:
		if reg, ok := g.eval(t); ok {
			if c, ok := g.component(t.Tuple, t.Index); ok {
				g.add(andersen.NewCopy(reg, c))
			}
		}

	case *ssa.Lookup:
		if _, isMap := t.X.Type().Underlying().(*types.Map); !isMap {
			return
		}
		if reg, ok := g.value(t, t.CommaOk); ok {
			g.load(reg, t.X, valuePath)
		}

	case *ssa.Next:
		if t.IsString {
			return
		}
		rng, ok := t.Iter.(*ssa.Range)
		if !ok {
			return
		}
		if k, ok := g.component(t, 1); ok {
			g.load(k, rng.X, keyPath)
		}
		if v, ok := g.component(t, 2); ok {
			g.load(v, rng.X, valuePath)
		}

	case *ssa.Select:
		recv := 0
		for _, st := range t.States {
			if st.Dir == types.RecvOnly {
				if c, ok := g.component(t, 2+recv); ok {
					g.load(c, st.Chan, chanPath)
				}
				recv++
			} else {
				g.store(st.Chan, chanPath, st.Send)
			}
		}
	}
}
