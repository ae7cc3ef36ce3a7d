package ssagen_test

import (
	"go/token"
	"testing"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/maps"
	"github.com/BarrensZeppelin/andersen/pkgutil"
	"github.com/BarrensZeppelin/andersen/ssagen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func build(t *testing.T, src string) (*ssa.Package, *ssagen.Result) {
	t.Helper()
	pkgs, err := pkgutil.LoadPackagesFromSource(src)
	require.NoError(t, err)

	prog, spkgs := ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions|ssa.InstantiateGenerics)
	prog.Build()

	res, err := ssagen.Analyze(ssagen.Config{
		Program: prog,
		Solver:  andersen.DefaultConfig(),
	})
	require.NoError(t, err)
	return spkgs[0], res
}

// instrs returns the instructions of fun of type T in order.
func instrs[T ssa.Instruction](fun *ssa.Function) []T {
	var res []T
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			if x, ok := insn.(T); ok {
				res = append(res, x)
			}
		}
	}
	return res
}

func loads(fun *ssa.Function) []*ssa.UnOp {
	var res []*ssa.UnOp
	for _, op := range instrs[*ssa.UnOp](fun) {
		if op.Op == token.MUL && ssagen.PointerLike(op.Type()) {
			res = append(res, op)
		}
	}
	return res
}

func sites(vs ...ssa.Value) map[ssa.Value]struct{} {
	return maps.FromKeys(vs)
}

func TestAnalyze(t *testing.T) {
	t.Run("Example", func(t *testing.T) {
		pkg, res := build(t, `
			package main

			func ubool() bool

			func main() {
				x := new(*int)
				*x = new(int)
				if ubool() {
					*x = new(int)
				}
				y := *x
				*y = 10
				println(y)
			}`)

		main := pkg.Func("main")
		allocs := instrs[*ssa.Alloc](main)
		require.Len(t, allocs, 3)

		ld := loads(main)
		require.Len(t, ld, 1)

		assert.Equal(t, []ssa.Value{allocs[0]}, res.Pointer(allocs[0]).PointsTo())
		assert.Equal(t, sites(allocs[1], allocs[2]), sites(res.Pointer(ld[0]).PointsTo()...))
		assert.True(t, res.Reachable[main])
	})

	t.Run("SpuriousPointsTo", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			func ubool() bool
			func main() {
				x := new(*int)
				y := new(*int)
				z := *x
				if ubool() { z = *y }
				println(z)
			}`)

		allocs := instrs[*ssa.Alloc](pkg.Func("main"))
		require.Len(t, allocs, 2)

		x, y := res.Pointer(allocs[0]), res.Pointer(allocs[1])
		assert.Len(t, x.PointsTo(), 1, "x should only point to one allocation site")
		assert.Len(t, y.PointsTo(), 1, "y should only point to one allocation site")
		assert.False(t, x.MayAlias(y), "x and y should not alias")
	})

	t.Run("InclusionPrecision", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			func ubool() bool
			func main() {
				a := new(int)
				b := new(int)
				p := a
				if ubool() { p = b }
				println(a, b, p)
			}`)

		main := pkg.Func("main")
		allocs := instrs[*ssa.Alloc](main)
		require.Len(t, allocs, 2)
		phis := instrs[*ssa.Phi](main)
		require.Len(t, phis, 1)

		a, b, p := res.Pointer(allocs[0]), res.Pointer(allocs[1]), res.Pointer(phis[0])
		assert.False(t, a.MayAlias(b))
		assert.True(t, p.MayAlias(a))
		assert.True(t, p.MayAlias(b))
		assert.Len(t, p.PointsTo(), 2)
	})

	t.Run("FieldsAndCalls", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			type T struct { f, g *int }
			func id(x *int) *int { return x }
			func main() {
				t := &T{}
				t.f = new(int)
				t.g = new(int)
				x := id(t.f)
				y := t.g
				println(x, y)
			}`)

		main, id := pkg.Func("main"), pkg.Func("id")

		var call *ssa.Call
		for _, c := range instrs[*ssa.Call](main) {
			if c.Common().StaticCallee() == id {
				call = c
			}
		}
		require.NotNil(t, call)

		var y *ssa.UnOp
		for _, ld := range loads(main) {
			if fa, ok := ld.X.(*ssa.FieldAddr); ok && fa.Field == 1 {
				y = ld
			}
		}
		require.NotNil(t, y)

		x := res.Pointer(call)
		assert.Len(t, x.PointsTo(), 1)
		assert.Len(t, res.Pointer(y).PointsTo(), 1)
		assert.False(t, x.MayAlias(res.Pointer(y)), "fields f and g hold distinct objects")
		assert.True(t, x.MayAlias(res.Pointer(id.Params[0])))

		assert.True(t, res.Reachable[id])
		require.Contains(t, res.CallGraph.Nodes, main)
		var callees []*ssa.Function
		for _, e := range res.CallGraph.Nodes[main].Out {
			callees = append(callees, e.Callee.Func)
		}
		assert.Contains(t, callees, id)

		var roots []*ssa.Function
		for _, e := range res.CallGraph.Root.Out {
			roots = append(roots, e.Callee.Func)
		}
		assert.Contains(t, roots, main)
	})

	t.Run("EscapedField", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			type T struct { f, g *int }
			func set(p **int) { *p = new(int) }
			func main() {
				t := new(T)
				set(&t.f)
				println(t.f, t.g)
			}`)

		main, set := pkg.Func("main"), pkg.Func("set")
		allocs := instrs[*ssa.Alloc](set)
		require.Len(t, allocs, 1)

		var f, g *ssa.UnOp
		for _, ld := range loads(main) {
			if fa, ok := ld.X.(*ssa.FieldAddr); ok {
				switch fa.Field {
				case 0:
					f = ld
				case 1:
					g = ld
				}
			}
		}
		require.NotNil(t, f)
		require.NotNil(t, g)

		assert.Equal(t, []ssa.Value{allocs[0]}, res.Pointer(f).PointsTo(),
			"the store in set must reach t.f")
		assert.Empty(t, res.Pointer(g).PointsTo())
	})

	t.Run("MapsAndChannels", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			func main() {
				m := make(map[string]*int)
				m["a"] = new(int)
				x := m["b"]
				ch := make(chan *int, 1)
				ch <- new(int)
				y := <-ch
				println(x, y)
			}`)

		main := pkg.Func("main")
		allocs := instrs[*ssa.Alloc](main)
		require.Len(t, allocs, 2)
		lookups := instrs[*ssa.Lookup](main)
		require.Len(t, lookups, 1)

		var recv *ssa.UnOp
		for _, op := range instrs[*ssa.UnOp](main) {
			if op.Op == token.ARROW {
				recv = op
			}
		}
		require.NotNil(t, recv)

		x, y := res.Pointer(lookups[0]), res.Pointer(recv)
		assert.Equal(t, []ssa.Value{allocs[0]}, x.PointsTo())
		assert.Equal(t, []ssa.Value{allocs[1]}, y.PointsTo())
		assert.False(t, x.MayAlias(y))
	})

	t.Run("Slices", func(t *testing.T) {
		pkg, res := build(t, `
			package main
			func main() {
				var s []*int
				s = append(s, new(int))
				t := make([]*int, 1)
				copy(t, s)
				println(t[0])
			}`)

		main := pkg.Func("main")
		var allocs []*ssa.Alloc
		for _, a := range instrs[*ssa.Alloc](main) {
			// Skip the backing array of the variadic arguments.
			if a.Type().String() == "*int" {
				allocs = append(allocs, a)
			}
		}
		require.Len(t, allocs, 1)

		ld := loads(main)
		require.NotEmpty(t, ld)
		elem := ld[len(ld)-1]
		assert.Equal(t, []ssa.Value{allocs[0]}, res.Pointer(elem).PointsTo())
	})
}

func TestFieldPaths(t *testing.T) {
	_, res := build(t, `
		package main
		type T struct { a int; b [2]*int }
		func main() {
			t := new(T)
			t.b[1] = new(int)
			println(t.b[0])
		}`)

	var paths []string
	for f := andersen.Field(0); res.FieldPath(f) != ""; f++ {
		paths = append(paths, res.FieldPath(f))
	}
	assert.Equal(t, []string{".1[*]"}, paths)
	assert.Equal(t, "", res.FieldPath(andersen.NoField))
}

func TestPointerPanicsOnNonPointer(t *testing.T) {
	pkg, res := build(t, `
		package main
		func main() {
			x := 1
			for i := 0; i < 3; i++ { x += i }
			println(x)
		}`)

	phis := instrs[*ssa.Phi](pkg.Func("main"))
	require.NotEmpty(t, phis)
	assert.Panics(t, func() { res.Pointer(phis[0]) })
}
