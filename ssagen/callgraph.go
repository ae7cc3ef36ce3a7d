package ssagen

import (
	"go/types"
	"strings"

	"github.com/BarrensZeppelin/andersen/internal/maps"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// callGraph builds the call graph of the reachable functions. Only static
// call edges are present. The entry functions are called from a synthetic
// root node.
func (g *generator) callGraph(entries []*ssa.Package) *callgraph.Graph {
	r := g.prog.NewFunction("<root>", new(types.Signature), "root of callgraph")
	cg := callgraph.New(r)

	for _, pkg := range entries {
		for _, name := range [...]string{"main", "init"} {
			if fun := pkg.Func(name); fun != nil {
				callgraph.AddEdge(cg.Root, nil, cg.CreateNode(fun))
			}
		}
	}

	funs := maps.SortedKeysFunc(g.visited, func(a, b *ssa.Function) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, fun := range funs {
		n := cg.CreateNode(fun)

		for _, block := range fun.Blocks {
			for _, insn := range block.Instrs {
				call, ok := insn.(ssa.CallInstruction)
				if !ok {
					continue
				}

				common := call.Common()
				if common.IsInvoke() {
					continue
				}
				if sc := common.StaticCallee(); sc != nil {
					callgraph.AddEdge(n, call, cg.CreateNode(sc))
				}
			}
		}
	}

	return cg
}
