package andersen

import (
	"fmt"
	"io"
	"strings"

	"github.com/BarrensZeppelin/andersen/sparse"
	"github.com/fatih/color"
)

var (
	varColor  = color.New(color.FgHiGreen).SprintFunc()
	locColor  = color.New(color.FgHiCyan).SprintFunc()
	cellColor = color.New(color.FgHiYellow).SprintFunc()
	headColor = color.New(color.Bold).SprintFunc()
)

func formatSet(s *sparse.Set) string {
	strs := make([]string, 0, s.Len())
	s.ForEach(func(x uint32) {
		strs = append(strs, locColor(fmt.Sprintf("l%d", x)))
	})
	return "{" + strings.Join(strs, " ") + "}"
}

// Dump writes a human-readable rendering of the graph to w. The output is
// deterministic; colours are omitted when color.NoColor is set.
func (g *PointsToGraph) Dump(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintln(&b, headColor("points-to:"))
	for it := g.pts.Iterator(); !it.Done(); {
		v, s, _ := it.Next()
		fmt.Fprintf(&b, "  %s -> %s\n", varColor(fmt.Sprintf("v%d", v)), formatSet(s))
	}

	if g.reps.Len() > 0 {
		fmt.Fprintln(&b, headColor("collapsed:"))
		for _, v := range g.vars {
			if r := g.Rep(v); r != v {
				fmt.Fprintf(&b, "  %s = %s\n",
					varColor(fmt.Sprintf("v%d", v)), varColor(fmt.Sprintf("v%d", r)))
			}
		}
	}

	if g.cells.Len() > 0 {
		fmt.Fprintln(&b, headColor("heap:"))
		for it := g.cells.Iterator(); !it.Done(); {
			c, s, _ := it.Next()
			fmt.Fprintf(&b, "  %s -> %s\n", cellColor(c.String()), formatSet(s))
		}
	}

	fmt.Fprintln(&b, headColor("locations:"))
	for _, l := range g.Locations() {
		fmt.Fprintf(&b, "  %s %s\n", locColor(fmt.Sprintf("l%d", l.ID)), l.Tag)
	}

	st := g.stats
	fmt.Fprintf(&b, "%s constraints=%d vars=%d sccs=%d collapsed=%d truncated=%v\n",
		headColor("stats:"), st.Constraints, st.Variables, st.SCCs, st.Collapsed, st.Truncated)

	_, err := io.WriteString(w, b.String())
	return err
}
