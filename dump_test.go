package andersen_test

import (
	"bytes"
	"testing"

	"github.com/BarrensZeppelin/andersen"
	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestDump(t *testing.T) {
	color.NoColor = true

	g := solve(t, andersen.DefaultConfig(),
		andersen.NewAlloc(1, 100),
		andersen.NewAlloc(2, 101),
		andersen.NewCopy(3, 1),
		andersen.NewCopy(4, 3),
		andersen.NewCopy(3, 4),
		andersen.NewFieldStore(1, 0, 2),
		andersen.NewFieldLoad(5, 3, 0),
		andersen.NewStore(5, 1))

	var out bytes.Buffer
	require.NoError(t, g.Dump(&out))
	goldie.New(t).Assert(t, t.Name(), out.Bytes())
}
