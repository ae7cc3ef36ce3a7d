package andersen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintStore(t *testing.T) {
	var cs ConstraintStore
	require.NoError(t, cs.Add(NewAlloc(1, 10)))
	require.NoError(t, cs.Add(NewCopy(2, 1)))
	require.NoError(t, cs.Add(NewFieldLoad(3, 2, 4)))
	require.NoError(t, cs.Add(NewStore(3, 1)))
	require.NoError(t, cs.Add(NewAlloc(4, 11)))

	assert.Equal(t, 5, cs.Len())
	assert.Equal(t, []Alloc{NewAlloc(1, 10), NewAlloc(4, 11)}, cs.Allocs())
	assert.Equal(t, []Copy{NewCopy(2, 1)}, cs.Copies())
	assert.Equal(t, []Load{NewFieldLoad(3, 2, 4)}, cs.Loads())
	assert.Equal(t, NoField, cs.Stores()[0].Field)

	var strs []string
	cs.ForEach(func(c Constraint) { strs = append(strs, c.String()) })
	assert.Equal(t, []string{
		"v1 ⊇ {l10}",
		"v4 ⊇ {l11}",
		"v2 ⊇ v1",
		"v3 ⊇ v2.f4",
		"v3.* ⊇ v1",
	}, strs)
}

func TestConstraintStoreRejects(t *testing.T) {
	var cs ConstraintStore

	err := cs.Add(NewFieldLoad(1, 2, MaxField+1))
	assert.ErrorIs(t, err, ErrFieldOutOfRange)

	err = cs.Add(NewFieldStore(1, MaxField+1, 2))
	assert.ErrorIs(t, err, ErrFieldOutOfRange)

	err = cs.Add(nil)
	assert.ErrorIs(t, err, ErrUnknownConstraint)

	assert.NoError(t, cs.Add(NewFieldStore(1, MaxField, 2)))
	assert.Equal(t, 1, cs.Len())
}

func TestSolverAddStopsAtInvalidConstraint(t *testing.T) {
	s := NewSolver(DefaultConfig())
	err := s.AddAll(NewAlloc(1, 1), NewFieldLoad(2, 1, MaxField+1), NewAlloc(3, 2))
	assert.ErrorIs(t, err, ErrFieldOutOfRange)
	assert.Equal(t, 1, s.Constraints().Len())
}

func TestCellPacking(t *testing.T) {
	for _, tc := range []struct {
		base LocationID
		f    Field
		str  string
	}{
		{0, NoField, "*l0"},
		{7, NoField, "*l7"},
		{7, 0, "l7.f0"},
		{^LocationID(0), MaxField, "l4294967295.f1048575"},
	} {
		c := FieldCell(tc.base, tc.f)
		assert.Equal(t, tc.base, c.Base())
		assert.Equal(t, tc.f, c.Field())
		assert.Equal(t, tc.str, c.String())
	}

	assert.NotEqual(t, FieldCell(1, 0), FieldCell(1, NoField))
	assert.NotEqual(t, FieldCell(1, 0), FieldCell(0, 1))
}

func TestLocationFactory(t *testing.T) {
	lf := NewLocationFactory()
	assert.Equal(t, LocationID(0), lf.Fresh("a").ID)

	lf.Reserve(10, "b")
	assert.Equal(t, "b", lf.Reserve(10, "ignored").Tag)

	l := lf.Fresh("c")
	assert.Equal(t, AbstractLocation{Tag: "c", ID: 11}, l)
	assert.Equal(t, "l11(c)", l.String())

	lf.Reserve(5, "d")
	assert.Equal(t, LocationID(12), lf.Fresh("e").ID)

	got, found := lf.Lookup(5)
	assert.True(t, found)
	assert.Equal(t, "d", got.Tag)
	_, found = lf.Lookup(6)
	assert.False(t, found)
	assert.Equal(t, 5, lf.Len())
}

func TestLocationFactoryWrapsAround(t *testing.T) {
	lf := NewLocationFactory()
	lf.Reserve(0, "a")
	lf.Reserve(1, "b")
	lf.Reserve(^LocationID(0), "max")

	l := lf.Fresh("c")
	assert.Equal(t, AbstractLocation{Tag: "c", ID: 2}, l)
	assert.Equal(t, LocationID(3), lf.Fresh("d").ID)

	got, _ := lf.Lookup(0)
	assert.Equal(t, "a", got.Tag, "existing locations keep their tag")
	assert.Equal(t, 5, lf.Len())
}
