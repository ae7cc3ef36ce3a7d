package slices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctional(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, Map([]int{1, 2, 3}, strconv.Itoa))

	even := func(x int) (string, bool) { return strconv.Itoa(x), x%2 == 0 }
	assert.Equal(t, []string{"2", "4"}, FilterMap([]int{1, 2, 3, 4}, even))
	assert.Nil(t, FilterMap([]int{1, 3}, even))
}
