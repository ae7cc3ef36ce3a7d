// Package sparse provides a set of small non-negative integers tuned for the
// insertion pattern of points-to analysis: many small sets that grow one
// element at a time inside a worklist loop.
//
// A Set keeps a sorted, deduplicated main buffer and a short unsorted buffer of
// recent insertions. The pending buffer is merged into the main buffer
// ("consolidated") when it grows past a fixed threshold, or before any
// operation that needs the elements in order. Len, Contains and Intersects
// never require consolidation.
package sparse

import (
	"fmt"
	"slices"
	"strings"
)

// pendingLimit bounds the linear scan performed by Contains and Insert.
const pendingLimit = 32

type Set struct {
	sorted  []uint32
	pending []uint32
}

// Of returns a set containing the given elements.
func Of(xs ...uint32) *Set {
	s := &Set{}
	s.InsertBatch(xs)
	return s
}

func (s *Set) Len() int {
	return len(s.sorted) + len(s.pending)
}

func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Set) inSorted(x uint32) bool {
	_, found := slices.BinarySearch(s.sorted, x)
	return found
}

func (s *Set) inPending(x uint32) bool {
	for _, y := range s.pending {
		if x == y {
			return true
		}
	}
	return false
}

func (s *Set) Contains(x uint32) bool {
	return s.inSorted(x) || s.inPending(x)
}

// Insert adds x to the set and reports whether it was absent.
func (s *Set) Insert(x uint32) bool {
	if s.Contains(x) {
		return false
	}

	s.pending = append(s.pending, x)
	if len(s.pending) > pendingLimit {
		s.Consolidate()
	}
	return true
}

// InsertBatch adds all of xs and returns the number of elements that were
// absent. Duplicates within xs are tolerated.
func (s *Set) InsertBatch(xs []uint32) int {
	before := s.Len()
	s.pending = append(s.pending, xs...)
	s.Consolidate()
	return s.Len() - before
}

// Remove deletes x from the set and reports whether it was present.
func (s *Set) Remove(x uint32) bool {
	for i, y := range s.pending {
		if x == y {
			last := len(s.pending) - 1
			s.pending[i] = s.pending[last]
			s.pending = s.pending[:last]
			return true
		}
	}

	if i, found := slices.BinarySearch(s.sorted, x); found {
		s.sorted = slices.Delete(s.sorted, i, i+1)
		return true
	}
	return false
}

func (s *Set) Clear() {
	s.sorted = s.sorted[:0]
	s.pending = s.pending[:0]
}

// Consolidate merges the pending buffer into the sorted buffer. It performs no
// writes when nothing is pending, so a consolidated set may be read by many
// goroutines at once.
func (s *Set) Consolidate() {
	if len(s.pending) == 0 {
		return
	}

	slices.Sort(s.pending)
	s.pending = slices.Compact(s.pending)

	if len(s.sorted) == 0 {
		s.sorted, s.pending = s.pending, s.sorted[:0]
		return
	}

	merged := make([]uint32, 0, len(s.sorted)+len(s.pending))
	a, b := s.sorted, s.pending
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] < b[0]:
			merged = append(merged, a[0])
			a = a[1:]
		case a[0] > b[0]:
			merged = append(merged, b[0])
			b = b[1:]
		default:
			merged = append(merged, a[0])
			a, b = a[1:], b[1:]
		}
	}
	merged = append(merged, a...)
	merged = append(merged, b...)

	s.sorted = merged
	s.pending = s.pending[:0]
}

// UnionWith adds every element of o to s and reports whether s grew.
func (s *Set) UnionWith(o *Set) bool {
	if s == o || o.IsEmpty() {
		return false
	}

	s.Consolidate()
	o.Consolidate()

	if len(s.sorted) == 0 {
		s.sorted = append(s.sorted, o.sorted...)
		return true
	}

	merged := make([]uint32, 0, len(s.sorted)+len(o.sorted))
	a, b := s.sorted, o.sorted
	for len(a) > 0 && len(b) > 0 {
		switch {
		case a[0] < b[0]:
			merged = append(merged, a[0])
			a = a[1:]
		case a[0] > b[0]:
			merged = append(merged, b[0])
			b = b[1:]
		default:
			merged = append(merged, a[0])
			a, b = a[1:], b[1:]
		}
	}
	merged = append(merged, a...)
	merged = append(merged, b...)

	grew := len(merged) != len(s.sorted)
	s.sorted = merged
	return grew
}

// IntersectWith removes every element of s that is not in o and reports
// whether s shrank.
func (s *Set) IntersectWith(o *Set) bool {
	if s == o {
		return false
	}

	s.Consolidate()
	o.Consolidate()

	n := 0
	a, b := s.sorted, o.sorted
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			// n <= i, so the write never clobbers an unread element.
			a[n] = a[i]
			n++
			i++
			j++
		}
	}

	shrank := n != len(a)
	s.sorted = a[:n]
	return shrank
}

// DifferenceWith removes every element of o from s and reports whether s
// shrank.
func (s *Set) DifferenceWith(o *Set) bool {
	if s == o {
		shrank := !s.IsEmpty()
		s.Clear()
		return shrank
	}

	s.Consolidate()
	o.Consolidate()

	n := 0
	a, b := s.sorted, o.sorted
	j := 0
	for i := 0; i < len(a); i++ {
		for j < len(b) && b[j] < a[i] {
			j++
		}
		if j < len(b) && b[j] == a[i] {
			continue
		}
		a[n] = a[i]
		n++
	}

	shrank := n != len(a)
	s.sorted = a[:n]
	return shrank
}

// Intersects reports whether s and o share an element. Pending buffers are
// probed first, so neither operand is consolidated.
func (s *Set) Intersects(o *Set) bool {
	for _, x := range s.pending {
		if o.Contains(x) {
			return true
		}
	}
	for _, x := range o.pending {
		if s.inSorted(x) {
			return true
		}
	}

	a, b := s.sorted, o.sorted
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether every element of s is in o. It does not
// consolidate either operand.
func (s *Set) IsSubsetOf(o *Set) bool {
	if s.Len() > o.Len() {
		return false
	}

	for _, x := range s.pending {
		if !o.Contains(x) {
			return false
		}
	}

	b := o.sorted
	for _, x := range s.sorted {
		for len(b) > 0 && b[0] < x {
			b = b[1:]
		}
		if len(b) > 0 && b[0] == x {
			continue
		}
		if !o.inPending(x) {
			return false
		}
	}
	return true
}

func (s *Set) Equals(o *Set) bool {
	return s.Len() == o.Len() && s.IsSubsetOf(o)
}

// ForEach calls f on every element in increasing order. The set is
// consolidated first.
func (s *Set) ForEach(f func(x uint32)) {
	s.Consolidate()
	for _, x := range s.sorted {
		f(x)
	}
}

// AppendTo appends the elements of s in increasing order to dst.
func (s *Set) AppendTo(dst []uint32) []uint32 {
	s.Consolidate()
	return append(dst, s.sorted...)
}

func (s *Set) Elems() []uint32 {
	return s.AppendTo(make([]uint32, 0, s.Len()))
}

// Clone returns a consolidated copy of s.
func (s *Set) Clone() *Set {
	s.Consolidate()
	return &Set{sorted: slices.Clone(s.sorted)}
}

// Copy replaces the contents of s with those of o.
func (s *Set) Copy(o *Set) {
	if s == o {
		return
	}
	o.Consolidate()
	s.sorted = append(s.sorted[:0], o.sorted...)
	s.pending = s.pending[:0]
}

func (s *Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, x := range s.Elems() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, x)
	}
	b.WriteByte('}')
	return b.String()
}
