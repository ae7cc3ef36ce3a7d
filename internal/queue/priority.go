package queue

import "container/heap"

// lessFunc is a comparison function between two elements of type E.
type lessFunc[E any] func(E, E) bool

// _heap satisfies heap.Interface over a list of elements and a comparison
// function.
type _heap[E any] struct {
	list []E
	less lessFunc[E]
}

func (h _heap[E]) Len() int           { return len(h.list) }
func (h _heap[E]) Less(i, j int) bool { return h.less(h.list[i], h.list[j]) }
func (h _heap[E]) Swap(i, j int)      { h.list[i], h.list[j] = h.list[j], h.list[i] }

func (h *_heap[E]) Push(x any) {
	h.list = append(h.list, x.(E))
}

func (h *_heap[E]) Pop() any {
	old := h.list
	n := len(old)
	x := old[n-1]
	h.list = old[:n-1]
	return x
}

var _ heap.Interface = (*_heap[int])(nil)

// Priority is a priority queue that pops the least element first. An element
// is present at most once; pushing an element that is already waiting is a
// no-op.
type Priority[E comparable] struct {
	heap     _heap[E]
	elements map[E]struct{}
}

// NewPriority creates an empty priority queue ordered by less.
func NewPriority[E comparable](less func(E, E) bool) *Priority[E] {
	return &Priority[E]{
		heap:     _heap[E]{nil, less},
		elements: make(map[E]struct{}),
	}
}

func (p *Priority[E]) Empty() bool {
	return len(p.heap.list) == 0
}

func (p *Priority[E]) Len() int {
	return len(p.heap.list)
}

func (p *Priority[E]) Push(x E) {
	if _, found := p.elements[x]; found {
		return
	}

	p.elements[x] = struct{}{}
	heap.Push(&p.heap, x)
}

// Pop removes and returns the least element.
func (p *Priority[E]) Pop() E {
	if p.Empty() {
		panic(ErrEmpty)
	}

	x := heap.Pop(&p.heap).(E)
	delete(p.elements, x)
	return x
}
