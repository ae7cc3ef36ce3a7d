package queue

import "errors"

// Queue is a FIFO queue. Popped slots are reclaimed once they make up half
// of the backing slice.
type Queue[E any] struct {
	elements []E
	head     int
}

func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

func (q *Queue[E]) Empty() bool {
	return q.Len() == 0
}

func (q *Queue[E]) Len() int {
	return len(q.elements) - q.head
}

var ErrEmpty = errors.New("Queue is empty")

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	var zero E
	e := q.elements[q.head]
	q.elements[q.head] = zero
	q.head++

	if q.head*2 >= len(q.elements) {
		n := copy(q.elements, q.elements[q.head:])
		clear(q.elements[n:])
		q.elements = q.elements[:n]
		q.head = 0
	}
	return e
}

// Worklist is a FIFO queue in which an element is present at most once.
type Worklist[E comparable] struct {
	q       Queue[E]
	present map[E]struct{}
}

func NewWorklist[E comparable]() *Worklist[E] {
	return &Worklist[E]{present: make(map[E]struct{})}
}

// Push enqueues e unless it is already waiting in the worklist.
func (w *Worklist[E]) Push(e E) {
	if _, found := w.present[e]; found {
		return
	}
	w.present[e] = struct{}{}
	w.q.Push(e)
}

func (w *Worklist[E]) Pop() E {
	e := w.q.Pop()
	delete(w.present, e)
	return e
}

func (w *Worklist[E]) Empty() bool { return w.q.Empty() }
func (w *Worklist[E]) Len() int    { return w.q.Len() }
