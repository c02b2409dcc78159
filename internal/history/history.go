// Package history keeps the bounded undo stack of position snapshots.
package history

// Capacity is the default number of snapshots retained.
const Capacity = 16

// Stack is a LIFO of snapshots with a fixed capacity. Pushing onto a full
// stack evicts the oldest entry. Not safe for concurrent use.
type Stack[T any] struct {
	buf   []T
	head  int // index of the oldest entry
	count int
}

// New returns an empty stack. A non-positive capacity falls back to Capacity.
func New[T any](capacity int) *Stack[T] {
	if capacity <= 0 {
		capacity = Capacity
	}
	return &Stack[T]{buf: make([]T, capacity)}
}

// Push stores v as the most recent entry.
func (s *Stack[T]) Push(v T) {
	if s.count == len(s.buf) {
		var zero T
		s.buf[s.head] = zero
		s.head = (s.head + 1) % len(s.buf)
		s.count--
	}
	s.buf[(s.head+s.count)%len(s.buf)] = v
	s.count++
}

// Pop removes and returns the most recent entry.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.count == 0 {
		return zero, false
	}
	s.count--
	i := (s.head + s.count) % len(s.buf)
	v := s.buf[i]
	s.buf[i] = zero
	return v, true
}

// Peek returns the most recent entry without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if s.count == 0 {
		return zero, false
	}
	return s.buf[(s.head+s.count-1)%len(s.buf)], true
}

func (s *Stack[T]) Len() int { return s.count }

func (s *Stack[T]) Cap() int { return len(s.buf) }

func (s *Stack[T]) Clear() {
	clear(s.buf)
	s.head, s.count = 0, 0
}
