package buffer

import "errors"

// ErrEmptyBuffer is returned when fewer elements are resident than requested.
var ErrEmptyBuffer = errors.New("not enough frames in buffer")

// Ring holds the most recent Cap() values pushed into it.
// Once full, each push overwrites the oldest slot.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
}

// New creates a ring with the given capacity (at least 1).
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) (evicted T, didEvict bool) {
	if r.size < len(r.items) {
		r.items[(r.head+r.size)%len(r.items)] = v
		r.size++
		return evicted, false
	}

	evicted = r.items[r.head]
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	return evicted, true
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.items) }

// At returns the i-th resident element, 0 being the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("buffer: index out of range")
	}
	return r.items[(r.head+i)%len(r.items)]
}

// Items returns the resident elements from oldest to newest.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

// Last returns the most recently pushed element.
func (r *Ring[T]) Last() (T, error) {
	var zero T
	if r.size < 1 {
		return zero, ErrEmptyBuffer
	}
	return r.At(r.size - 1), nil
}

// SecondLast returns the element pushed before the last one.
func (r *Ring[T]) SecondLast() (T, error) {
	var zero T
	if r.size < 2 {
		return zero, ErrEmptyBuffer
	}
	return r.At(r.size - 2), nil
}
