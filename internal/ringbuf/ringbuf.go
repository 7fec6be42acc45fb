// Package ringbuf provides a fixed-capacity ring that overwrites its oldest
// entry when full. It is safe for concurrent producers and readers.
package ringbuf

import "sync"

// Ring holds the most recent Cap() values pushed into it.
// Capacity is a power of two for bitwise modulo.
type Ring[T any] struct {
	mu   sync.RWMutex
	buf  []T
	mask uint64
	head uint64 // total pushes

	overwritten uint64
}

// New creates a ring. capacity is rounded up to the next power of two.
// Minimum capacity is 2.
func New[T any](capacity int) *Ring[T] {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Push appends v, evicting the oldest value when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	if r.head >= uint64(len(r.buf)) {
		r.overwritten++
	}
	r.buf[r.head&r.mask] = v
	r.head++
	r.mu.Unlock()
}

// Recent returns up to limit values, newest first. limit <= 0 returns all.
func (r *Ring[T]) Recent(limit int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.lenLocked()
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head-1-uint64(i))&r.mask]
	}
	return out
}

// Len returns the number of values held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lenLocked()
}

func (r *Ring[T]) lenLocked() int {
	if r.head < uint64(len(r.buf)) {
		return int(r.head)
	}
	return len(r.buf)
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Overwritten returns how many values were evicted by newer pushes.
func (r *Ring[T]) Overwritten() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overwritten
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
