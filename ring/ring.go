// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides a bounded, lock-free FIFO queue for concurrent
// producer/consumer use.
//
// Payload cells live in one flat buffer of numElements+1 cells. Two ring
// buffers of cursors — public (filled cells) and recycle (free cells) —
// each guard a cyclic pair of cursors with the referenced-pointer
// micro-lock from [code.hybscloud.com/lockfree/internal/reflock], mirroring
// the public/recycle split of a free-list-backed array queue but replacing
// its FAA index protocol with micro-locked cursor CAS.
package ring

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree/internal/reflock"
)

// ErrWouldBlock is returned by Enqueue when the queue is full and by
// Dequeue when the queue is empty.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

type pad [64]byte

// cursorRing holds the two ends of one cyclic sequence of cell indices.
// firstIn/lastIn are monotonically increasing counters modulo period
// rather than raw wrapping indices, so "empty" (firstIn == lastIn) and
// "full" (lastIn - firstIn == capacity) never alias to the same state —
// see DESIGN.md for why a raw wraparound pointer cannot make that
// distinction once the slot count equals the live-cell ceiling.
type cursorRing struct {
	_       pad
	firstIn reflock.Ptr
	_       pad
	lastIn  reflock.Ptr
	_       pad
	slots   []uint64 // cell index owned by cursor position i mod period
	period  uint64   // numElements + 1
}

func newCursorRing(cells []uint64) *cursorRing {
	return &cursorRing{
		slots:  cells,
		period: uint64(len(cells)),
	}
}

// Ring is a bounded, lock-free FIFO queue of type T.
//
// A Ring must be created with [New]; the zero value is not usable. All
// methods are safe for concurrent use by any number of goroutines.
type Ring[T any] struct {
	cells   []T
	public  *cursorRing // filled cell indices
	recycle *cursorRing // free cell indices
	cap     int
}

// New creates a Ring able to hold up to numElements values.
//
// Panics if numElements <= 0.
func New[T any](numElements int) *Ring[T] {
	if numElements <= 0 {
		panic("ring: numElements must be > 0")
	}
	period := numElements + 1

	publicCells := make([]uint64, period)
	recycleCells := make([]uint64, period)
	for i := range recycleCells {
		recycleCells[i] = uint64(i)
	}

	r := &Ring[T]{
		cells:   make([]T, period),
		public:  newCursorRing(publicCells),
		recycle: newCursorRing(recycleCells),
		cap:     numElements,
	}
	// public starts empty: firstIn == lastIn, no cell claimed yet.
	r.public.firstIn.Reset(0)
	r.public.lastIn.Reset(0)
	// recycle starts holding cell indices 0..numElements-1; cell
	// numElements is never handed out.
	r.recycle.firstIn.Reset(0)
	r.recycle.lastIn.Reset(uint64(numElements))
	return r
}

// Cap returns the queue's capacity.
func (r *Ring[T]) Cap() int {
	return r.cap
}

// IsEmpty reports whether the public ring is empty. The result is a
// snapshot and may be stale under concurrent access.
func (r *Ring[T]) IsEmpty() bool {
	return r.public.firstIn.Data() == r.public.lastIn.Data()
}

// IsFull reports whether the recycle ring is exhausted. The result is a
// snapshot and may be stale under concurrent access.
func (r *Ring[T]) IsFull() bool {
	return r.recycle.firstIn.Data() == r.recycle.lastIn.Data()
}

// Enqueue places v at the back of the queue. It returns ErrWouldBlock if
// the queue is full.
func (r *Ring[T]) Enqueue(v T) error {
	cell, ok := r.removeLink(r.recycle)
	if !ok {
		return ErrWouldBlock
	}
	r.cells[cell] = v
	r.insertLink(cell, r.public)
	return nil
}

// Dequeue removes and returns the value at the front of the queue. It
// returns ErrWouldBlock if the queue is empty.
func (r *Ring[T]) Dequeue() (T, error) {
	cell, ok := r.removeLink(r.public)
	if !ok {
		var zero T
		return zero, ErrWouldBlock
	}
	v := r.cells[cell]
	var zero T
	r.cells[cell] = zero
	r.insertLink(cell, r.recycle)
	return v, nil
}

// insertLink appends cellIdx to ring's back cursor, advancing lastIn by
// one position modulo the ring's period.
func (r *Ring[T]) insertLink(cellIdx uint64, ring *cursorRing) {
	tag := reflock.NextTag()
	for {
		cur := ring.lastIn.Acquire(tag)
		pos := cur % ring.period
		ring.slots[pos] = cellIdx
		next := cur + 1
		if ring.lastIn.TryRelease(tag, cur, next) {
			return
		}
	}
}

// removeLink pops the cell index at ring's front cursor, advancing firstIn
// by one position modulo the ring's period. ok is false if the ring is
// empty relative to lastIn.
func (r *Ring[T]) removeLink(ring *cursorRing) (cellIdx uint64, ok bool) {
	tag := reflock.NextTag()
	for {
		cur := ring.firstIn.Acquire(tag)
		if cur == ring.lastIn.Data() {
			ring.firstIn.Release(tag, cur)
			return 0, false
		}
		pos := cur % ring.period
		result := ring.slots[pos]
		next := cur + 1
		if ring.firstIn.TryRelease(tag, cur, next) {
			return result, true
		}
	}
}
