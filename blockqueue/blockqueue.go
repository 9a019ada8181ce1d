// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package blockqueue provides an unbounded, lock-free FIFO queue built from
// a linked list of fixed-size blocks.
//
// Each slot carries a tag word that is transitioned by CAS independently
// of its payload; a reader/writer epoch counter gates block reclamation so
// that a block is only freed once no goroutine can still be reading its
// interior. Growth allocates a new block only when the current tail block
// is exhausted, so steady-state enqueue/dequeue never touches the
// allocator.
package blockqueue

import (
	"errors"
	"runtime"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// ErrEmptyQueue is returned by Dequeue when the queue has no value to
// return. Unlike the bounded containers' [iox.ErrWouldBlock], an empty
// unbounded queue is not transient backpressure — nothing will make it
// non-empty except a producer — so it is reported as a plain domain
// sentinel rather than routed through iox's would-block classification.
var ErrEmptyQueue = errors.New("blockqueue: empty queue")

// blockSize is the number of slots per block.
const blockSize = 4096

// tag is the discriminant of a slot's state machine. tagFree must be zero
// so a freshly zeroed block's slots start out Free without initialization.
type tag = uint32

const (
	tagFree tag = iota
	tagAllocating
	tagAllocated
	tagRemoving
	tagRemoved
	tagEndOfList
	tagExtending
	tagBlockPointer
	tagDestroying

	// tagStartOfList and tagSentinel guard a block's two ends when
	// debugSentinelsEnabled is true: slot 0 is reserved as tagStartOfList
	// and the last slot as tagSentinel, with tagEndOfList moving one slot
	// earlier to make room. Neither guard slot is ever walked by
	// Enqueue/TryDequeue in normal operation; their only purpose is to sit
	// at addresses a correct walk should never reach, so that a debug build
	// which does reach one has a distinct tag to report instead of silently
	// treating it as Free. They cost one slot at each end of a block and
	// are omitted from release builds to save that space.
	tagStartOfList
	tagSentinel
)

// slot is one cell of a block. tag lives in its own word so a 32-bit CAS
// never touches value. blk and idx let a slot locate its neighbors and its
// owning block in O(1) without unsafe pointer arithmetic. nextSlot is only
// meaningful while tag is tagBlockPointer (or being written just before
// that transition): it points at slot 0 of the successor block.
type slot[T any] struct {
	tag      atomix.Uint32
	value    T
	nextSlot *slot[T]
	blk      *block[T]
	idx      int32
}

// block is a fixed-capacity array of slots. The last usable slot is
// seeded to tagEndOfList; every other usable slot starts Free by virtue
// of being zeroed.
type block[T any] struct {
	slots [blockSize]slot[T]
}

func newBlock[T any]() *block[T] {
	b := new(block[T])
	for i := range b.slots {
		b.slots[i].blk = b
		b.slots[i].idx = int32(i)
	}
	if debugSentinelsEnabled {
		b.slots[0].tag.StoreRelaxed(tagStartOfList)
		b.slots[blockSize-1].tag.StoreRelaxed(tagSentinel)
	}
	b.slots[lastUsable()].tag.StoreRelaxed(tagEndOfList)
	return b
}

// firstUsable is the index of the first slot available for enqueue,
// skipping the debug start-of-list sentinel when compiled in.
func firstUsable() int32 {
	if debugSentinelsEnabled {
		return 1
	}
	return 0
}

// lastUsable is the index of the slot seeded to tagEndOfList, skipping the
// debug end-of-list sentinel when compiled in.
func lastUsable() int32 {
	if debugSentinelsEnabled {
		return blockSize - 2
	}
	return blockSize - 1
}

// next returns s's successor within the same block. It must never be
// called on a block's final slot (tagEndOfList/tagBlockPointer), which has
// no in-block successor.
func (s *slot[T]) next() *slot[T] {
	return &s.blk.slots[s.idx+1]
}

// Releaser is implemented by payload values that own a reference-counted
// resource. Dequeue transfers ownership of a Releaser-implementing value
// to its caller; Close calls Release for every value still resident in the
// queue when it is discarded, so each value is released exactly once.
type Releaser interface {
	Release()
}

type pad [64]byte

// Queue is an unbounded, lock-free FIFO queue of type T.
//
// The zero value is not usable; construct with [New]. All methods are
// safe for concurrent use by any number of goroutines.
//
// head and tail are held in [sync/atomic.Pointer] rather than an
// [code.hybscloud.com/atomix] word: atomix has no generic pointer atomic,
// and encoding a *slot[T] as a bare atomix.Uintptr would hide the pointer
// from the garbage collector, letting a still-referenced block be
// collected while a goroutine still holds its address. atomic.Pointer is
// the one place in this module the standard library is used in place of
// the ecosystem's atomics package; see DESIGN.md.
type Queue[T any] struct {
	_           pad
	head        atomic.Pointer[slot[T]]
	_           pad
	tail        atomic.Pointer[slot[T]]
	_           pad
	cachedBlock atomic.Pointer[block[T]]
	_           pad
	removeCount atomix.Int32
}

// New creates an empty Queue.
func New[T any]() *Queue[T] {
	b := newBlock[T]()
	q := &Queue[T]{}
	first := &b.slots[firstUsable()]
	q.head.Store(first)
	q.tail.Store(first)
	return q
}

// enterReader admits one more reader-section participant, spinning while a
// writer holds exclusivity.
func (q *Queue[T]) enterReader() {
	sw := spin.Wait{}
	for {
		v := q.removeCount.LoadAcquire()
		if v < 0 {
			runtime.Gosched()
			sw.Once()
			continue
		}
		if q.removeCount.CompareAndSwapAcqRel(v, v+1) {
			return
		}
		sw.Once()
	}
}

func (q *Queue[T]) leaveReader() {
	q.removeCount.AddAcqRel(-1)
}

// enterWriter claims exclusive access, spinning until no reader remains.
func (q *Queue[T]) enterWriter() {
	sw := spin.Wait{}
	for !q.removeCount.CompareAndSwapAcqRel(0, -1) {
		sw.Once()
	}
}

func (q *Queue[T]) leaveWriter() {
	q.removeCount.StoreRelease(0)
}

// Enqueue appends v to the back of the queue. It never fails except by
// panicking on allocation failure, which Go reports as an out-of-memory
// crash rather than a recoverable error — the same fatal treatment this
// container's design gives it.
func (q *Queue[T]) Enqueue(v T) {
	q.enterReader()
	sw := spin.Wait{}
	for {
		t := q.tail.Load()
		switch tag(t.tag.LoadAcquire()) {
		case tagFree:
			if t.tag.CompareAndSwapAcqRel(tagFree, tagAllocating) {
				q.enqueueInPlace(t, v)
				q.leaveReader()
				return
			}
			sw.Once()
		case tagEndOfList:
			if t.tag.CompareAndSwapAcqRel(tagEndOfList, tagExtending) {
				q.enqueueExtend(t, v)
				q.leaveReader()
				return
			}
			sw.Once()
		case tagExtending:
			runtime.Gosched()
		default:
			sw.Once()
		}
	}
}

// enqueueInPlace writes v into a slot this goroutine has already CASed to
// tagAllocating, then publishes it. Writing the value before the tag flips
// to tagAllocated is essential: a concurrent dequeuer must never observe
// tagAllocated with a not-yet-written value.
func (q *Queue[T]) enqueueInPlace(t *slot[T], v T) {
	q.tail.Store(t.next())
	t.value = v
	t.tag.StoreRelease(tagAllocated)
}

// enqueueExtend allocates (or reuses) a new block, seats v in its first
// slot, publishes tail into the new block, and links the old tail slot to
// it.
func (q *Queue[T]) enqueueExtend(t *slot[T], v T) {
	nb := q.cachedBlock.Swap(nil)
	if nb == nil {
		nb = newBlock[T]()
	}
	head := &nb.slots[firstUsable()]
	head.value = v
	head.tag.StoreRelease(tagAllocated)

	q.tail.Store(head.next())

	t.nextSlot = head
	t.tag.StoreRelease(tagBlockPointer)
}

// TryDequeue removes and returns the value at the front of the queue. ok
// is false if the queue was empty.
func (q *Queue[T]) TryDequeue() (v T, ok bool) {
	q.enterReader()
	sw := spin.Wait{}
	for {
		h := q.head.Load()
		switch tag(h.tag.LoadAcquire()) {
		case tagFree, tagEndOfList:
			q.leaveReader()
			var zero T
			return zero, false
		case tagAllocated:
			if h.tag.CompareAndSwapAcqRel(tagAllocated, tagRemoving) {
				v = q.dequeueRemove(h)
				q.leaveReader()
				return v, true
			}
			sw.Once()
		case tagBlockPointer:
			if h.tag.CompareAndSwapAcqRel(tagBlockPointer, tagDestroying) {
				v, ok = q.dequeueCrossBlock(h)
				return v, ok
			}
			sw.Once()
		default:
			runtime.Gosched()
			sw.Once()
		}
	}
}

// dequeueRemove extracts the value from a slot this goroutine has already
// CASed to tagRemoving and publishes tagRemoved. Ownership of any
// Releaser the value carries passes to the caller.
func (q *Queue[T]) dequeueRemove(h *slot[T]) T {
	q.head.Store(h.next())

	v := h.value
	var zero T
	h.value = zero
	h.tag.StoreRelease(tagRemoved)
	return v
}

// dequeueCrossBlock advances head into the successor block that h points
// at, reclaiming h's block once no other reader can still see it.
//
// enqueueExtend writes the successor's first value and tags that slot
// tagAllocated before it publishes tagBlockPointer, so the successor's
// first slot is already Allocated when this runs. The loop below waits for
// tagAllocated rather than returning ok=false: see DESIGN.md's Open
// Questions entry — surfacing false here would abandon h's block (already
// tagged tagDestroying) with nothing left to ever free it.
func (q *Queue[T]) dequeueCrossBlock(h *slot[T]) (v T, ok bool) {
	next := h.nextSlot
	sw := spin.Wait{}
	for tag(next.tag.LoadAcquire()) != tagAllocated {
		sw.Once()
	}

	q.head.Store(next.next())

	v = next.value
	var zero T
	next.value = zero
	next.tag.StoreRelease(tagRemoved)

	q.leaveReader()
	q.enterWriter()
	q.releaseBlock(h.blk)
	q.leaveWriter()

	return v, true
}

// Dequeue removes and returns the value at the front of the queue,
// reporting ErrEmptyQueue if it was empty.
func (q *Queue[T]) Dequeue() (T, error) {
	v, ok := q.TryDequeue()
	if !ok {
		var zero T
		return zero, ErrEmptyQueue
	}
	return v, nil
}

// releaseBlock retires blk, stashing it in cachedBlock if that
// single-block cache is empty. Go has no explicit free: once cachedBlock
// (on a cache miss) and every live *slot[T] pointing into blk go out of
// scope, the garbage collector reclaims it, without a use-after-free
// hazard if a spinning reader is slow to notice the destroying transition.
//
// releaseBlock always runs inside the caller's writer section, so no
// reader can be observing blk's slots concurrently; that is what makes it
// safe to reset every slot to tagFree here before the block is offered for
// reuse, undoing the Allocated→Removing→Removed walk every slot in a fully
// drained block has necessarily made.
func (q *Queue[T]) releaseBlock(blk *block[T]) {
	resetBlock(blk)
	q.cachedBlock.CompareAndSwap(nil, blk)
}

func resetBlock[T any](blk *block[T]) {
	var zero T
	for i := range blk.slots {
		blk.slots[i].tag.StoreRelaxed(tagFree)
		blk.slots[i].nextSlot = nil
		blk.slots[i].value = zero
	}
	if debugSentinelsEnabled {
		blk.slots[0].tag.StoreRelaxed(tagStartOfList)
		blk.slots[blockSize-1].tag.StoreRelaxed(tagSentinel)
	}
	blk.slots[lastUsable()].tag.StoreRelaxed(tagEndOfList)
}

// Close releases every value still resident in the queue that implements
// Releaser, matching the invariant that every enqueued value is released
// exactly once — either by a successful Dequeue/TryDequeue or by Close.
// After Close the queue must not be used again.
func (q *Queue[T]) Close() {
	for {
		v, ok := q.TryDequeue()
		if !ok {
			return
		}
		if r, isReleaser := any(v).(Releaser); isReleaser {
			r.Release()
		}
	}
}
