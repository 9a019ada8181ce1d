// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stack provides a bounded, lock-free LIFO stack for concurrent
// producer/consumer use.
//
// The stack preallocates every node up front and moves nodes between two
// intrusive singly-linked chains — public (filled, LIFO order) and recycle
// (free) — instead of allocating or freeing on the fast path. Both chain
// heads are protected by the referenced-pointer micro-lock in
// [code.hybscloud.com/lockfree/internal/reflock].
package stack

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lockfree/internal/reflock"
)

// ErrWouldBlock is returned by Push when the stack is full and by Pop when
// the stack is empty. It is an alias for [iox.ErrWouldBlock] for ecosystem
// consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// nilLink is the chain terminator. Chain links are 1-based node indices
// into the slab so that 0 doubles as nil without reserving a sentinel node.
const nilLink = 0

// node is one slab-resident element: the stored value plus its intrusive
// forward link within whichever chain currently owns it.
type node[T any] struct {
	value T
	next  uint64 // 1-based index into slab, nilLink terminates
}

// Stack is a bounded, lock-free LIFO stack of type T.
//
// A Stack must be created with [New]; the zero value is not usable. All
// methods are safe for concurrent use by any number of goroutines except
// Drain, which requires external synchronization with concurrent Push/Pop.
type Stack[T any] struct {
	_       pad
	public  reflock.Ptr // head of filled nodes, LIFO
	_       pad
	recycle reflock.Ptr // head of free nodes
	_       pad
	slab    []node[T]
	cap     int
}

type pad [64]byte

// New creates a Stack able to hold up to numElements values.
//
// Panics if numElements <= 0, matching the ecosystem's convention of
// treating a malformed capacity as a programmer error rather than a
// runtime condition.
func New[T any](numElements int) *Stack[T] {
	if numElements <= 0 {
		panic("stack: numElements must be > 0")
	}
	s := &Stack[T]{
		slab: make([]node[T], numElements),
		cap:  numElements,
	}
	// Link every slab slot into recycle, last node terminating the chain.
	for i := range s.slab {
		if i+1 < len(s.slab) {
			s.slab[i].next = uint64(i + 2)
		} else {
			s.slab[i].next = nilLink
		}
	}
	s.recycle.Reset(1) // 1-based index of slab[0]
	s.public.Reset(nilLink)
	return s
}

// Cap returns the stack's capacity.
func (s *Stack[T]) Cap() int {
	return s.cap
}

// IsEmpty reports whether the public chain is empty. The result is a
// snapshot and may be stale under concurrent access.
func (s *Stack[T]) IsEmpty() bool {
	return s.public.Data() == nilLink
}

// IsFull reports whether the recycle chain is exhausted. The result is a
// snapshot and may be stale under concurrent access.
func (s *Stack[T]) IsFull() bool {
	return s.recycle.Data() == nilLink
}

// Push places v on top of the stack. It returns ErrWouldBlock if the stack
// is full.
func (s *Stack[T]) Push(v T) error {
	link := s.popLink(&s.recycle)
	if link == nilLink {
		return ErrWouldBlock
	}
	s.slab[link-1].value = v
	s.pushLink(link, &s.public)
	return nil
}

// Pop removes and returns the most recently pushed value. It returns
// ErrWouldBlock if the stack is empty.
func (s *Stack[T]) Pop() (T, error) {
	link := s.popLink(&s.public)
	if link == nilLink {
		var zero T
		return zero, ErrWouldBlock
	}
	v := s.slab[link-1].value
	var zero T
	s.slab[link-1].value = zero
	s.pushLink(link, &s.recycle)
	return v, nil
}

// Drain moves every node from the public chain back onto recycle. It is
// not safe to call concurrently with Push or Pop on the same Stack.
func (s *Stack[T]) Drain() {
	for {
		link := s.popLink(&s.public)
		if link == nilLink {
			return
		}
		var zero T
		s.slab[link-1].value = zero
		s.pushLink(link, &s.recycle)
	}
}

// popLink acquires chain's micro-lock, detaches its head node, and
// publishes the new head in the same CAS that releases the lock.
//
// Once Acquire returns, this goroutine already holds the lock: a failed
// TryRelease means only that a concurrent pushLink changed data
// underneath it (TryPublish preserves the held ref), not that the lock
// was lost. Retrying from Acquire in that case would spin forever, since
// Acquire waits for ref to clear and only this goroutine's own release
// can clear it. So on any failed TryRelease this rereads the fresh data
// directly and retries the release step, never re-acquiring — including
// while chain reads empty: chain.Release's blind CAS is only valid on a
// Ptr with no concurrent TryPublish path (true for both ring cursors, not
// for either of this package's chains, since pushLink targets both via
// TryPublish), so an observed-empty head is re-validated with the same
// TryRelease loop rather than published unconditionally.
func (s *Stack[T]) popLink(chain *reflock.Ptr) uint64 {
	tag := reflock.NextTag()
	head := chain.Acquire(tag)
	for {
		if head == nilLink {
			if chain.TryRelease(tag, nilLink, nilLink) {
				return nilLink
			}
			head = chain.Data()
			continue
		}
		next := s.slab[head-1].next
		if chain.TryRelease(tag, head, next) {
			return head
		}
		head = chain.Data()
	}
}

// pushLink links node onto chain's head without acquiring the micro-lock;
// concurrent popLink calls observe the change through their own joint CAS
// and retry if it raced them.
func (s *Stack[T]) pushLink(link uint64, chain *reflock.Ptr) {
	for {
		old := chain.Data()
		s.slab[link-1].next = old
		if chain.TryPublish(old, link) {
			return
		}
	}
}
