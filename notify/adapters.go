// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package notify

import (
	"code.hybscloud.com/lockfree/blockqueue"
	"code.hybscloud.com/lockfree/ring"
	"code.hybscloud.com/lockfree/stack"
)

// stackAdapter satisfies container[T] over a *stack.Stack[T].
type stackAdapter[T any] struct {
	s *stack.Stack[T]
}

func (a stackAdapter[T]) TryInsert(v T) bool   { return a.s.Push(v) == nil }
func (a stackAdapter[T]) TryRemove() (T, bool) { v, err := a.s.Pop(); return v, err == nil }

// Len is a constant 0: Stack has no cheap, concurrency-safe occupancy
// query, so WrapStack requires s to still be empty (see container.Len).
func (a stackAdapter[T]) Len() int { return 0 }

// WrapStack decorates s with an edge-triggered notification side-channel
// using the default partly-empty/almost-full factors. s must still be
// empty; see container.Len.
func WrapStack[T any](s *stack.Stack[T], subject Subject) *Wrapped[T] {
	return Wrap[T](stackAdapter[T]{s: s}, s.Cap(), subject)
}

// ringAdapter satisfies container[T] over a *ring.Ring[T].
type ringAdapter[T any] struct {
	r *ring.Ring[T]
}

func (a ringAdapter[T]) TryInsert(v T) bool   { return a.r.Enqueue(v) == nil }
func (a ringAdapter[T]) TryRemove() (T, bool) { v, err := a.r.Dequeue(); return v, err == nil }

// Len is a constant 0: Ring has no cheap, concurrency-safe occupancy
// query, so WrapRing requires r to still be empty (see container.Len).
func (a ringAdapter[T]) Len() int { return 0 }

// WrapRing decorates r with an edge-triggered notification side-channel
// using the default partly-empty/almost-full factors. r must still be
// empty; see container.Len.
func WrapRing[T any](r *ring.Ring[T], subject Subject) *Wrapped[T] {
	return Wrap[T](ringAdapter[T]{r: r}, r.Cap(), subject)
}

// blockQueueAdapter satisfies container[T] over a *blockqueue.Queue[T].
// The unbounded queue has no capacity, so its wrapper never emits
// OnPartlyEmpty/OnAlmostFull — see [WrapBlockQueue].
type blockQueueAdapter[T any] struct {
	q *blockqueue.Queue[T]
}

func (a blockQueueAdapter[T]) TryInsert(v T) bool   { a.q.Enqueue(v); return true }
func (a blockQueueAdapter[T]) TryRemove() (T, bool) { return a.q.TryDequeue() }
func (a blockQueueAdapter[T]) Len() int             { return 0 }

// WrapBlockQueue decorates q with OnAllInserts/OnAllRemoves notifications.
// Because q is unbounded, its capacity is reported as 0 and
// OnPartlyEmpty/OnAlmostFull are never emitted.
func WrapBlockQueue[T any](q *blockqueue.Queue[T], subject Subject) *Wrapped[T] {
	return Wrap[T](blockQueueAdapter[T]{q: q}, 0, subject)
}
