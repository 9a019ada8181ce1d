// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package notify decorates a bounded or unbounded container with an
// edge-triggered notification side-channel.
//
// The container's own synchronization is untouched; the wrapper only adds
// an atomic occupancy counter alongside each successful insert/remove and
// forwards events to an external [Subject]. The wrapper calls
// Subject.NotifyOnce for OnPartlyEmpty/OnAlmostFull on every insert or
// remove that lands past the threshold; delivering each of them only once
// per crossing is the Subject's job.
package notify

import "code.hybscloud.com/atomix"

// EventKind identifies which notification fired.
type EventKind int

const (
	// OnAllInserts fires on every successful insert.
	OnAllInserts EventKind = iota
	// OnAllRemoves fires on every successful remove.
	OnAllRemoves
	// OnPartlyEmpty is passed to Subject.NotifyOnce on every remove that
	// leaves occupancy at or below the partly-empty threshold.
	OnPartlyEmpty
	// OnAlmostFull is passed to Subject.NotifyOnce on every insert that
	// leaves occupancy at or above the almost-full threshold.
	OnAlmostFull
)

// Subject is the external collaborator a Wrapped container notifies. It is
// consumed, not implemented, by this package.
type Subject interface {
	// Notify fires unconditionally.
	Notify(kind EventKind)
	// NotifyOnce fires only on the edge transition into kind's condition;
	// it resets once the complementary transition is observed.
	NotifyOnce(kind EventKind)
}

const (
	// DefaultPartlyEmptyFactor is the default fraction of capacity at or
	// below which OnPartlyEmpty fires.
	DefaultPartlyEmptyFactor = 0.8
	// DefaultAlmostFullFactor is the default fraction of capacity at or
	// above which OnAlmostFull fires.
	DefaultAlmostFullFactor = 0.9
)

// container is the minimal surface a base type must expose to be wrapped.
// Small adapters over [code.hybscloud.com/lockfree/stack.Stack],
// [code.hybscloud.com/lockfree/ring.Ring], and
// [code.hybscloud.com/lockfree/blockqueue.Queue] satisfy it.
//
// Len is read exactly once, by [Wrap]/[WrapWithFactors], to seed the
// wrapper's own occupancy counter; it is never consulted again. None of
// the three containers in this module can report an occupancy a
// concurrent Push/Pop couldn't immediately invalidate, so their adapters
// implement Len as a constant 0 rather than pretend otherwise — meaning
// Wrap must only be called on a container that is still empty. Wrapping
// a container that already holds values seeds count at 0 regardless of
// its true occupancy, which throws off every later OnPartlyEmpty/
// OnAlmostFull edge computation.
type container[T any] interface {
	TryInsert(v T) bool
	TryRemove() (T, bool)
	Len() int
}

type pad [64]byte

// Wrapped decorates a container with occupancy tracking and edge-triggered
// notifications.
//
// The zero value is not usable; construct with [Wrap]. All methods are
// safe for concurrent use to the same extent the wrapped container is.
type Wrapped[T any] struct {
	base    container[T]
	subject Subject
	cap     int
	_       pad
	count   atomix.Int64
	_       pad
	partlyEmptyAt int
	almostFullAt  int
}

// clipThreshold clips a computed threshold into [0, capacity-1], matching
// the requirement that both edges stay strictly inside the container's
// range so they can always be crossed.
func clipThreshold(capacity int, computed int) int {
	if computed < 0 {
		return 0
	}
	if computed > capacity-1 {
		return capacity - 1
	}
	return computed
}

// roundFactor rounds capacity*factor to the nearest integer.
func roundFactor(capacity int, factor float64) int {
	return int(float64(capacity)*factor + 0.5)
}

// Wrap decorates base, whose fixed capacity is capacity, with the default
// partly-empty/almost-full factors. Use [WrapWithFactors] to override
// them. capacity is meaningless for an unbounded base (see [WrapBlockQueue])
// and should be passed as 0; OnPartlyEmpty/OnAlmostFull are never emitted
// in that case.
//
// base must still be empty: see the precondition on [container.Len].
func Wrap[T any](base container[T], capacity int, subject Subject) *Wrapped[T] {
	return WrapWithFactors(base, capacity, subject, DefaultPartlyEmptyFactor, DefaultAlmostFullFactor)
}

// WrapWithFactors is [Wrap] with explicit partly-empty/almost-full
// factors, each a fraction of capacity.
func WrapWithFactors[T any](base container[T], capacity int, subject Subject, partlyEmptyFactor, almostFullFactor float64) *Wrapped[T] {
	w := &Wrapped[T]{
		base:    base,
		subject: subject,
		cap:     capacity,
	}
	if capacity > 0 {
		w.partlyEmptyAt = clipThreshold(capacity, roundFactor(capacity, partlyEmptyFactor))
		w.almostFullAt = clipThreshold(capacity, roundFactor(capacity, almostFullFactor))
	}
	w.count.StoreRelaxed(int64(base.Len()))
	return w
}

// TryInsert inserts v into the underlying container, emitting
// OnAllInserts and, while occupancy is at or above the almost-full
// threshold, NotifyOnce(OnAlmostFull).
func (w *Wrapped[T]) TryInsert(v T) bool {
	if !w.base.TryInsert(v) {
		return false
	}
	n := w.count.AddAcqRel(1)
	w.subject.Notify(OnAllInserts)
	if w.cap > 0 && n >= int64(w.almostFullAt) {
		w.subject.NotifyOnce(OnAlmostFull)
	}
	return true
}

// TryRemove removes a value from the underlying container, emitting
// OnAllRemoves and, while occupancy is at or below the partly-empty
// threshold, NotifyOnce(OnPartlyEmpty).
func (w *Wrapped[T]) TryRemove() (T, bool) {
	v, ok := w.base.TryRemove()
	if !ok {
		var zero T
		return zero, false
	}
	n := w.count.AddAcqRel(-1)
	w.subject.Notify(OnAllRemoves)
	if w.cap > 0 && n <= int64(w.partlyEmptyAt) {
		w.subject.NotifyOnce(OnPartlyEmpty)
	}
	return v, true
}

// Len returns the wrapper's tracked occupancy count.
func (w *Wrapped[T]) Len() int {
	return int(w.count.LoadAcquire())
}

// Container is implemented by all three base containers via small
// adapters so a single Wrapped[T] wiring works for any of them.
type Container[T any] = container[T]
