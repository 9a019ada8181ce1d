// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reflock implements the referenced-pointer micro-lock shared by
// the bounded stack and bounded ring queue: a CAS-able {data, ref} pair
// where the ref half doubles as a per-cursor busy flag.
//
// Acquire spins until ref is clear and never overrides a held lock, so a
// holder that stalls between Acquire and its release keeps every other
// Acquire on the same Ptr spinning. TryPublish does not wait on the lock.
package reflock

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Ptr is a referenced pointer: a 128-bit CAS-able pair {data, ref}.
//
// data carries the payload (a slab index in stack, a cursor counter in
// ring; never a raw pointer). ref is
// non-zero exactly while some thread holds the micro-lock; that thread's
// tag occupies ref for the duration.
//
// A narrower {pointer, 32-bit ref} pair fits in one machine word on 32-bit
// hosts, but on a 64-bit Go target the data half is itself 64 bits, so this
// type widens the pair to Uint128 to keep both halves in one CAS-able slot.
type Ptr struct {
	word atomix.Uint128
}

// tagSeq hands out lock tokens. Tokens only need to be non-zero and
// distinct from whatever is currently visible in ref; they do not need to
// be stable per goroutine; see DESIGN.md's note on thread identity.
var tagSeq atomix.Uint64

// NextTag returns a fresh non-zero lock token for use with Acquire.
func NextTag() uint64 {
	return tagSeq.AddAcqRel(1)<<1 | 1
}

// Reset sets the pointer's data to data and clears the busy bit. It is not
// atomic with respect to concurrent Acquire/TryPublish and must only be
// called before the Ptr is published to other goroutines, or while the
// caller otherwise holds exclusive access.
func (p *Ptr) Reset(data uint64) {
	p.word.StoreRelaxed(data, 0)
}

// Data returns a snapshot of the data half. The read is not synchronized
// with any in-flight Acquire; callers use it for is-empty/is-full style
// queries that are inherently stale under contention.
func (p *Ptr) Data() uint64 {
	data, _ := p.word.LoadAcquire()
	return data
}

// Acquire claims the micro-lock: it spins while the busy bit is set, then
// CASes ref from 0 to tag while leaving data untouched, returning the data
// value observed at the moment of the successful CAS.
func (p *Ptr) Acquire(tag uint64) uint64 {
	sw := spin.Wait{}
	for {
		data, ref := p.word.LoadAcquire()
		if ref != 0 {
			sw.Once()
			continue
		}
		if p.word.CompareAndSwapAcqRel(data, 0, data, tag) {
			return data
		}
		sw.Once()
	}
}

// TryRelease attempts the combined publish-and-unlock CAS: it succeeds only
// if the pointer still reads (expectData, tag), in which case it publishes
// newData and clears ref in one step. Callers that hold the lock loop on
// TryRelease, re-reading Data between attempts, when a concurrent
// TryPublish (see below) may have advanced data while the lock was held.
func (p *Ptr) TryRelease(tag, expectData, newData uint64) bool {
	return p.word.CompareAndSwapAcqRel(expectData, tag, newData, 0)
}

// Release is TryRelease looped to success for callers that know data
// cannot change while the lock is held (i.e. no concurrent TryPublish path
// exists on this Ptr — true for both cursors of the bounded ring queue).
func (p *Ptr) Release(tag, newData uint64) {
	expect := p.Data()
	for !p.TryRelease(tag, expect, newData) {
		expect = p.Data()
	}
}

// TryPublish performs the bare, non-acquiring CAS used by lock-free append
// paths that must not wait on the busy bit: pushing a freed node back onto
// a chain head races only against other pushers, never against the
// holder of the micro-lock.
//
// A design that CASed only a 32-bit data sub-word, independent of ref,
// could rely on the acquiring side's joint CAS to notice the change and
// retry on its own. Because Ptr's data and ref live in one Uint128 CAS
// unit rather than two independently addressable words, TryPublish instead
// re-reads the current ref and includes it unchanged on both sides of the
// CAS. This only costs an extra retry in the rare window where a
// concurrent Acquire or Release changes ref between TryPublish's read and
// its CAS; it never changes correctness or the lock-free guarantee.
func (p *Ptr) TryPublish(old, new uint64) bool {
	_, ref := p.word.LoadAcquire()
	return p.word.CompareAndSwapAcqRel(old, ref, new, ref)
}
