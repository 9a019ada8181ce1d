// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lockfree is the module root for a family of lock-free
// concurrent containers.
//
// There is no top-level API: import the subpackage matching the container
// shape you need.
//
//   - [code.hybscloud.com/lockfree/stack] — bounded LIFO
//   - [code.hybscloud.com/lockfree/ring] — bounded FIFO
//   - [code.hybscloud.com/lockfree/blockqueue] — unbounded FIFO
//   - [code.hybscloud.com/lockfree/notify] — edge-triggered occupancy
//     notifications for any of the above
//
// # Quick Start
//
//	s := stack.New[Event](1024)
//	if err := s.Push(ev); stack.IsWouldBlock(err) {
//	    // stack is full
//	}
//	ev, err := s.Pop()
//
//	r := ring.New[Event](1024)
//	if err := r.Enqueue(ev); ring.IsWouldBlock(err) {
//	    // ring is full
//	}
//	ev, err := r.Dequeue()
//
//	q := blockqueue.New[Event]()
//	q.Enqueue(ev)          // never blocks, grows as needed
//	ev, ok := q.TryDequeue()
//
// # Design
//
// All three containers avoid a blocking mutex on the fast path: mutual
// exclusion on shared cursors is CAS-only, backed by
// [code.hybscloud.com/spin] for backoff and
// [code.hybscloud.com/atomix] for the underlying 32/64/128-bit atomics.
// [code.hybscloud.com/iox] supplies the shared ErrWouldBlock semantics for
// full/empty conditions on the two bounded containers.
//
// None of the three containers are wait-free: under contention a caller
// may spin through several failed CAS attempts before an operation
// completes or reports would-block. None guarantee fairness between
// competing goroutines, and none order operations across different
// container instances.
//
// # Race Detection
//
// The stress tests in each package are skipped under `go test -race`.
// These containers synchronize non-atomic fields (chain payloads, slot
// values) through happens-before edges established by CAS on separate
// control words rather than by touching the same address the race
// detector is watching, which the detector's model does not recognize;
// see [code.hybscloud.com/lockfree/internal/racedetect].
package lockfree
