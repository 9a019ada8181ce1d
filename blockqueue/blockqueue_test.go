// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package blockqueue_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/lockfree/blockqueue"
	"code.hybscloud.com/lockfree/internal/racedetect"
	"github.com/valyala/fastrand"
)

func TestSPSCOrder(t *testing.T) {
	q := blockqueue.New[int]()

	if _, err := q.Dequeue(); !errors.Is(err, blockqueue.ErrEmptyQueue) {
		t.Fatalf("Dequeue on empty: got %v, want ErrEmptyQueue", err)
	}

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < 100; i++ {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}
	if _, ok := q.TryDequeue(); ok {
		t.Fatal("TryDequeue succeeded on a drained queue")
	}
}

// TestBlockBoundaryCrossing pins down scenario 4: filling a block to
// exactly one short of capacity, then crossing into a second block, then
// draining everything.
func TestBlockBoundaryCrossing(t *testing.T) {
	const blockSize = 4096

	q := blockqueue.New[int]()
	for i := 0; i < blockSize-1; i++ {
		q.Enqueue(i)
	}
	q.Enqueue(blockSize - 1) // this enqueue crosses into a second block

	for i := 0; i < blockSize; i++ {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, v, i)
		}
	}
	if _, ok := q.TryDequeue(); ok {
		t.Fatal("TryDequeue succeeded after draining exactly one block's worth")
	}
}

// handle is a reference-counted payload used to pin scenario 5: every
// enqueued handle must have Release called on it exactly once, whether by
// a successful Dequeue or by Close.
type handle struct {
	refcount *int32
}

func (h handle) Release() {
	atomic.AddInt32(h.refcount, -1)
}

func TestReferenceCountedPayloadLeakCheck(t *testing.T) {
	const n = 1000
	refs := make([]int32, n)
	q := blockqueue.New[handle]()

	for i := range refs {
		refs[i] = 1
		q.Enqueue(handle{refcount: &refs[i]})
	}

	for i := 0; i < n/2; i++ {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		v.Release()
	}

	q.Close()

	for i, r := range refs {
		if r != 0 {
			t.Fatalf("handle %d refcount = %d, want 0", i, r)
		}
	}
}

// TestMPMCStress pins down scenario 3: 8 producers each enqueue 0..9999,
// 8 consumers drain concurrently; the union of consumed values must equal
// the multiset of produced values with no duplicates.
func TestMPMCStress(t *testing.T) {
	if racedetect.Enabled {
		t.Skip("lock-free tag CAS synchronized outside the race detector's model")
	}

	const producers = 8
	const perProducer = 10000
	const consumers = 8
	const total = producers * perProducer

	q := blockqueue.New[uint64]()

	var producerWg sync.WaitGroup
	producerWg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer producerWg.Done()
			rng := fastrand.Uint32
			for i := 0; i < perProducer; i++ {
				q.Enqueue(uint64(p)<<32 | uint64(i))
				if i%97 == 0 {
					_ = rng() // vary interleaving without slowing the hot loop
				}
			}
		}(p)
	}

	var seen sync.Map
	var consumedCount int64

	var consumerWg sync.WaitGroup
	consumerWg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer consumerWg.Done()
			for atomic.LoadInt64(&consumedCount) < total {
				v, ok := q.TryDequeue()
				if !ok {
					continue
				}
				if _, dup := seen.LoadOrStore(v, true); dup {
					t.Errorf("value %d dequeued more than once", v)
				}
				atomic.AddInt64(&consumedCount, 1)
			}
		}()
	}

	producerWg.Wait()
	consumerWg.Wait()

	if got := atomic.LoadInt64(&consumedCount); got != total {
		t.Fatalf("consumed %d values, want %d", got, total)
	}
}
