// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/lockfree/internal/racedetect"
	"code.hybscloud.com/lockfree/ring"
)

// TestSPSCFullEmpty pins down scenario 2: queue(num=3), fill, overflow,
// drain, underflow.
func TestSPSCFullEmpty(t *testing.T) {
	q := ring.New[byte](3)

	for _, v := range []byte{'A', 'B', 'C'} {
		if err := q.Enqueue(v); err != nil {
			t.Fatalf("Enqueue(%c): %v", v, err)
		}
	}
	if !q.IsFull() {
		t.Fatal("expected full after 3 enqueues into cap-3 ring")
	}
	if err := q.Enqueue('D'); !errors.Is(err, ring.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for _, want := range []byte{'A', 'B', 'C'} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue: got %c, want %c", got, want)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("expected empty after draining all enqueues")
	}
	if _, err := q.Dequeue(); !errors.Is(err, ring.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

func TestFIFOOrderSPSC(t *testing.T) {
	q := ring.New[int](16)
	var wg sync.WaitGroup
	wg.Add(2)

	const n = 5000
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for q.Enqueue(i) != nil {
			}
		}
	}()

	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			v, err := q.Dequeue()
			if err == nil {
				got = append(got, v)
			}
		}
	}()
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("FIFO order broken at index %d: got %d, want %d", i, v, i)
		}
	}
}

// TestConservationConcurrent runs a concurrent MPMC producer/consumer
// workload and checks that every produced value is consumed exactly once,
// per the ring queue's conservation invariant.
func TestConservationConcurrent(t *testing.T) {
	if racedetect.Enabled {
		t.Skip("lock-free CAS cursors synchronized outside the race detector's model")
	}

	const capacity = 32
	const perProducer = 3000
	const producers = 4
	const consumers = 4
	const total = producers * perProducer

	q := ring.New[uint64](capacity)

	var producerWg sync.WaitGroup
	producerWg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer producerWg.Done()
			for i := 0; i < perProducer; i++ {
				v := uint64(p)<<32 | uint64(i)
				for q.Enqueue(v) != nil {
				}
			}
		}(p)
	}

	var consumed sync.Map
	var count int64
	done := make(chan struct{})
	var consumerWg sync.WaitGroup
	consumerWg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer consumerWg.Done()
			for {
				v, err := q.Dequeue()
				if err == nil {
					if _, dup := consumed.LoadOrStore(v, true); dup {
						t.Errorf("value %d dequeued more than once", v)
					}
					if atomic.AddInt64(&count, 1) == total {
						close(done)
					}
					continue
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	producerWg.Wait()
	consumerWg.Wait()

	if got := atomic.LoadInt64(&count); got != total {
		t.Fatalf("consumed %d values, want %d", got, total)
	}
}
