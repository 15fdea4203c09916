package profile

import (
	"container/heap"
	"hash/fnv"
	"math"
)

// distinctTracker counts distinct values exactly through a bounded set.
// When the set outgrows its cap it degrades to a KMV (k-minimum-values)
// sketch over 64-bit FNV hashes with k equal to the cap, an unbiased
// estimator with relative error about 1/sqrt(k) (~1% at the default cap of
// 10,000). Exact() reports which mode produced the count.
type distinctTracker struct {
	cap   int
	exact map[string]struct{}

	sketch *kmvSketch
}

func newDistinctTracker(capacity int) *distinctTracker {
	return &distinctTracker{
		cap:   capacity,
		exact: make(map[string]struct{}),
	}
}

func (d *distinctTracker) Add(key string) {
	if d.sketch == nil {
		if _, ok := d.exact[key]; ok {
			return
		}
		if len(d.exact) < d.cap {
			d.exact[key] = struct{}{}
			return
		}
		// Overflow: seed the sketch with everything seen so far.
		d.sketch = newKMVSketch(d.cap)
		for k := range d.exact {
			d.sketch.Add(k)
		}
		d.exact = nil
	}
	d.sketch.Add(key)
}

// Count returns the exact count or the KMV estimate.
func (d *distinctTracker) Count() int64 {
	if d.sketch == nil {
		return int64(len(d.exact))
	}
	return d.sketch.Estimate()
}

// Exact reports whether Count is an exact value.
func (d *distinctTracker) Exact() bool { return d.sketch == nil }

// kmvSketch keeps the k smallest distinct hash values seen. With hashes
// uniform on [0, 2^64), the k-th smallest at position h estimates
// (k-1) * 2^64 / h distinct values.
type kmvSketch struct {
	k       int
	heap    maxHeap // k smallest hashes, largest on top
	present map[uint64]struct{}
}

// hash64 hashes a key for the sketch. The FNV output is run through the
// splitmix64 finalizer: raw FNV is fine for bucketing but its order
// statistics are badly skewed on sequential keys, which an order-based
// estimator cannot tolerate.
func hash64(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return mix64(h.Sum64())
}

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func newKMVSketch(k int) *kmvSketch {
	return &kmvSketch{
		k:       k,
		heap:    make(maxHeap, 0, k),
		present: make(map[uint64]struct{}, k),
	}
}

func (s *kmvSketch) Add(key string) {
	v := hash64(key)

	if _, ok := s.present[v]; ok {
		return
	}
	if len(s.heap) < s.k {
		s.present[v] = struct{}{}
		heap.Push(&s.heap, v)
		return
	}
	if v >= s.heap[0] {
		return
	}
	delete(s.present, s.heap[0])
	s.present[v] = struct{}{}
	s.heap[0] = v
	heap.Fix(&s.heap, 0)
}

func (s *kmvSketch) Estimate() int64 {
	n := len(s.heap)
	if n < s.k {
		// Sketch never filled: every hash seen is retained, count is exact.
		return int64(n)
	}
	kth := float64(s.heap[0])
	if kth == 0 {
		return int64(n)
	}
	est := float64(n-1) * math.Exp2(64) / kth
	return int64(math.Round(est))
}

type maxHeap []uint64

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
