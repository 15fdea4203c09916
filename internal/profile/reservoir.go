package profile

import (
	"hash/fnv"
	"math/rand"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// reservoir keeps a bounded uniform sample of a column's non-null values
// (Vitter's algorithm R). The type inferencer and pattern detector work off
// this sample so they never need the whole column in memory.
//
// The random source is seeded from the column identity, which keeps the
// sample, and everything derived from it, identical across runs and
// independent of worker interleaving.
type reservoir struct {
	capacity int
	seen     int64
	values   []value.Value
	rng      *rand.Rand
}

func newReservoir(capacity int, seedKey string) *reservoir {
	h := fnv.New64a()
	h.Write([]byte(seedKey))
	return &reservoir{
		capacity: capacity,
		values:   make([]value.Value, 0, capacity),
		rng:      rand.New(rand.NewSource(int64(h.Sum64()))),
	}
}

func (r *reservoir) Add(v value.Value) {
	r.seen++
	if len(r.values) < r.capacity {
		r.values = append(r.values, v)
		return
	}
	if j := r.rng.Int63n(r.seen); j < int64(r.capacity) {
		r.values[j] = v
	}
}

// Values returns the sampled values. The slice is owned by the reservoir;
// callers must not mutate it.
func (r *reservoir) Values() []value.Value { return r.values }

func (r *reservoir) Len() int { return len(r.values) }

// quantile computes quantile q over sorted (ascending) data with linear
// interpolation between closest ranks (the R-7 rule, matching common
// statistics packages). For samples at or below reservoir capacity the
// result is exact.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
