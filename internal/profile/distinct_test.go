package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinctExactUnderCap(t *testing.T) {
	d := newDistinctTracker(100)
	for i := 0; i < 50; i++ {
		d.Add(fmt.Sprintf("v%d", i))
		d.Add(fmt.Sprintf("v%d", i)) // duplicates count once
	}

	assert.True(t, d.Exact())
	assert.Equal(t, int64(50), d.Count())
}

// Sequential and zero-padded keys are the worst case for an order-based
// estimator fed a weak hash; the estimate must stay tight on them.
func TestDistinctEstimateAfterOverflow(t *testing.T) {
	cases := []struct {
		name   string
		format string
	}{
		{"sequential", "row-%d"},
		{"zero padded", "user_%07d"},
		{"prefixed", "value-%d"},
	}

	const n = 20000
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDistinctTracker(1024)
			for i := 0; i < n; i++ {
				d.Add(fmt.Sprintf(tc.format, i))
			}

			assert.False(t, d.Exact())

			// KMV at k=1024 has ~3% relative standard error.
			assert.InDelta(t, float64(n), float64(d.Count()), 0.15*n)
		})
	}
}

func TestDistinctEstimateIgnoresDuplicates(t *testing.T) {
	d := newDistinctTracker(256)
	for pass := 0; pass < 3; pass++ {
		for i := 0; i < 5000; i++ {
			d.Add(fmt.Sprintf("value-%d", i))
		}
	}

	est := d.Count()
	assert.InDelta(t, 5000, float64(est), 0.25*5000)
}

func TestHashAvalanche(t *testing.T) {
	// Neighbouring keys must land far apart; a hash whose low order
	// statistics cluster would wreck the k-minimum-values estimate.
	seen := make(map[uint64]struct{})
	var small int
	for i := 0; i < 1000; i++ {
		h := hash64(fmt.Sprintf("row-%d", i))
		seen[h] = struct{}{}
		if h < 1<<60 { // lowest 1/16th of the range
			small++
		}
	}
	assert.Len(t, seen, 1000)
	assert.Less(t, small, 150)
}
