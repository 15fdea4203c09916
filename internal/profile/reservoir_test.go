package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CharlesDeJager/dprof/internal/value"
)

func TestReservoirKeepsEverythingUnderCapacity(t *testing.T) {
	r := newReservoir(10, "seed")
	for i := 0; i < 5; i++ {
		r.Add(value.NewInt(int64(i)))
	}
	assert.Equal(t, 5, r.Len())
}

func TestReservoirStaysBounded(t *testing.T) {
	r := newReservoir(100, "seed")
	for i := 0; i < 10000; i++ {
		r.Add(value.NewInt(int64(i)))
	}
	assert.Equal(t, 100, r.Len())
}

func TestReservoirIsDeterministicPerSeed(t *testing.T) {
	fill := func(seed string) []value.Value {
		r := newReservoir(50, seed)
		for i := 0; i < 2000; i++ {
			r.Add(value.NewString(fmt.Sprintf("v%d", i)))
		}
		return r.Values()
	}

	assert.Equal(t, fill("table\x00col"), fill("table\x00col"))
	assert.NotEqual(t, fill("table\x00col"), fill("table\x00other"))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 100}

	assert.InDelta(t, 3.0, quantile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 2.0, quantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 4.0, quantile(sorted, 0.75), 1e-9)
	assert.InDelta(t, 1.0, quantile(sorted, 0), 1e-9)
	assert.InDelta(t, 100.0, quantile(sorted, 1), 1e-9)

	// Interpolation between ranks.
	assert.InDelta(t, 2.5, quantile([]float64{1, 2, 3, 4}, 0.5), 1e-9)

	assert.Equal(t, 0.0, quantile(nil, 0.5))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.9))
}
