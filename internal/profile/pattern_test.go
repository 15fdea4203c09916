package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesDeJager/dprof/internal/value"
)

func TestSignature(t *testing.T) {
	cases := map[string]string{
		"AB-1234":      "AA-9999",
		"2024-01-15":   "9999-99-99",
		"foo@bar.com":  "AAA@AAA.AAA",
		"+1 (555) 123": "+9 (999) 999",
		"":             "",
		"日本語7":         "日本語9",
	}
	for input, want := range cases {
		assert.Equal(t, want, Signature(input), "signature of %q", input)
	}
}

func TestPatternTallyTop(t *testing.T) {
	tally := newPatternTally(100)
	var sample []value.Value
	for i := 0; i < 6; i++ {
		raw := fmt.Sprintf("X%d", i)
		tally.Add(raw)
		sample = append(sample, value.NewString(raw))
	}
	tally.Add("no-digits")
	sample = append(sample, value.NewString("no-digits"))

	top := tally.Top(10, 3, sample)
	require.Len(t, top, 2)

	assert.Equal(t, "A9", top[0].Signature)
	assert.Equal(t, int64(6), top[0].Count)
	assert.InDelta(t, 85.71, top[0].Percentage, 0.01)
	// Examples are capped and deduplicated.
	assert.Len(t, top[0].Examples, 3)

	assert.Equal(t, "AA-AAAAAA", top[1].Signature)
}

func TestPatternTallyOverflow(t *testing.T) {
	tally := newPatternTally(3)
	for i := 0; i < 10; i++ {
		// Vary the length so every value has a fresh signature.
		tally.Add(fmt.Sprintf("%0*d", i+1, 0))
	}

	assert.True(t, tally.Overflowed())
	assert.LessOrEqual(t, len(tally.counts), 3)

	// Already-tracked signatures keep counting after overflow.
	tally.Add("0")
	top := tally.Top(10, 1, nil)
	require.NotEmpty(t, top)
	assert.Equal(t, "9", top[0].Signature)
	assert.Equal(t, int64(2), top[0].Count)
}
