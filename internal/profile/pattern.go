package profile

import (
	"sort"
	"strings"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// Signature maps a string to its structural shape: digits become '9',
// letters become 'A', everything else is kept as-is. "AB-1234" -> "AA-9999".
func Signature(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteByte('9')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteByte('A')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// patternTally counts signature frequencies across the full column, one
// O(1) update per value. The map is bounded: once cap distinct signatures
// exist, unseen signatures are dropped and the overflow flag is raised;
// such columns are reported as high pattern diversity instead of being
// enumerated.
type patternTally struct {
	cap      int
	counts   map[string]int64
	seen     int64
	overflow bool
}

func newPatternTally(capacity int) *patternTally {
	return &patternTally{
		cap:    capacity,
		counts: make(map[string]int64),
	}
}

func (p *patternTally) Add(raw string) {
	p.seen++
	sig := Signature(raw)
	if _, ok := p.counts[sig]; !ok {
		if len(p.counts) >= p.cap {
			p.overflow = true
			return
		}
	}
	p.counts[sig]++
}

// Top returns the topN signatures by descending count (ties broken by
// signature for determinism), with percentages over all tallied values and
// up to maxExamples literal examples per signature pulled from the sample.
func (p *patternTally) Top(topN, maxExamples int, sample []value.Value) []Pattern {
	if len(p.counts) == 0 {
		return nil
	}

	sigs := make([]string, 0, len(p.counts))
	for sig := range p.counts {
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool {
		if p.counts[sigs[i]] != p.counts[sigs[j]] {
			return p.counts[sigs[i]] > p.counts[sigs[j]]
		}
		return sigs[i] < sigs[j]
	})
	if len(sigs) > topN {
		sigs = sigs[:topN]
	}

	// Index examples by signature in one pass over the reservoir.
	wanted := make(map[string][]string, len(sigs))
	for _, sig := range sigs {
		wanted[sig] = nil
	}
	for _, v := range sample {
		raw := v.Raw()
		sig := Signature(raw)
		examples, ok := wanted[sig]
		if !ok || len(examples) >= maxExamples {
			continue
		}
		if containsString(examples, raw) {
			continue
		}
		wanted[sig] = append(examples, raw)
	}

	patterns := make([]Pattern, 0, len(sigs))
	for _, sig := range sigs {
		patterns = append(patterns, Pattern{
			Signature:  sig,
			Count:      p.counts[sig],
			Percentage: round2(float64(p.counts[sig]) / float64(p.seen) * 100),
			Examples:   wanted[sig],
		})
	}
	return patterns
}

func (p *patternTally) Overflowed() bool { return p.overflow }

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
