package profile

import (
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// ColumnAggregator maintains the running state for one column of one table.
// Every update is O(1): counts, parse counters, bounded distinct tracking,
// running numeric/length/date accumulators, a bounded sample reservoir and
// the bounded pattern tally. Values are consumed batch-by-batch as the
// chunked reader produces them; nothing is buffered wholesale.
type ColumnAggregator struct {
	name string
	opts Options

	total  int64
	nulls  int64
	blanks int64

	// Parse successes over non-null values, used for type inference
	// verification against the full column rather than just the sample.
	boolOK  int64
	intOK   int64
	floatOK int64
	timeOK  int64

	distinct *distinctTracker
	sample   *reservoir
	patterns *patternTally

	// Numeric running state (population stddev from sum/sum-of-squares).
	numCount int64
	sum      float64
	sumSq    float64
	numMin   float64
	numMax   float64
	zeroes   int64
	negative int64
	positive int64

	// String length running state over all non-null values.
	lenSum int64
	lenMin int
	lenMax int

	// Date/time running state.
	timeCount int64
	timeMin   time.Time
	timeMax   time.Time

	// Boolean running state.
	trues  int64
	falses int64
}

// NewColumnAggregator creates the aggregator for column name. seedKey
// should identify the table+column so the sample reservoir is reproducible
// across runs regardless of worker scheduling.
func NewColumnAggregator(name, seedKey string, opts Options) *ColumnAggregator {
	opts = opts.normalized()
	return &ColumnAggregator{
		name:     name,
		opts:     opts,
		distinct: newDistinctTracker(opts.DistinctCap),
		sample:   newReservoir(opts.SampleSize, seedKey),
		patterns: newPatternTally(opts.PatternCap),
		lenMin:   -1,
	}
}

// Add consumes one cell. Unparseable payloads never abort the column; they
// simply fail the relevant parse counters and surface later as a lowered
// type conformance ratio.
func (a *ColumnAggregator) Add(v value.Value) {
	a.total++
	if v.IsNull() {
		a.nulls++
		return
	}
	if v.IsBlank() {
		a.blanks++
	}

	raw := v.Raw()
	a.distinct.Add(v.Key())
	a.sample.Add(v)
	a.patterns.Add(raw)

	if b, ok := v.AsBool(); ok {
		a.boolOK++
		if b {
			a.trues++
		} else {
			a.falses++
		}
	}
	if _, ok := v.AsInt(); ok {
		a.intOK++
	}
	if f, ok := v.AsFloat(); ok {
		a.floatOK++
		if a.numCount == 0 || f < a.numMin {
			a.numMin = f
		}
		if a.numCount == 0 || f > a.numMax {
			a.numMax = f
		}
		a.numCount++
		a.sum += f
		a.sumSq += f * f
		switch {
		case f == 0:
			a.zeroes++
		case f < 0:
			a.negative++
		default:
			a.positive++
		}
	}
	if t, ok := v.AsTime(); ok {
		if a.timeCount == 0 || t.Before(a.timeMin) {
			a.timeMin = t
		}
		if a.timeCount == 0 || t.After(a.timeMax) {
			a.timeMax = t
		}
		a.timeCount++
		a.timeOK++
	}

	n := utf8.RuneCountInString(raw)
	a.lenSum += int64(n)
	if a.lenMin < 0 || n < a.lenMin {
		a.lenMin = n
	}
	if n > a.lenMax {
		a.lenMax = n
	}
}

// AddBatch consumes one chunk of the column.
func (a *ColumnAggregator) AddBatch(values []value.Value) {
	for _, v := range values {
		a.Add(v)
	}
}

// Finalize runs after the last chunk: type inference, the type-specific
// statistics branch, pattern extraction and quality scoring. The returned
// profile is immutable.
func (a *ColumnAggregator) Finalize() *ColumnProfile {
	nonNull := a.total - a.nulls

	p := &ColumnProfile{
		Name:          a.name,
		TotalCount:    a.total,
		NullCount:     a.nulls,
		NonNullCount:  nonNull,
		BlankCount:    a.blanks,
		DistinctCount: a.distinct.Count(),
		DistinctExact: a.distinct.Exact(),
	}
	// The estimator can overshoot; a column cannot have more distinct
	// values than non-null values.
	if p.DistinctCount > nonNull {
		p.DistinctCount = nonNull
	}

	if a.total > 0 {
		p.NullPercentage = round2(float64(a.nulls) / float64(a.total) * 100)
		p.NonNullPercentage = round2(100 - float64(a.nulls)/float64(a.total)*100)
		p.BlankPercentage = round2(float64(a.blanks) / float64(a.total) * 100)
	}
	// Distinct ratio is taken over non-null values only.
	if nonNull > 0 {
		p.DistinctPercentage = round2(float64(p.DistinctCount) / float64(nonNull) * 100)
	}

	p.DataType = a.inferType()
	p.TypeConformance = a.conformance(p.DataType)

	switch p.DataType {
	case TypeInteger, TypeFloat:
		p.Numeric = a.finalizeNumeric()
	case TypeDatetime:
		p.Datetime = a.finalizeDatetime()
	case TypeBoolean:
		p.Boolean = a.finalizeBoolean()
	default:
		p.String = a.finalizeString()
		p.Patterns = a.patterns.Top(a.opts.TopPatterns, a.opts.PatternExamples, a.sample.Values())
		p.HighPatternDiversity = a.patterns.Overflowed()
	}

	scoreColumn(p, a.opts)
	return p
}

// inferType classifies the column from the sample reservoir: parse classes
// are tried in priority order and the first one reaching the threshold
// wins; a column with no qualifying class is a string.
func (a *ColumnAggregator) inferType() DataType {
	sample := a.sample.Values()
	if len(sample) == 0 {
		return TypeString
	}

	var boolN, intN, floatN, timeN int
	for _, v := range sample {
		if _, ok := v.AsBool(); ok {
			boolN++
		}
		if _, ok := v.AsInt(); ok {
			intN++
		}
		if _, ok := v.AsFloat(); ok {
			floatN++
		}
		if _, ok := v.AsTime(); ok {
			timeN++
		}
	}

	total := float64(len(sample))
	threshold := a.opts.TypeThreshold
	switch {
	case float64(boolN)/total >= threshold:
		return TypeBoolean
	case float64(intN)/total >= threshold:
		return TypeInteger
	case float64(floatN)/total >= threshold:
		return TypeFloat
	case float64(timeN)/total >= threshold:
		return TypeDatetime
	default:
		return TypeString
	}
}

// conformance re-verifies the inferred type against the full column's
// parse counters, not only the sample.
func (a *ColumnAggregator) conformance(t DataType) float64 {
	nonNull := a.total - a.nulls
	if nonNull == 0 {
		return 1
	}
	var ok int64
	switch t {
	case TypeBoolean:
		ok = a.boolOK
	case TypeInteger:
		ok = a.intOK
	case TypeFloat:
		ok = a.floatOK
	case TypeDatetime:
		ok = a.timeOK
	default:
		return 1
	}
	return float64(ok) / float64(nonNull)
}

func (a *ColumnAggregator) finalizeNumeric() *NumericStats {
	if a.numCount == 0 {
		return &NumericStats{}
	}

	mean := a.sum / float64(a.numCount)
	// Floating error can push the computed variance fractionally below
	// zero; clamp before the square root.
	variance := a.sumSq/float64(a.numCount) - mean*mean
	if variance < 0 {
		variance = 0
	}

	// Median and quartiles come from the sample reservoir; exact for
	// columns at or below reservoir capacity.
	floats := make([]float64, 0, a.sample.Len())
	for _, v := range a.sample.Values() {
		if f, ok := v.AsFloat(); ok {
			floats = append(floats, f)
		}
	}
	sort.Float64s(floats)

	return &NumericStats{
		Min:           a.numMin,
		Max:           a.numMax,
		Mean:          mean,
		Median:        quantile(floats, 0.5),
		StdDev:        math.Sqrt(variance),
		Quartile25:    quantile(floats, 0.25),
		Quartile75:    quantile(floats, 0.75),
		ZeroCount:     a.zeroes,
		NegativeCount: a.negative,
		PositiveCount: a.positive,
	}
}

func (a *ColumnAggregator) finalizeString() *StringStats {
	nonNull := a.total - a.nulls
	stats := &StringStats{
		MinLength: a.lenMin,
		MaxLength: a.lenMax,
	}
	if stats.MinLength < 0 {
		stats.MinLength = 0
	}
	if nonNull > 0 {
		stats.AvgLength = round2(float64(a.lenSum) / float64(nonNull))
	}
	stats.MostCommon = mostCommon(a.sample.Values(), a.opts.TopValues)
	return stats
}

func (a *ColumnAggregator) finalizeDatetime() *DatetimeStats {
	if a.timeCount == 0 {
		return &DatetimeStats{}
	}

	counts := make(map[string]int64)
	for _, v := range a.sample.Values() {
		if t, ok := v.AsTime(); ok {
			counts[t.Format(time.RFC3339)]++
		}
	}

	return &DatetimeStats{
		MinDate:    a.timeMin,
		MaxDate:    a.timeMax,
		RangeDays:  int(a.timeMax.Sub(a.timeMin).Hours() / 24),
		MostCommon: topKeys(counts, 5),
	}
}

func (a *ColumnAggregator) finalizeBoolean() *BooleanStats {
	stats := &BooleanStats{
		TrueCount:  a.trues,
		FalseCount: a.falses,
	}
	if total := a.trues + a.falses; total > 0 {
		stats.TruePercentage = round2(float64(a.trues) / float64(total) * 100)
		stats.FalsePercentage = round2(float64(a.falses) / float64(total) * 100)
	}
	return stats
}

// mostCommon tallies the reservoir and returns the top-k values by
// frequency; percentages are relative to the sample.
func mostCommon(sample []value.Value, k int) []ValueCount {
	if len(sample) == 0 {
		return nil
	}
	counts := make(map[string]int64, len(sample))
	for _, v := range sample {
		counts[v.Raw()]++
	}
	keys := topKeys(counts, k)
	result := make([]ValueCount, 0, len(keys))
	for _, key := range keys {
		result = append(result, ValueCount{
			Value:      key,
			Count:      counts[key],
			Percentage: round2(float64(counts[key]) / float64(len(sample)) * 100),
		})
	}
	return result
}

// topKeys returns the k highest-count keys, ties broken lexically so the
// output is stable across runs.
func topKeys(counts map[string]int64, k int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
