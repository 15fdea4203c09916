package profile

import (
	"math"
	"time"
)

// DataType is the inferred semantic type of a column.
type DataType string

const (
	TypeBoolean  DataType = "boolean"
	TypeInteger  DataType = "integer"
	TypeFloat    DataType = "float"
	TypeDatetime DataType = "datetime"
	TypeString   DataType = "string"
)

// Issue tags attached to a ColumnProfile by the issue detector.
const (
	IssueHighNulls    = "high_nulls"
	IssueHighBlanks   = "high_blanks"
	IssueLowDiversity = "low_diversity"
	IssueTypeMismatch = "type_mismatch"
)

// Pattern is one string format signature with its frequency and a few
// literal examples drawn from the sample reservoir.
type Pattern struct {
	Signature  string   `json:"pattern"`
	Count      int64    `json:"count"`
	Percentage float64  `json:"percentage"`
	Examples   []string `json:"examples"`
}

// ValueCount is one entry of a most-common-values list.
type ValueCount struct {
	Value      string  `json:"value"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// NumericStats holds the finalized statistics of a numeric column.
type NumericStats struct {
	Min           float64 `json:"min_value"`
	Max           float64 `json:"max_value"`
	Mean          float64 `json:"average"`
	Median        float64 `json:"median"`
	StdDev        float64 `json:"standard_deviation"`
	Quartile25    float64 `json:"quartile_25"`
	Quartile75    float64 `json:"quartile_75"`
	ZeroCount     int64   `json:"zero_count"`
	NegativeCount int64   `json:"negative_count"`
	PositiveCount int64   `json:"positive_count"`
}

// StringStats holds the finalized statistics of a string column.
type StringStats struct {
	AvgLength  float64      `json:"avg_length"`
	MinLength  int          `json:"min_length"`
	MaxLength  int          `json:"max_length"`
	MostCommon []ValueCount `json:"most_common_values"`
}

// DatetimeStats holds the finalized statistics of a date/time column.
type DatetimeStats struct {
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
	RangeDays  int       `json:"date_range_days"`
	MostCommon []string  `json:"most_common_dates"`
}

// BooleanStats holds the finalized statistics of a boolean column.
type BooleanStats struct {
	TrueCount       int64   `json:"true_count"`
	FalseCount      int64   `json:"false_count"`
	TruePercentage  float64 `json:"true_percentage"`
	FalsePercentage float64 `json:"false_percentage"`
}

// ColumnProfile is the complete statistical and quality summary for one
// column. It is immutable once the aggregator has finalized it.
type ColumnProfile struct {
	Name     string   `json:"column_name"`
	DataType DataType `json:"data_type"`

	TotalCount    int64 `json:"total_values"`
	NullCount     int64 `json:"null_count"`
	NonNullCount  int64 `json:"non_null_count"`
	BlankCount    int64 `json:"blank_count"`
	DistinctCount int64 `json:"distinct_count"`
	// DistinctExact is false when the count came from the estimator
	// after the bounded exact tracker overflowed.
	DistinctExact bool `json:"distinct_exact"`

	NullPercentage     float64 `json:"null_percentage"`
	NonNullPercentage  float64 `json:"non_null_percentage"`
	BlankPercentage    float64 `json:"blank_percentage"`
	DistinctPercentage float64 `json:"distinct_percentage"`

	// TypeConformance is the fraction of non-null values that parse as
	// the inferred type, measured over the full column.
	TypeConformance float64 `json:"type_conformance"`

	Numeric  *NumericStats  `json:"numeric_stats,omitempty"`
	String   *StringStats   `json:"string_stats,omitempty"`
	Datetime *DatetimeStats `json:"datetime_stats,omitempty"`
	Boolean  *BooleanStats  `json:"boolean_stats,omitempty"`

	Patterns             []Pattern `json:"patterns,omitempty"`
	HighPatternDiversity bool      `json:"high_pattern_diversity,omitempty"`

	QualityScore float64  `json:"data_quality_score"`
	Issues       []string `json:"potential_issues"`
}

// TableProfile is the profiling result for one table. A table whose source
// failed outright carries only the Error field and no column profiles.
type TableProfile struct {
	TableName    string                    `json:"table_name"`
	TotalRecords int64                     `json:"total_records"`
	TotalColumns int                       `json:"total_columns"`
	ProfiledAt   time.Time                 `json:"profiled_at"`
	Columns      map[string]*ColumnProfile `json:"columns,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

// Options carries every engine tunable. Zero fields are replaced by the
// defaults below, so an Options{} literal in tests behaves sensibly.
type Options struct {
	SampleSize      int
	DistinctCap     int
	PatternCap      int
	TopPatterns     int
	PatternExamples int
	TopValues       int

	TypeThreshold float64

	HighNullThreshold     float64
	HighBlankThreshold    float64
	LowDiversityThreshold float64

	CompletenessWeight float64
	ValidityWeight     float64
	DiversityWeight    float64
}

// DefaultOptions returns the engine defaults from the settings contract.
func DefaultOptions() Options {
	return Options{
		SampleSize:            1000,
		DistinctCap:           10000,
		PatternCap:            1000,
		TopPatterns:           10,
		PatternExamples:       5,
		TopValues:             10,
		TypeThreshold:         0.95,
		HighNullThreshold:     50,
		HighBlankThreshold:    20,
		LowDiversityThreshold: 5,
		CompletenessWeight:    0.4,
		ValidityWeight:        0.35,
		DiversityWeight:       0.25,
	}
}

// normalized fills zero fields with defaults.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.DistinctCap <= 0 {
		o.DistinctCap = d.DistinctCap
	}
	if o.PatternCap <= 0 {
		o.PatternCap = d.PatternCap
	}
	if o.TopPatterns <= 0 {
		o.TopPatterns = d.TopPatterns
	}
	if o.PatternExamples <= 0 {
		o.PatternExamples = d.PatternExamples
	}
	if o.TopValues <= 0 {
		o.TopValues = d.TopValues
	}
	if o.TypeThreshold <= 0 {
		o.TypeThreshold = d.TypeThreshold
	}
	if o.HighNullThreshold <= 0 {
		o.HighNullThreshold = d.HighNullThreshold
	}
	if o.HighBlankThreshold <= 0 {
		o.HighBlankThreshold = d.HighBlankThreshold
	}
	if o.LowDiversityThreshold <= 0 {
		o.LowDiversityThreshold = d.LowDiversityThreshold
	}
	if o.CompletenessWeight <= 0 && o.ValidityWeight <= 0 && o.DiversityWeight <= 0 {
		o.CompletenessWeight = d.CompletenessWeight
		o.ValidityWeight = d.ValidityWeight
		o.DiversityWeight = d.DiversityWeight
	}
	return o
}

// round2 keeps reported percentages to two decimals.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
