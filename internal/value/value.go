package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the runtime type of a cell. Sources adapt every raw cell
// into one of these variants before it reaches the profiling engine, so the
// aggregators never have to guess at driver- or parser-specific types.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Value is a tagged cell value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Time  time.Time
}

// Row is one record's cells, ordered to match the table's column list.
type Row []Value

var (
	// Null is the shared null cell.
	Null = Value{Kind: KindNull}
)

func NewBool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NewInt(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func NewString(s string) Value  { return Value{Kind: KindString, Str: s} }
func NewTime(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether the cell carries no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsBlank reports whether the cell is an empty or whitespace-only string.
func (v Value) IsBlank() bool {
	return v.Kind == KindString && strings.TrimSpace(v.Str) == ""
}

// Raw renders the cell the way the source presented it. Used for pattern
// signatures, frequency keys and example values.
func (v Value) Raw() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindTime:
		return v.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// Key returns a canonical identity string for distinct counting. It is
// prefixed by kind so that the string "1" and the integer 1 stay distinct.
func (v Value) Key() string {
	return fmt.Sprintf("%d:%s", v.Kind, v.Raw())
}

// AsFloat converts numeric cells (and numeric-looking strings) to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsBool converts boolean cells and common boolean spellings.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindInt:
		if v.Int == 0 || v.Int == 1 {
			return v.Int == 1, true
		}
		return false, false
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "t", "yes", "y", "1":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// AsInt converts integer cells and integer-looking strings. Floats only
// convert when they carry no fractional part.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		if v.Float == float64(int64(v.Float)) {
			return int64(v.Float), true
		}
		return 0, false
	case KindString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// timeLayouts are tried in order when coercing strings to datetimes.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// AsTime converts datetime cells and recognised datetime string formats.
func (v Value) AsTime() (time.Time, bool) {
	switch v.Kind {
	case KindTime:
		return v.Time, true
	case KindString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// FromAny adapts a raw cell from a database/sql scan or a decoded JSON
// document into a tagged Value.
func FromAny(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return Null
	case bool:
		return NewBool(x)
	case int:
		return NewInt(int64(x))
	case int32:
		return NewInt(int64(x))
	case int64:
		return NewInt(x)
	case float32:
		return NewFloat(float64(x))
	case float64:
		// JSON numbers decode as float64; keep integral ones as integers.
		if x == float64(int64(x)) {
			return NewInt(int64(x))
		}
		return NewFloat(x)
	case string:
		return NewString(x)
	case []byte:
		return NewString(string(x))
	case time.Time:
		return NewTime(x)
	default:
		return NewString(fmt.Sprintf("%v", x))
	}
}

// FromString adapts a raw text cell (CSV and XLSX sources). Empty text
// stays a string so blank counting sees it; typed interpretation is the
// inferencer's job.
func FromString(s string) Value {
	return NewString(s)
}
