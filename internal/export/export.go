package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/CharlesDeJager/dprof/internal/profile"
)

// Format selects an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// ContentType returns the MIME type served for this format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Extension returns the file extension, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Write renders the profiling results to w in the chosen format. The caller
// filters the results map down to the requested tables beforehand.
func Write(w io.Writer, f Format, results map[string]*profile.TableProfile) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatXLSX:
		return writeXLSX(w, results)
	case FormatHTML:
		return writeHTML(w, results)
	default:
		return fmt.Errorf("unsupported export format: %q", f)
	}
}

func writeJSON(w io.Writer, results map[string]*profile.TableProfile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// sortedTables returns the table names in stable order so exports are
// reproducible regardless of completion order.
func sortedTables(results map[string]*profile.TableProfile) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedColumns orders a table's columns by name.
func sortedColumns(tp *profile.TableProfile) []*profile.ColumnProfile {
	cols := make([]*profile.ColumnProfile, 0, len(tp.Columns))
	for _, cp := range tp.Columns {
		cols = append(cols, cp)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols
}
