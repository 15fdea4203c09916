package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// JSONArrayTableName is the table name for a file whose top level is a
// bare array of objects.
const JSONArrayTableName = "JSON_Array"

// JSONSource reads a JSON file holding either a top-level array of objects
// or an object whose array-of-object fields each become a table. The
// document is parsed once on first use and served in chunks after that.
type JSONSource struct {
	path string

	once    sync.Once
	loadErr error
	tables  []TableInfo
	data    map[string]*jsonTable
}

type jsonTable struct {
	columns []string
	rows    []value.Row
}

func NewJSONSource(path string) *JSONSource {
	return &JSONSource{path: path}
}

func (s *JSONSource) Kind() string { return "json" }

func (s *JSONSource) Tables(ctx context.Context) ([]TableInfo, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.tables, nil
}

func (s *JSONSource) RowCount(ctx context.Context, table string) (int64, error) {
	if err := s.load(); err != nil {
		return 0, err
	}
	t, ok := s.data[table]
	if !ok {
		return 0, NewReadError(table, fmt.Errorf("table not found"))
	}
	return int64(len(t.rows)), nil
}

func (s *JSONSource) Read(ctx context.Context, table string, limit, chunkSize int) (BatchReader, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	t, ok := s.data[table]
	if !ok {
		return nil, NewReadError(table, fmt.Errorf("table not found"))
	}
	return newSliceReader(table, t.columns, t.rows, limit, chunkSize), nil
}

func (s *JSONSource) Close() error { return nil }

func (s *JSONSource) load() error {
	s.once.Do(func() {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = err
			return
		}

		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.loadErr = fmt.Errorf("invalid JSON document: %w", err)
			return
		}

		s.data = make(map[string]*jsonTable)

		switch d := doc.(type) {
		case []interface{}:
			if t := buildJSONTable(d); t != nil {
				s.data[JSONArrayTableName] = t
			}
		case map[string]interface{}:
			for key, v := range d {
				arr, ok := v.([]interface{})
				if !ok || len(arr) == 0 {
					continue
				}
				if t := buildJSONTable(arr); t != nil {
					s.data[key] = t
				}
			}
		default:
			s.loadErr = fmt.Errorf("JSON document is neither an array nor an object")
			return
		}

		names := make([]string, 0, len(s.data))
		for name := range s.data {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := s.data[name]
			s.tables = append(s.tables, TableInfo{
				Name:        name,
				Columns:     t.columns,
				ColumnCount: len(t.columns),
			})
		}
	})
	return s.loadErr
}

// buildJSONTable flattens an array of objects into columnar rows. The
// column list is the union of keys across all records, in first-seen order.
func buildJSONTable(arr []interface{}) *jsonTable {
	var columns []string
	index := make(map[string]int)

	records := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		records = append(records, obj)
		// Keys of the first record lead, later-seen keys append.
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, seen := index[k]; !seen {
				index[k] = len(columns)
				columns = append(columns, k)
			}
		}
	}

	if len(records) == 0 {
		return nil
	}

	rows := make([]value.Row, 0, len(records))
	for _, obj := range records {
		row := make(value.Row, len(columns))
		for i := range row {
			row[i] = value.Null
		}
		for k, v := range obj {
			row[index[k]] = value.FromAny(v)
		}
		rows = append(rows, row)
	}

	return &jsonTable{columns: columns, rows: rows}
}
