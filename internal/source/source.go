package source

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// TableInfo describes one table or sheet exposed by a data source.
type TableInfo struct {
	Name        string   `json:"name"`
	Columns     []string `json:"columns"`
	ColumnCount int      `json:"column_count"`
}

// ReadError marks a source-level failure while streaming one table. The
// table profiler catches it and records a table-level error instead of
// failing the whole task.
type ReadError struct {
	Table string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read table %s: %v", e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// NewReadError wraps err as a read failure scoped to table.
func NewReadError(table string, err error) *ReadError {
	return &ReadError{Table: table, Err: err}
}

// BatchReader streams one table's rows in bounded batches. It is forward-only;
// sources may back it with a cursor that cannot be rewound. Next returns
// io.EOF once the table is exhausted or the configured record limit has been
// reached, and a *ReadError on source failure.
type BatchReader interface {
	Columns() []string
	Next() ([]value.Row, error)
	Close() error
}

// DataSource is the collaborator contract the chunked reader consumes:
// table enumeration with column lists, per-table row counts, and batched
// row streaming under a record limit.
type DataSource interface {
	Kind() string
	Tables(ctx context.Context) ([]TableInfo, error)
	RowCount(ctx context.Context, table string) (int64, error)
	Read(ctx context.Context, table string, limit, chunkSize int) (BatchReader, error)
	Close() error
}

// OpenFile opens a file-backed data source, choosing the implementation
// from the file extension.
func OpenFile(path string) (DataSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path), nil
	case ".json":
		return NewJSONSource(path), nil
	case ".xlsx", ".xls":
		return NewXLSXSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

// sliceReader serves pre-materialised rows in chunkSize batches. Used by
// sources that have to parse the whole document up front (JSON).
type sliceReader struct {
	table     string
	columns   []string
	rows      []value.Row
	pos       int
	chunkSize int
}

func newSliceReader(table string, columns []string, rows []value.Row, limit, chunkSize int) *sliceReader {
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &sliceReader{table: table, columns: columns, rows: rows, chunkSize: chunkSize}
}

func (r *sliceReader) Columns() []string { return r.columns }

func (r *sliceReader) Next() ([]value.Row, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	end := r.pos + r.chunkSize
	if end > len(r.rows) {
		end = len(r.rows)
	}
	batch := r.rows[r.pos:end]
	r.pos = end
	return batch, nil
}

func (r *sliceReader) Close() error { return nil }
