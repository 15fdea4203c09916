package source

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// XLSXSource reads an Excel workbook, one table per sheet, using the
// excelize streaming row iterator. Each Read opens its own workbook handle
// so concurrent table profilers never share an iterator.
type XLSXSource struct {
	path string
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{path: path}
}

func (s *XLSXSource) Kind() string { return "xlsx" }

func (s *XLSXSource) Tables(ctx context.Context) ([]TableInfo, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var tables []TableInfo
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		var header []string
		if rows.Next() {
			header, err = rows.Columns()
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read header of sheet %s: %w", sheet, err)
			}
		}
		rows.Close()
		tables = append(tables, TableInfo{
			Name:        sheet,
			Columns:     header,
			ColumnCount: len(header),
		})
	}
	return tables, nil
}

func (s *XLSXSource) RowCount(ctx context.Context, table string) (int64, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return 0, NewReadError(table, err)
	}
	defer f.Close()

	rows, err := f.Rows(table)
	if err != nil {
		return 0, NewReadError(table, err)
	}
	defer rows.Close()

	var count int64 = -1 // header row doesn't count
	for rows.Next() {
		count++
	}
	if err := rows.Error(); err != nil {
		return 0, NewReadError(table, err)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

func (s *XLSXSource) Read(ctx context.Context, table string, limit, chunkSize int) (BatchReader, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, NewReadError(table, err)
	}

	rows, err := f.Rows(table)
	if err != nil {
		f.Close()
		return nil, NewReadError(table, err)
	}

	var header []string
	if rows.Next() {
		header, err = rows.Columns()
		if err != nil {
			rows.Close()
			f.Close()
			return nil, NewReadError(table, err)
		}
	}

	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &xlsxReader{
		table:     table,
		file:      f,
		rows:      rows,
		columns:   header,
		limit:     limit,
		chunkSize: chunkSize,
	}, nil
}

func (s *XLSXSource) Close() error { return nil }

type xlsxReader struct {
	table     string
	file      *excelize.File
	rows      *excelize.Rows
	columns   []string
	limit     int
	chunkSize int
	served    int
	done      bool
}

func (r *xlsxReader) Columns() []string { return r.columns }

func (r *xlsxReader) Next() ([]value.Row, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]value.Row, 0, r.chunkSize)
	for len(batch) < r.chunkSize {
		if r.limit > 0 && r.served >= r.limit {
			r.done = true
			break
		}
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Error(); err != nil {
				return nil, NewReadError(r.table, err)
			}
			break
		}
		cells, err := r.rows.Columns()
		if err != nil {
			r.done = true
			return nil, NewReadError(r.table, err)
		}

		row := make(value.Row, len(r.columns))
		for i := range r.columns {
			if i < len(cells) && cells[i] != "" {
				row[i] = value.FromString(cells[i])
			} else {
				// excelize yields "" for empty cells; treat them as nulls.
				row[i] = value.Null
			}
		}
		batch = append(batch, row)
		r.served++
	}

	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

func (r *xlsxReader) Close() error {
	r.rows.Close()
	return r.file.Close()
}
