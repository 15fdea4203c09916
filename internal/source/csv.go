package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/CharlesDeJager/dprof/internal/value"
)

// CSVTableName is the single table a CSV file exposes.
const CSVTableName = "CSV_Data"

// CSVSource reads a comma-separated file with a header row. The file is
// streamed, never loaded wholesale.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Kind() string { return "csv" }

func (s *CSVSource) Tables(ctx context.Context) ([]TableInfo, error) {
	header, err := s.header()
	if err != nil {
		return nil, err
	}
	return []TableInfo{{Name: CSVTableName, Columns: header, ColumnCount: len(header)}}, nil
}

func (s *CSVSource) RowCount(ctx context.Context, table string) (int64, error) {
	if table != CSVTableName {
		return 0, NewReadError(table, os.ErrNotExist)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return 0, NewReadError(table, err)
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReader(f))
	reader.FieldsPerRecord = -1

	var count int64 = -1 // header row doesn't count
	for {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, NewReadError(table, err)
		}
		count++
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

func (s *CSVSource) Read(ctx context.Context, table string, limit, chunkSize int) (BatchReader, error) {
	if table != CSVTableName {
		return nil, NewReadError(table, os.ErrNotExist)
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, NewReadError(table, err)
	}

	reader := csv.NewReader(bufio.NewReader(f))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		f.Close()
		return nil, NewReadError(table, err)
	}

	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &csvReader{
		table:     table,
		file:      f,
		reader:    reader,
		columns:   header,
		limit:     limit,
		chunkSize: chunkSize,
	}, nil
}

func (s *CSVSource) Close() error { return nil }

func (s *CSVSource) header() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReader(f))
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	return header, nil
}

type csvReader struct {
	table     string
	file      *os.File
	reader    *csv.Reader
	columns   []string
	limit     int
	chunkSize int
	served    int
	done      bool
}

func (r *csvReader) Columns() []string { return r.columns }

func (r *csvReader) Next() ([]value.Row, error) {
	if r.done {
		return nil, io.EOF
	}

	batch := make([]value.Row, 0, r.chunkSize)
	for len(batch) < r.chunkSize {
		if r.limit > 0 && r.served >= r.limit {
			r.done = true
			break
		}
		record, err := r.reader.Read()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			r.done = true
			return nil, NewReadError(r.table, err)
		}

		row := make(value.Row, len(r.columns))
		for i := range r.columns {
			if i < len(record) {
				row[i] = value.FromString(record[i])
			} else {
				// Short records pad out with nulls.
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

func (r *csvReader) Close() error { return r.file.Close() }
