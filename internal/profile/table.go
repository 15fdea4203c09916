package profile

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/source"
	"github.com/CharlesDeJager/dprof/internal/value"
)

// ProfileTable drives one table end-to-end: it opens a chunked reader
// bound to the table and its record limit, streams every batch into one
// aggregator per column, and finalizes everything into a TableProfile.
//
// Source failures, at open or mid-stream, are absorbed here: the table
// is returned with only its error field set (no column profiles), so a
// broken table never aborts the rest of the profiling task.
func ProfileTable(ctx context.Context, src source.DataSource, table string, limit, chunkSize int, opts Options) *TableProfile {
	start := time.Now()

	reader, err := src.Read(ctx, table, limit, chunkSize)
	if err != nil {
		log.Logger.Warnf("Table %s failed to open: %v", table, err)
		return &TableProfile{
			TableName:  table,
			ProfiledAt: time.Now().UTC(),
			Error:      err.Error(),
		}
	}
	defer reader.Close()

	columns := reader.Columns()
	aggregators := make([]*ColumnAggregator, len(columns))
	for i, name := range columns {
		aggregators[i] = NewColumnAggregator(name, table+"\x00"+name, opts)
	}

	var rows int64
	for {
		if err := ctx.Err(); err != nil {
			return &TableProfile{
				TableName:  table,
				ProfiledAt: time.Now().UTC(),
				Error:      fmt.Sprintf("profiling aborted: %v", err),
			}
		}

		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Logger.Warnf("Table %s failed mid-stream after %d rows: %v", table, rows, err)
			return &TableProfile{
				TableName:  table,
				ProfiledAt: time.Now().UTC(),
				Error:      err.Error(),
			}
		}

		for _, row := range batch {
			for i := range aggregators {
				var v value.Value
				if i < len(row) {
					v = row[i]
				} else {
					v = value.Null
				}
				aggregators[i].Add(v)
			}
		}
		rows += int64(len(batch))
	}

	profile := &TableProfile{
		TableName:    table,
		TotalRecords: rows,
		TotalColumns: len(columns),
		ProfiledAt:   time.Now().UTC(),
		Columns:      make(map[string]*ColumnProfile, len(columns)),
	}
	for i, agg := range aggregators {
		profile.Columns[columns[i]] = agg.Finalize()
	}

	log.Logger.Debugf("Profiled table %s: %d rows, %d columns in %v", table, rows, len(columns), time.Since(start))
	return profile
}
