package source

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/CharlesDeJager/dprof/internal/value"
)

func writeTempXLSX(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "People"))
	rows := [][]interface{}{
		{"id", "name", "score"},
		{1, "alice", 9.5},
		{2, "bob", nil},
		{3, "carol", 7.0},
	}
	for i, row := range rows {
		for j, cell := range row {
			if cell == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("People", ref, cell))
		}
	}

	_, err := f.NewSheet("Empty")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXTables(t *testing.T) {
	src := NewXLSXSource(writeTempXLSX(t))

	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	byName := map[string]TableInfo{}
	for _, info := range tables {
		byName[info.Name] = info
	}
	require.Contains(t, byName, "People")
	assert.Equal(t, []string{"id", "name", "score"}, byName["People"].Columns)
	assert.Equal(t, 0, byName["Empty"].ColumnCount)
}

func TestXLSXRowCount(t *testing.T) {
	src := NewXLSXSource(writeTempXLSX(t))

	count, err := src.RowCount(context.Background(), "People")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = src.RowCount(context.Background(), "NoSuchSheet")
	assert.Error(t, err)
}

func TestXLSXRead(t *testing.T) {
	src := NewXLSXSource(writeTempXLSX(t))

	reader, err := src.Read(context.Background(), "People", 0, 2)
	require.NoError(t, err)
	defer reader.Close()

	var rows []value.Row
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, batch...)
	}
	require.Len(t, rows, 3)

	assert.Equal(t, "alice", rows[0][1].Raw())
	// The empty score cell comes through as null, not as an empty string.
	assert.True(t, rows[1][2].IsNull())
}

func TestXLSXReadHonorsLimit(t *testing.T) {
	src := NewXLSXSource(writeTempXLSX(t))

	reader, err := src.Read(context.Background(), "People", 1, 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.Next()
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}
