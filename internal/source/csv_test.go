package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesDeJager/dprof/internal/value"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVTables(t *testing.T) {
	path := writeTempCSV(t, "id,name,age\n1,alice,30\n2,bob,25\n")
	src := NewCSVSource(path)

	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, CSVTableName, tables[0].Name)
	assert.Equal(t, []string{"id", "name", "age"}, tables[0].Columns)
	assert.Equal(t, 3, tables[0].ColumnCount)
}

func TestCSVRowCount(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n5,6\n")
	src := NewCSVSource(path)

	count, err := src.RowCount(context.Background(), CSVTableName)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = src.RowCount(context.Background(), "nope")
	assert.Error(t, err)
}

func TestCSVRead(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,x\n2,y\n3,z\n4,w\n5,v\n")
	src := NewCSVSource(path)

	reader, err := src.Read(context.Background(), CSVTableName, 0, 2)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, []string{"a", "b"}, reader.Columns())

	var rows []value.Row
	for {
		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(batch), 2)
		rows = append(rows, batch...)
	}
	require.Len(t, rows, 5)
	assert.Equal(t, "1", rows[0][0].Raw())
	assert.Equal(t, "v", rows[4][1].Raw())
}

func TestCSVReadHonorsLimit(t *testing.T) {
	path := writeTempCSV(t, "a\n1\n2\n3\n4\n5\n")
	src := NewCSVSource(path)

	reader, err := src.Read(context.Background(), CSVTableName, 3, 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.Next()
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCSVShortRecordsPadWithNulls(t *testing.T) {
	path := writeTempCSV(t, "a,b,c\n1,2\n")
	src := NewCSVSource(path)

	reader, err := src.Read(context.Background(), CSVTableName, 0, 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Len(t, batch[0], 3)
	assert.True(t, batch[0][2].IsNull())
}

func TestOpenFileDispatch(t *testing.T) {
	csvPath := writeTempCSV(t, "a\n1\n")

	src, err := OpenFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "csv", src.Kind())

	_, err = OpenFile("report.pdf")
	assert.Error(t, err)
}
