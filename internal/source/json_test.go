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

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestJSONTopLevelArray(t *testing.T) {
	path := writeTempJSON(t, `[
		{"id": 1, "name": "alice"},
		{"id": 2, "name": "bob", "email": "bob@example.com"}
	]`)
	src := NewJSONSource(path)

	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, JSONArrayTableName, tables[0].Name)
	// Union of keys: first record's keys lead, later keys append.
	assert.Equal(t, []string{"id", "name", "email"}, tables[0].Columns)

	count, err := src.RowCount(context.Background(), JSONArrayTableName)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestJSONMissingKeysAreNull(t *testing.T) {
	path := writeTempJSON(t, `[{"a": 1, "b": "x"}, {"a": 2}]`)
	src := NewJSONSource(path)

	reader, err := src.Read(context.Background(), JSONArrayTableName, 0, 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.True(t, batch[1][1].IsNull())
	assert.Equal(t, value.KindInt, batch[1][0].Kind)
}

func TestJSONObjectOfArrays(t *testing.T) {
	path := writeTempJSON(t, `{
		"users": [{"id": 1}, {"id": 2}],
		"orders": [{"total": 9.5}],
		"meta": {"not": "an array"}
	}`)
	src := NewJSONSource(path)

	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, "users", tables[1].Name)

	_, err = src.Read(context.Background(), "meta", 0, 10)
	assert.Error(t, err)
}

func TestJSONReadHonorsLimit(t *testing.T) {
	path := writeTempJSON(t, `[{"a": 1}, {"a": 2}, {"a": 3}]`)
	src := NewJSONSource(path)

	reader, err := src.Read(context.Background(), JSONArrayTableName, 2, 10)
	require.NoError(t, err)
	defer reader.Close()

	batch, err := reader.Next()
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestJSONInvalidDocument(t *testing.T) {
	path := writeTempJSON(t, `"just a string"`)
	src := NewJSONSource(path)

	_, err := src.Tables(context.Background())
	assert.Error(t, err)
}
