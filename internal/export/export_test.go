package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/CharlesDeJager/dprof/internal/profile"
)

func sampleResults() map[string]*profile.TableProfile {
	return map[string]*profile.TableProfile{
		"users": {
			TableName:    "users",
			TotalRecords: 100,
			TotalColumns: 2,
			ProfiledAt:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			Columns: map[string]*profile.ColumnProfile{
				"id": {
					Name:            "id",
					DataType:        profile.TypeInteger,
					TotalCount:      100,
					NonNullCount:    100,
					DistinctCount:   100,
					DistinctExact:   true,
					TypeConformance: 1,
					Numeric:         &profile.NumericStats{Min: 1, Max: 100, Mean: 50.5, Median: 50.5},
					QualityScore:    100,
					Issues:          []string{},
				},
				"email": {
					Name:            "email",
					DataType:        profile.TypeString,
					TotalCount:      100,
					NullCount:       60,
					NonNullCount:    40,
					NullPercentage:  60,
					DistinctCount:   40,
					DistinctExact:   true,
					TypeConformance: 1,
					QualityScore:    54,
					Issues:          []string{profile.IssueHighNulls},
				},
			},
		},
		"broken": {
			TableName:  "broken",
			ProfiledAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			Error:      "connection reset",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "XLSX", " html "} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, "format %q", s)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleResults()))

	var decoded map[string]*profile.TableProfile
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Contains(t, decoded, "users")
	assert.Equal(t, int64(100), decoded["users"].TotalRecords)
	assert.Equal(t, "connection reset", decoded["broken"].Error)

	// Field names follow the API contract.
	assert.Contains(t, buf.String(), `"data_quality_score"`)
	assert.Contains(t, buf.String(), `"null_percentage"`)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatHTML, sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "<html>")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "high_nulls")
	assert.Contains(t, out, "Profiling failed: connection reset")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	// Failed tables get a summary row but no detail sheet.
	assert.Contains(t, sheets, "users")
	assert.NotContains(t, sheets, "broken")

	name, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "broken", name) // summary rows are sorted by table name

	header, err := f.GetCellValue("users", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Column", header)

	col, err := f.GetCellValue("users", "A2")
	require.NoError(t, err)
	assert.Equal(t, "email", col) // columns sorted by name
}

func TestSheetNameSanitisation(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a_b_c", sheetName("a/b:c", used))
	assert.Equal(t, "a_b_c_2", sheetName("a[b]c", used))

	long := sheetName("this_table_name_is_far_longer_than_excel_allows", used)
	assert.LessOrEqual(t, len([]rune(long)), 31)
}
