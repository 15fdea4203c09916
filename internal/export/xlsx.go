package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/CharlesDeJager/dprof/internal/profile"
)

// writeXLSX renders a workbook with one summary sheet plus one sheet of
// per-column statistics for every table that produced results.
func writeXLSX(w io.Writer, results map[string]*profile.TableProfile) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	summaryHeader := []interface{}{"Table", "Records", "Columns", "Profiled At", "Error"}
	if err := setRow(f, summary, 1, summaryHeader); err != nil {
		return err
	}

	names := sortedTables(results)
	used := map[string]bool{strings.ToLower(summary): true}

	for i, name := range names {
		tp := results[name]

		row := []interface{}{
			tp.TableName,
			tp.TotalRecords,
			tp.TotalColumns,
			tp.ProfiledAt.Format("2006-01-02 15:04:05"),
			tp.Error,
		}
		if err := setRow(f, summary, i+2, row); err != nil {
			return err
		}

		if tp.Error != "" {
			continue
		}

		sheet := sheetName(name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet for table %s: %w", name, err)
		}
		if err := writeTableSheet(f, sheet, tp); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeTableSheet(f *excelize.File, sheet string, tp *profile.TableProfile) error {
	header := []interface{}{
		"Column", "Type", "Total", "Nulls", "Null %", "Blanks",
		"Distinct", "Conformance", "Min", "Max", "Mean", "Median",
		"Quality Score", "Issues",
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, cp := range sortedColumns(tp) {
		var min, max, mean, median interface{}
		if cp.Numeric != nil {
			min, max = cp.Numeric.Min, cp.Numeric.Max
			mean, median = cp.Numeric.Mean, cp.Numeric.Median
		} else if cp.Datetime != nil {
			min = cp.Datetime.MinDate.Format("2006-01-02")
			max = cp.Datetime.MaxDate.Format("2006-01-02")
		}

		row := []interface{}{
			cp.Name,
			string(cp.DataType),
			cp.TotalCount,
			cp.NullCount,
			cp.NullPercentage,
			cp.BlankCount,
			cp.DistinctCount,
			cp.TypeConformance,
			min,
			max,
			mean,
			median,
			cp.QualityScore,
			strings.Join(cp.Issues, ", "),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// sheetName maps a table name onto a legal, unique worksheet name. Excel
// forbids a handful of characters and caps names at 31 runes.
func sheetName(table string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, table)
	if clean == "" {
		clean = "Table"
	}

	runes := []rune(clean)
	if len(runes) > 31 {
		clean = string(runes[:31])
	}

	name := clean
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		runes := []rune(clean)
		if len(runes)+len(suffix) > 31 {
			runes = runes[:31-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
