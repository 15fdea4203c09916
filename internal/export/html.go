package export

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/CharlesDeJager/dprof/internal/profile"
)

type htmlTable struct {
	Profile *profile.TableProfile
	Columns []*profile.ColumnProfile
}

type htmlReport struct {
	GeneratedAt string
	Tables      []htmlTable
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"pct":  func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
	"date": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Data Profiling Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: 0.2em; }
h2 { margin-top: 2em; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; font-size: 0.9em; }
th { background: #f0f0f0; }
.error { color: #a00; font-weight: bold; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Data Profiling Report</h1>
<p class="meta">Generated {{.GeneratedAt}}</p>
{{range .Tables}}
<h2>{{.Profile.TableName}}</h2>
{{if .Profile.Error}}
<p class="error">Profiling failed: {{.Profile.Error}}</p>
{{else}}
<p class="meta">{{.Profile.TotalRecords}} records, {{.Profile.TotalColumns}} columns, profiled {{date .Profile.ProfiledAt}}</p>
<table>
<tr><th>Column</th><th>Type</th><th>Nulls</th><th>Blanks</th><th>Distinct</th><th>Conformance</th><th>Quality</th><th>Issues</th></tr>
{{range .Columns}}
<tr>
<td>{{.Name}}</td>
<td>{{.DataType}}</td>
<td>{{.NullCount}} ({{pct .NullPercentage}})</td>
<td>{{.BlankCount}}</td>
<td>{{.DistinctCount}}{{if not .DistinctExact}} (est.){{end}}</td>
<td>{{printf "%.2f" .TypeConformance}}</td>
<td>{{printf "%.1f" .QualityScore}}</td>
<td>{{join .Issues ", "}}</td>
</tr>
{{end}}
</table>
{{end}}
{{end}}
</body>
</html>
`))

func writeHTML(w io.Writer, results map[string]*profile.TableProfile) error {
	report := htmlReport{
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	for _, name := range sortedTables(results) {
		tp := results[name]
		report.Tables = append(report.Tables, htmlTable{
			Profile: tp,
			Columns: sortedColumns(tp),
		})
	}
	return reportTemplate.Execute(w, report)
}
