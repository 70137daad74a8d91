package console

import (
	"html/template"
	"io"
)

// consoleTemplate renders the query console as a single HTML page
var consoleTemplate = template.Must(template.New("console").Parse(`<!DOCTYPE html>
<html>
<head>
<title>tipline query console</title>
<style>
body { font-family: monospace; margin: 1.5em; background: #fafafa; color: #222; }
h1 { font-size: 1.2em; }
table { border-collapse: collapse; width: 100%; background: #fff; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #eee; }
td.num { text-align: right; white-space: nowrap; }
tr.err td { background: #fde8e8; }
tr.hit td.hit { color: #087f23; }
.summary { margin: 0.8em 0; }
.summary span { margin-right: 1.5em; }
</style>
</head>
<body>
<h1>Query console</h1>
<div class="summary">
<span>queries: {{.Summary.TotalQueries}}</span>
<span>total: {{printf "%.2f" .Summary.TotalDurationMs}} ms</span>
<span>cache hits: {{.Summary.CacheHits}}</span>
<span>errors: {{.Summary.Errors}}</span>
</div>
<table>
<tr><th>#</th><th>at</th><th>sql</th><th>ms</th><th>rows</th><th>cache</th><th>error</th></tr>
{{range .Entries}}
<tr class="{{if .Error}}err{{else if .CacheHit}}hit{{end}}">
<td class="num">{{.Seq}}</td>
<td>{{.At.Format "15:04:05.000"}}</td>
<td>{{.SQL}}</td>
<td class="num">{{printf "%.2f" .DurationMs}}</td>
<td class="num">{{.Rows}}</td>
<td class="hit">{{if .CacheHit}}hit{{end}}</td>
<td>{{.Error}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

// RenderHTML writes the console page for the current snapshot
func (p *Profiler) RenderHTML(w io.Writer) error {
	entries, summary := p.Snapshot()
	return consoleTemplate.Execute(w, struct {
		Entries []QueryProfile
		Summary Summary
	}{entries, summary})
}
