package export

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", "PingFang SC", sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; line-height: 1.65; color: #222; }
h1 { border-bottom: 2px solid #2f6fdf; padding-bottom: .3rem; }
h2 { margin-top: 2rem; color: #2f6fdf; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: .3rem .6rem; }
pre { background: #f6f8fa; padding: .8rem; overflow-x: auto; }
footer { margin-top: 3rem; font-size: .85rem; color: #777; }
</style>
</head>
<body>
<article>
{{.Body}}
</article>
<footer>
{{- if .Score}}Quality score {{.Score}}{{if .Degraded}} (degraded){{end}} · {{end}}Generated {{.Created}}
</footer>
</body>
</html>
`

var page = template.Must(template.New("report").Parse(pageTemplate))

// HTML goldmark 渲染为独立页面
type HTML struct{}

func (HTML) Render(report *dm.Report) ([]byte, error) {
	var body bytes.Buffer
	if err := mdRenderer.Convert([]byte(report.Draft.Markdown), &body); err != nil {
		return nil, err
	}

	data := map[string]any{
		"Lang":     "en",
		"Title":    title(report, parseBlocks(report.Draft.Markdown)),
		"Body":     template.HTML(body.String()),
		"Degraded": report.Degraded,
		"Created":  report.CreatedAt.Format("2006-01-02 15:04"),
		"Score":    "",
	}
	if lang, ok := report.Spec.Options["language"].(string); ok && lang != "" {
		data["Lang"] = lang
	}
	if b := report.Benchmark; b != nil {
		data["Score"] = formatScore(b.Aggregate)
	}

	var out bytes.Buffer
	if err := page.Execute(&out, data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
