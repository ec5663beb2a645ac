package export

import (
	"fmt"
	"sort"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/compiler"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// Exporter 把完成的报告渲染为某种格式，只读取报告内容
type Exporter interface {
	Render(report *dm.Report) ([]byte, error)
}

// FormatInfo 格式元数据
type FormatInfo struct {
	Name      dm.Format
	MIMEType  string
	Extension string
}

var formatInfo = map[dm.Format]FormatInfo{
	dm.FormatMarkdown: {dm.FormatMarkdown, "text/markdown; charset=utf-8", ".md"},
	dm.FormatHTML:     {dm.FormatHTML, "text/html; charset=utf-8", ".html"},
	dm.FormatPDF:      {dm.FormatPDF, "application/pdf", ".pdf"},
	dm.FormatDOCX:     {dm.FormatDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
	dm.FormatPPTX:     {dm.FormatPPTX, "application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx"},
}

// Info 返回格式元数据
func Info(f dm.Format) (FormatInfo, bool) {
	info, ok := formatInfo[f]
	return info, ok
}

// Registry 格式到渲染器的映射
type Registry struct {
	exporters map[dm.Format]Exporter
}

// NewRegistry 注册全部内置格式
func NewRegistry() *Registry {
	return &Registry{exporters: map[dm.Format]Exporter{
		dm.FormatMarkdown: Markdown{},
		dm.FormatHTML:     HTML{},
		dm.FormatPDF:      PDF{},
		dm.FormatDOCX:     DOCX{},
		dm.FormatPPTX:     PPTX{},
	}}
}

// Register 替换或新增某个格式的渲染器
func (r *Registry) Register(f dm.Format, e Exporter) {
	r.exporters[f] = e
}

// Formats 已注册的格式，按名称排序
func (r *Registry) Formats() []dm.Format {
	out := make([]dm.Format, 0, len(r.exporters))
	for f := range r.exporters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render 渲染指定格式
func (r *Registry) Render(report *dm.Report, f dm.Format) ([]byte, error) {
	if report == nil || report.Draft == nil {
		return nil, fmt.Errorf("report has no draft to export")
	}
	e, ok := r.exporters[f]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", f)
	}
	data, err := e.Render(report)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f, err)
	}
	return data, nil
}

// Markdown 原样输出
type Markdown struct{}

func (Markdown) Render(report *dm.Report) ([]byte, error) {
	return []byte(report.Draft.Markdown), nil
}

// title 优先使用正文一级标题
func title(report *dm.Report, blocks []block) string {
	if t := documentTitle(blocks); t != "" {
		return t
	}
	return compiler.Title(report.Spec)
}
