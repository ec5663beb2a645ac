package service

import (
	"time"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

// SubmitReportRequest benchmark_enabled 缺省为 true
type SubmitReportRequest struct {
	Topic            string         `json:"topic"`
	ReportType       string         `json:"report_type"`
	Tone             string         `json:"tone"`
	Length           string         `json:"length"`
	OutputFormats    []string       `json:"output_formats"`
	BenchmarkEnabled *bool          `json:"benchmark_enabled"`
	Options          map[string]any `json:"options"`
}

type SubmitReportReply struct {
	ID     string    `json:"id"`
	Status dm.Status `json:"status"`
}

type GetReportRequest struct {
	ID string `json:"id"`
}

type GetReportReply struct {
	ID         string             `json:"id"`
	Status     dm.Status          `json:"status"`
	Spec       dm.Spec            `json:"spec"`
	Report     *dm.Report         `json:"report,omitempty"`
	Diagnostic string             `json:"diagnostic,omitempty"`
	Progress   *workflow.Progress `json:"progress,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type ListReportsRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type ReportSummary struct {
	ID         string        `json:"id"`
	Topic      string        `json:"topic"`
	ReportType dm.ReportType `json:"report_type"`
	Status     dm.Status     `json:"status"`
	Aggregate  *float64      `json:"aggregate,omitempty"`
	Degraded   bool          `json:"degraded"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ListReportsReply struct {
	Reports []*ReportSummary `json:"reports"`
	Total   int              `json:"total"`
}

type CancelReportRequest struct {
	ID string `json:"id"`
}

type CancelReportReply struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type GetBenchmarkRequest struct {
	ID string `json:"id"`
}

type DownloadRequest struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

type ListTypesRequest struct{}

type ListTypesReply struct {
	Types   []prompts.ReportTemplate `json:"types"`
	Tones   []dm.Tone                `json:"tones"`
	Lengths []dm.Length              `json:"lengths"`
	Formats []dm.Format              `json:"formats"`
}

type GetTemplateRequest struct {
	Type string `json:"type"`
}

// toSpec 请求转为领域 Spec，未填字段由 Normalize 补全
func (r *SubmitReportRequest) toSpec() dm.Spec {
	spec := dm.Spec{
		Topic:            r.Topic,
		ReportType:       dm.ReportType(r.ReportType),
		Tone:             dm.Tone(r.Tone),
		Length:           dm.Length(r.Length),
		BenchmarkEnabled: true,
		Options:          r.Options,
	}
	for _, f := range r.OutputFormats {
		spec.Formats = append(spec.Formats, dm.Format(f))
	}
	if r.BenchmarkEnabled != nil {
		spec.BenchmarkEnabled = *r.BenchmarkEnabled
	}
	return spec
}

func toSummary(rec *dm.Record) *ReportSummary {
	s := &ReportSummary{
		ID:         rec.ID,
		Topic:      rec.Spec.Topic,
		ReportType: rec.Spec.ReportType,
		Status:     rec.Status,
		CreatedAt:  rec.CreatedAt,
	}
	if rec.Report != nil {
		s.Degraded = rec.Report.Degraded
		if b := rec.Report.Benchmark; b != nil {
			agg := b.Aggregate
			s.Aggregate = &agg
		}
	}
	return s
}
