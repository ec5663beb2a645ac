package model

import (
	"time"

	"github.com/google/uuid"
)

// Draft 合稿结果
type Draft struct {
	Markdown   string          `json:"markdown"`
	Sections   []SectionResult `json:"sections"`
	WordCount  int             `json:"word_count"`
	Headings   []string        `json:"headings"`
	LengthNote string          `json:"length_note,omitempty"`
}

// FailedSections 失败章节数
func (d *Draft) FailedSections() int {
	n := 0
	for _, s := range d.Sections {
		if s.Status == SectionFailed {
			n++
		}
	}
	return n
}

// MetricScore 单项评分，取值 [0,1]
type MetricScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// BenchmarkReport 质量评估结果，不会修改 Draft
type BenchmarkReport struct {
	Metrics         []MetricScore      `json:"metrics"`
	Aggregate       float64            `json:"aggregate"`
	Threshold       float64            `json:"threshold"`
	MeetsThreshold  bool               `json:"meets_threshold"`
	SectionScores   map[string]float64 `json:"section_scores,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Err             string             `json:"error,omitempty"`
}

// Metric 按名称查找评分项
func (b *BenchmarkReport) Metric(name string) (MetricScore, bool) {
	for _, m := range b.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricScore{}, false
}

// Report 最终产物
type Report struct {
	ID          string           `json:"id"`
	Spec        Spec             `json:"spec"`
	Plan        SectionPlan      `json:"plan"`
	Draft       *Draft           `json:"draft"`
	Benchmark   *BenchmarkReport `json:"benchmark,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Cycles      int              `json:"cycles"`
	Degraded    bool             `json:"degraded"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

// NewReportID 生成报告 ID
func NewReportID() string {
	return uuid.NewString()
}

// Status 对外暴露的粗粒度状态
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record 一次生成请求的存储记录
type Record struct {
	ID         string    `json:"id"`
	Spec       Spec      `json:"spec"`
	Status     Status    `json:"status"`
	Report     *Report   `json:"report,omitempty"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
