package model

import (
	"fmt"
	"strings"
)

// ReportType 报告类型
type ReportType string

const (
	ReportMarketAnalysis   ReportType = "market_analysis"
	ReportRisk             ReportType = "risk_report"
	ReportNewsletter       ReportType = "newsletter"
	ReportCourse           ReportType = "course"
	ReportSWOT             ReportType = "swot"
	ReportBusinessPlan     ReportType = "business_plan"
	ReportCompetitiveStudy ReportType = "competitive_study"
)

// ReportTypes 所有内置报告类型，顺序即展示顺序
var ReportTypes = []ReportType{
	ReportMarketAnalysis,
	ReportRisk,
	ReportNewsletter,
	ReportCourse,
	ReportSWOT,
	ReportBusinessPlan,
	ReportCompetitiveStudy,
}

// Tone 报告语气
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneAcademic       Tone = "academic"
	ToneInformative    Tone = "informative"
	ToneConversational Tone = "conversational"
	ToneCautious       Tone = "cautious"
	ToneOptimistic     Tone = "optimistic"
	TonePedagogical    Tone = "pedagogical"
	ToneAnalytical     Tone = "analytical"
)

// Tones 所有可选语气
var Tones = []Tone{
	ToneProfessional, ToneAcademic, ToneInformative, ToneConversational,
	ToneCautious, ToneOptimistic, TonePedagogical, ToneAnalytical,
}

// Length 报告篇幅
type Length string

const (
	LengthShort    Length = "short"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

// Band 目标字数区间（英文按词、中文按字计）
func (l Length) Band() (min, max int) {
	switch l {
	case LengthShort:
		return 300, 800
	case LengthDetailed:
		return 2000, 4500
	default:
		return 800, 2000
	}
}

// Format 导出格式
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatPPTX     Format = "pptx"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
)

// Formats 所有导出格式
var Formats = []Format{FormatMarkdown, FormatPDF, FormatPPTX, FormatDOCX, FormatHTML}

// Spec 报告需求描述，创建后不再修改
type Spec struct {
	Topic            string         `json:"topic"`
	ReportType       ReportType     `json:"report_type"`
	Tone             Tone           `json:"tone"`
	Length           Length         `json:"length"`
	Formats          []Format       `json:"output_formats"`
	BenchmarkEnabled bool           `json:"benchmark_enabled"`
	Options          map[string]any `json:"options,omitempty"`
}

// NewSpec 以默认值构造一个 Spec：市场分析 / 专业 / 中等篇幅 / markdown / 开启评估
func NewSpec(topic string) Spec {
	return Spec{
		Topic:            topic,
		ReportType:       ReportMarketAnalysis,
		Tone:             ToneProfessional,
		Length:           LengthMedium,
		Formats:          []Format{FormatMarkdown},
		BenchmarkEnabled: true,
	}
}

// Normalize 补全缺省字段并对 Formats 去重，返回副本
func (s Spec) Normalize() Spec {
	s.Topic = strings.TrimSpace(s.Topic)
	if s.ReportType == "" {
		s.ReportType = ReportMarketAnalysis
	}
	if s.Tone == "" {
		s.Tone = ToneProfessional
	}
	if s.Length == "" {
		s.Length = LengthMedium
	}

	seen := make(map[Format]bool, len(s.Formats))
	formats := make([]Format, 0, len(s.Formats))
	for _, f := range s.Formats {
		f = Format(strings.ToLower(string(f)))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		formats = []Format{FormatMarkdown}
	}
	s.Formats = formats
	return s
}

// Validate 校验 Spec 的枚举字段。未知报告类型允许，走通用模板
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if !validTone(s.Tone) {
		return fmt.Errorf("unknown tone: %q", s.Tone)
	}
	switch s.Length {
	case LengthShort, LengthMedium, LengthDetailed:
	default:
		return fmt.Errorf("unknown length: %q", s.Length)
	}
	for _, f := range s.Formats {
		if !ValidFormat(f) {
			return fmt.Errorf("unknown output format: %q", f)
		}
	}
	return nil
}

// Known 是否为内置报告类型
func (t ReportType) Known() bool {
	for _, k := range ReportTypes {
		if k == t {
			return true
		}
	}
	return false
}

// ValidFormat 是否为支持的导出格式
func ValidFormat(f Format) bool {
	for _, k := range Formats {
		if k == f {
			return true
		}
	}
	return false
}

func validTone(t Tone) bool {
	for _, k := range Tones {
		if k == t {
			return true
		}
	}
	return false
}
