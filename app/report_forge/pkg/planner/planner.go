package planner

import (
	"context"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

// Planner 根据报告需求生成章节大纲。单次模型调用，不在本层重试
type Planner struct {
	gen         llm.Generator
	maxSections int
	log         logrus.FieldLogger
}

// New 创建 Planner，maxSections <= 0 表示不限制章节数
func New(gen llm.Generator, maxSections int, log logrus.FieldLogger) *Planner {
	return &Planner{gen: gen, maxSections: maxSections, log: log}
}

// Plan 生成大纲，解析不出任何章节时返回 PlanningError
func (p *Planner) Plan(ctx context.Context, spec dm.Spec) (dm.SectionPlan, error) {
	msgs, err := prompts.Outline(ctx, spec)
	if err != nil {
		return dm.SectionPlan{}, &dm.PlanningError{Reason: "build prompt", Err: err}
	}

	out, err := p.gen.Generate(ctx, msgs, model.WithTemperature(0))
	if err != nil {
		return dm.SectionPlan{}, &dm.PlanningError{Reason: "model call", Err: err}
	}

	plan := Parse(out)
	if plan.Len() == 0 {
		return dm.SectionPlan{}, &dm.PlanningError{Reason: "no sections in model output"}
	}
	if p.maxSections > 0 && plan.Len() > p.maxSections {
		p.log.Warnf("大纲章节数 %d 超过上限 %d，截断", plan.Len(), p.maxSections)
		plan.Sections = plan.Sections[:p.maxSections]
	}

	p.log.WithField("topic", spec.Topic).Infof("大纲生成完成，共 %d 个章节", plan.Len())
	return plan, nil
}

var (
	// 1. Heading / 1) Heading / **1. Heading**
	numberedPattern = regexp.MustCompile(`^\**\s*(\d{1,2})[.)]\**\s+\**\s*(.+?)\s*$`)
	// ## Heading
	headingPattern = regexp.MustCompile(`^#{1,3}\s+(.+?)\s*#*\s*$`)
	bulletPattern  = regexp.MustCompile(`^[-*+]\s+(.+?)\s*$`)
	markerPattern  = regexp.MustCompile(`(?i)\s*\[(no-research|research)\]\s*`)
	leadingNumber  = regexp.MustCompile(`^\d{1,2}\s*[.)]\s*`)
)

// 这些章节默认不检索
var noResearchWords = []string{
	"summary", "introduction", "conclusion", "overview", "appendix", "appendices",
	"résumé", "synthèse", "总结", "引言", "结论", "摘要",
}

// Parse 按约定解析大纲：编号行或 Markdown 标题为章节，
// " - " 或 ": " 之后为章节意图，[research]/[no-research] 标记覆盖默认检索设置。
// 同一份文本若同时出现编号行与标题，以编号行为准。
func Parse(text string) dm.SectionPlan {
	var numbered, headed []dm.SectionDescriptor
	parentIndent := 0

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		indent := indentWidth(raw)
		if len(numbered) > 0 && indent > parentIndent+1 {
			// 比上一章节缩进更深的子条目并入其意图
			if sub := subItem(line); sub != "" {
				parent := &numbered[len(numbered)-1]
				parent.Intent = joinIntent(parent.Intent, sub)
				continue
			}
		}
		if m := numberedPattern.FindStringSubmatch(line); m != nil {
			if d, ok := descriptor(m[2]); ok {
				numbered = append(numbered, d)
				parentIndent = indent
			}
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			if d, ok := descriptor(leadingNumber.ReplaceAllString(m[1], "")); ok {
				headed = append(headed, d)
			}
		}
	}

	sections := numbered
	if len(sections) == 0 {
		sections = headed
	}
	seen := make(map[string]bool, len(sections))
	out := make([]dm.SectionDescriptor, 0, len(sections))
	for _, s := range sections {
		key := strings.ToLower(s.Heading)
		if seen[key] {
			continue
		}
		seen[key] = true
		s.ID = dm.SectionID(len(out))
		out = append(out, s)
	}
	return dm.SectionPlan{Sections: out}
}

// indentWidth 前导空白宽度，制表符按 4 计
func indentWidth(raw string) int {
	w := 0
	for _, r := range raw {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

// subItem 取编号或列表子条目的正文，不是子条目返回空串
func subItem(line string) string {
	if m := numberedPattern.FindStringSubmatch(line); m != nil {
		return cleanSubItem(m[2])
	}
	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		return cleanSubItem(m[1])
	}
	return ""
}

func cleanSubItem(body string) string {
	body = markerPattern.ReplaceAllString(body, " ")
	return strings.TrimSpace(strings.Trim(body, "*_ "))
}

func joinIntent(intent, sub string) string {
	if intent == "" {
		return sub
	}
	return intent + "; " + sub
}

func descriptor(body string) (dm.SectionDescriptor, bool) {
	research := -1
	if m := markerPattern.FindStringSubmatch(body); m != nil {
		if strings.EqualFold(m[1], "research") {
			research = 1
		} else {
			research = 0
		}
		body = markerPattern.ReplaceAllString(body, " ")
	}
	body = strings.TrimSpace(strings.Trim(body, "*_ "))

	heading, intent := body, ""
	for _, sep := range []string{" - ", " – ", " — ", ": "} {
		if h, i, ok := strings.Cut(body, sep); ok {
			heading, intent = h, i
			break
		}
	}
	heading = strings.TrimSpace(strings.Trim(heading, "*_ "))
	intent = strings.TrimSpace(strings.Trim(intent, "*_ "))
	if heading == "" {
		return dm.SectionDescriptor{}, false
	}

	d := dm.SectionDescriptor{Heading: heading, Intent: intent}
	switch research {
	case 1:
		d.ResearchRequired = true
	case 0:
		d.ResearchRequired = false
	default:
		d.ResearchRequired = defaultResearch(heading)
	}
	return d, true
}

func defaultResearch(heading string) bool {
	h := strings.ToLower(heading)
	for _, w := range noResearchWords {
		if strings.Contains(h, w) {
			return false
		}
	}
	return true
}

// FromMarkdown 从已有文档的 ## 标题反推大纲，用于单独评估一份文档
func FromMarkdown(markdown string) dm.SectionPlan {
	var sections []dm.SectionDescriptor
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		heading := strings.TrimSpace(strings.TrimPrefix(line, "## "))
		if heading == "" {
			continue
		}
		sections = append(sections, dm.SectionDescriptor{
			ID:      dm.SectionID(len(sections)),
			Heading: heading,
		})
	}
	return dm.SectionPlan{Sections: sections}
}
