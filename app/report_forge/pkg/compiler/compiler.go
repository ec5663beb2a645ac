package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

// Summarizer 外部压缩能力，篇幅超出目标时使用
type Summarizer interface {
	Condense(ctx context.Context, spec dm.Spec, heading, text string, words int) (string, error)
}

// Compiler 将终态章节按大纲顺序合成 Draft，只重排已有文本，不做检索
type Compiler struct {
	tolerance  float64
	summarizer Summarizer
	log        logrus.FieldLogger
}

// New summarizer 可为 nil，此时超长只记录说明
func New(tolerance float64, summarizer Summarizer, log logrus.FieldLogger) *Compiler {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Compiler{tolerance: tolerance, summarizer: summarizer, log: log}
}

// Compile 合稿。任一大纲章节缺失或未到终态时返回 CompilationError
func (c *Compiler) Compile(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, results map[string]dm.SectionResult) (*dm.Draft, error) {
	if plan.Len() == 0 {
		return nil, &dm.CompilationError{Reason: "empty section plan"}
	}
	ordered := make([]dm.SectionResult, 0, plan.Len())
	for _, s := range plan.Sections {
		r, ok := results[s.ID]
		if !ok {
			return nil, &dm.CompilationError{Reason: fmt.Sprintf("missing result for section %s", s.ID)}
		}
		if !r.Status.Terminal() {
			return nil, &dm.CompilationError{Reason: fmt.Sprintf("section %s is %s, not terminal", s.ID, r.Status)}
		}
		ordered = append(ordered, r)
	}

	bodies := make([]string, len(ordered))
	for i, r := range ordered {
		bodies[i] = normalizeSection(r.Text, plan.Sections[i].Heading)
	}

	doc := assemble(spec, plan, bodies)
	note := ""

	minW, maxW := spec.Length.Band()
	lower := int(float64(minW) * (1 - c.tolerance))
	upper := int(float64(maxW) * (1 + c.tolerance))
	wc := WordCount(doc)

	switch {
	case wc < lower:
		note = fmt.Sprintf("内容不足：%d 字，目标 %d-%d", wc, minW, maxW)
	case wc > upper:
		if c.summarizer != nil {
			bodies = c.condense(ctx, spec, plan, ordered, bodies, maxW)
			doc = assemble(spec, plan, bodies)
			wc = WordCount(doc)
		}
		if wc > upper {
			note = fmt.Sprintf("内容超长：%d 字，目标 %d-%d", wc, minW, maxW)
		}
	}
	if note != "" {
		c.log.Warn(note)
	}

	return &dm.Draft{
		Markdown:   doc,
		Sections:   ordered,
		WordCount:  wc,
		Headings:   levelTwoHeadings(doc),
		LengthNote: note,
	}, nil
}

// condense 只压缩超过单章目标的已完成章节，失败则保留原文
func (c *Compiler) condense(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, ordered []dm.SectionResult, bodies []string, maxWords int) []string {
	target := maxWords / len(bodies)
	out := append([]string(nil), bodies...)
	for i, body := range bodies {
		if ordered[i].Status != dm.SectionDone || WordCount(body) <= target {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		heading := plan.Sections[i].Heading
		short, err := c.summarizer.Condense(ctx, spec, heading, body, target)
		if err != nil || strings.TrimSpace(short) == "" {
			c.log.Warnf("压缩章节 [%s] 失败: %v", heading, err)
			continue
		}
		out[i] = normalizeSection(short, heading)
	}
	return out
}

func assemble(spec dm.Spec, plan dm.SectionPlan, bodies []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", Title(spec))
	for i, s := range plan.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", s.Heading)
		if bodies[i] != "" {
			sb.WriteString(bodies[i])
			sb.WriteString("\n\n")
		}
	}
	return dedupeAdjacentHeadings(strings.TrimRight(sb.String(), "\n") + "\n")
}

// Title 报告标题
func Title(spec dm.Spec) string {
	if t, ok := spec.Options["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.ReplaceAll(prompts.Template(spec.ReportType).Title, "{topic}", spec.Topic)
}

// FromMarkdown 把一份已有文档包装为 Draft，用于单独评估
func FromMarkdown(markdown string) *dm.Draft {
	return &dm.Draft{
		Markdown:  markdown,
		WordCount: WordCount(markdown),
		Headings:  levelTwoHeadings(markdown),
	}
}
