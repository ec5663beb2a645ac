package prompts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

const outlineSystem = `You are {{.role}}. Your mission is to plan a complete, factual {{.report_type}} on the subject: {{.topic}}.

The report should contain the following sections:
{{.structure}}

Tone: {{.tone}}
Length: {{.length}} ({{.min_words}}-{{.max_words}} words overall)
Style: {{.style}}

{{.guidance}}

Output format:
- One section per line, numbered: "1. Heading - one-line intent"
- Append [no-research] to a section that needs no web research
- Output nothing but the numbered list`

const outlineUser = `Generate a structured plan for a "{{.report_type}}" report on: {{.topic}}{{.extra}}`

const sectionSystem = `You are an expert writer. Your task is to write the section "{{.heading}}" of a {{.report_type}} report on: {{.topic}}.

Section intent:
{{.intent}}

Tone: {{.tone}}
Target length: about {{.words}} words
Style: {{.style}}

Guidelines:
- Keep the content factual and rely on the research notes when provided
- Use ### sub-headings if the section needs structure; do not repeat the section heading
- Prefer precise, quantitative information over generalities
- Cite sources inline where appropriate`

const sectionUser = `Research notes:
{{.research}}
{{.feedback}}
Write the section now in Markdown.`

const evaluateSystem = `You are a professional content quality evaluator specialised in {{.report_type}} documents.
Evaluate the report below on: {{.topic}}.

Quality criteria:
{{.criteria}}
{{.exemplar}}
Expected tone: {{.tone}}

Reply with JSON only:
{
  "clarity": 0.0-1.0,
  "tone_adherence": 0.0-1.0,
  "detected_tone": one of [{{.tones}}],
  "section_scores": {"<section id>": 0.0-1.0},
  "recommendations": ["..."]
}`

const evaluateUser = `Sections (id and heading):
{{.sections}}

Report:
{{.report}}`

const condenseSystem = `You are an editor. Condense the section "{{.heading}}" to about {{.words}} words, keeping the facts, numbers and {{.tone}} tone. Return Markdown only, without the section heading.`

const condenseUser = `{{.text}}`

var (
	outlineTpl  = prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(outlineSystem), schema.UserMessage(outlineUser))
	sectionTpl  = prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(sectionSystem), schema.UserMessage(sectionUser))
	evaluateTpl = prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(evaluateSystem), schema.UserMessage(evaluateUser))
	condenseTpl = prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(condenseSystem), schema.UserMessage(condenseUser))
)

// resolve 由模板 ID 还原报告结构与语气风格
func resolve(id string) (ReportTemplate, toneStyle) {
	typ, style, _ := strings.Cut(id, "/")
	tpl := Template(model.ReportType(typ))
	if _, ok := styleGuidance[toneStyle(style)]; !ok {
		style = string(styleFormal)
	}
	return tpl, toneStyle(style)
}

// Outline 大纲提示词
func Outline(ctx context.Context, spec model.Spec) ([]*schema.Message, error) {
	tpl, style := resolve(TemplateID(spec.ReportType, spec.Tone))

	var structure strings.Builder
	for i, s := range tpl.Sections {
		fmt.Fprintf(&structure, "%d. %s - %s\n", i+1, s.Heading, s.Intent)
	}
	minW, maxW := spec.Length.Band()

	msgs, err := outlineTpl.Format(ctx, map[string]any{
		"role":        tpl.Role,
		"report_type": humanize(string(spec.ReportType)),
		"topic":       spec.Topic,
		"structure":   strings.TrimRight(structure.String(), "\n"),
		"tone":        string(spec.Tone),
		"length":      string(spec.Length),
		"min_words":   minW,
		"max_words":   maxW,
		"style":       styleGuidance[style],
		"guidance":    tpl.Guidance,
		"extra":       optionsText(spec.Options),
	})
	if err != nil {
		return nil, fmt.Errorf("format outline prompt: %w", err)
	}
	return tag(msgs, map[string]any{llm.TaskKey: llm.TaskOutline, "topic": spec.Topic}), nil
}

// Section 章节撰写提示词。feedback 非空时为重写
func Section(ctx context.Context, spec model.Spec, sec model.SectionDescriptor, sectionCount int, snippets []model.Snippet, feedback string) ([]*schema.Message, error) {
	_, style := resolve(TemplateID(spec.ReportType, spec.Tone))

	research := "(none, write from the heading and topic)"
	if len(snippets) > 0 {
		var sb strings.Builder
		for i, s := range snippets {
			fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, s.Source, s.Text)
		}
		research = strings.TrimSpace(sb.String())
	}
	if feedback != "" {
		feedback = "\nReviewer feedback on the previous version (address it):\n" + feedback + "\n"
	}

	msgs, err := sectionTpl.Format(ctx, map[string]any{
		"heading":     sec.Heading,
		"report_type": humanize(string(spec.ReportType)),
		"topic":       spec.Topic,
		"intent":      sec.Intent,
		"tone":        string(spec.Tone),
		"words":       SectionWords(spec.Length, sectionCount),
		"style":       styleGuidance[style],
		"research":    research,
		"feedback":    feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("format section prompt: %w", err)
	}
	return tag(msgs, map[string]any{llm.TaskKey: llm.TaskSection, "topic": spec.Topic, "heading": sec.Heading}), nil
}

// Evaluate 评估提示词
func Evaluate(ctx context.Context, spec model.Spec, plan model.SectionPlan, markdown, exemplar string) ([]*schema.Message, error) {
	var criteria strings.Builder
	for _, c := range Criteria(spec.ReportType) {
		fmt.Fprintf(&criteria, "- %s\n", c)
	}
	var sections strings.Builder
	for _, s := range plan.Sections {
		fmt.Fprintf(&sections, "[%s] %s\n", s.ID, s.Heading)
	}
	if exemplar != "" {
		exemplar = "\nReference exemplar of a high quality report of this type:\n" + exemplar + "\n"
	}
	tones := make([]string, 0, len(model.Tones))
	for _, t := range model.Tones {
		tones = append(tones, string(t))
	}

	msgs, err := evaluateTpl.Format(ctx, map[string]any{
		"report_type": humanize(string(spec.ReportType)),
		"topic":       spec.Topic,
		"criteria":    strings.TrimRight(criteria.String(), "\n"),
		"exemplar":    exemplar,
		"tone":        string(spec.Tone),
		"tones":       strings.Join(tones, ", "),
		"sections":    strings.TrimRight(sections.String(), "\n"),
		"report":      markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("format evaluate prompt: %w", err)
	}
	return tag(msgs, map[string]any{llm.TaskKey: llm.TaskEvaluate, "tone": string(spec.Tone)}), nil
}

// Condense 压缩章节提示词
func Condense(ctx context.Context, spec model.Spec, heading, text string, words int) ([]*schema.Message, error) {
	msgs, err := condenseTpl.Format(ctx, map[string]any{
		"heading": heading,
		"words":   words,
		"tone":    string(spec.Tone),
		"text":    text,
	})
	if err != nil {
		return nil, fmt.Errorf("format condense prompt: %w", err)
	}
	return tag(msgs, map[string]any{llm.TaskKey: llm.TaskCondense, "heading": heading}), nil
}

// SectionWords 每个章节的目标字数
func SectionWords(l model.Length, sections int) int {
	if sections <= 0 {
		sections = 1
	}
	minW, maxW := l.Band()
	w := (minW + maxW) / 2 / sections
	if w < 80 {
		w = 80
	}
	return w
}

func tag(msgs []*schema.Message, extra map[string]any) []*schema.Message {
	for _, m := range msgs {
		if m.Extra == nil {
			m.Extra = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			m.Extra[k] = v
		}
	}
	return msgs
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func optionsText(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString("\nSpecific options:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n- %s: %v", k, opts[k])
	}
	return sb.String()
}
