package benchmark

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/compiler"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

// Engine 质量评估。纯评分，不修改 Draft
type Engine struct {
	gen       llm.Generator
	threshold float64
	log       logrus.FieldLogger
}

// New 创建评估引擎
func New(gen llm.Generator, threshold float64, log logrus.FieldLogger) *Engine {
	return &Engine{gen: gen, threshold: threshold, log: log}
}

// Threshold 达标阈值
func (e *Engine) Threshold() float64 { return e.threshold }

// evaluation 评估模型返回的 JSON
type evaluation struct {
	Clarity         float64            `json:"clarity"`
	ToneAdherence   float64            `json:"tone_adherence"`
	DetectedTone    string             `json:"detected_tone"`
	SectionScores   map[string]float64 `json:"section_scores"`
	Recommendations []string           `json:"recommendations"`
}

const maxRecommendations = 10

// Evaluate 对完整 Draft 评分。评估模型失败时记录错误，LLM 相关项记 0，结果视为未达标
func (e *Engine) Evaluate(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, draft *dm.Draft, exemplar string) *dm.BenchmarkReport {
	report := &dm.BenchmarkReport{Threshold: e.threshold}

	heuristic := sectionHeuristics(plan, draft)
	scores := map[string]float64{
		MetricStructure: structureScore(plan, draft),
		MetricLength:    lengthScore(spec.Length, draft.WordCount),
		MetricGrounding: mean(heuristic),
	}

	ev, err := e.ask(ctx, spec, plan, draft.Markdown, exemplar)
	if err != nil {
		berr := &dm.BenchmarkError{Err: err}
		e.log.Warnf("评估失败，按未达标处理: %v", berr)
		report.Err = berr.Error()
		scores[MetricClarity] = 0
		scores[MetricTone] = 0
	} else {
		scores[MetricClarity] = ev.Clarity
		toneMatch := 0.0
		if strings.EqualFold(strings.TrimSpace(ev.DetectedTone), string(spec.Tone)) {
			toneMatch = 1
		}
		scores[MetricTone] = 0.5*ev.ToneAdherence + 0.5*toneMatch
		report.Recommendations = ev.Recommendations
		if len(report.Recommendations) > maxRecommendations {
			report.Recommendations = report.Recommendations[:maxRecommendations]
		}
	}

	withExemplar := strings.TrimSpace(exemplar) != ""
	if withExemplar {
		exHeadings := compiler.FromMarkdown(exemplar).Headings
		scores[MetricSimilarity] = 0.7*cosine(draft.Markdown, exemplar) + 0.3*headingOverlap(draft.Headings, exHeadings)
	}

	table := defaultWeights
	if withExemplar {
		table = exemplarWeights
	}
	var sum, total float64
	for _, w := range table {
		s := clamp(scores[w.metric])
		report.Metrics = append(report.Metrics, dm.MetricScore{Name: w.metric, Score: s, Weight: w.value})
		sum += s * w.value
		total += w.value
	}
	if total > 0 {
		report.Aggregate = clamp(sum / total)
	}
	report.MeetsThreshold = report.Err == "" && report.Aggregate >= e.threshold
	report.SectionScores = sectionScores(plan, draft, heuristic, ev)
	return report
}

func (e *Engine) ask(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, markdown, exemplar string) (*evaluation, error) {
	if e.gen == nil {
		return nil, fmt.Errorf("no evaluator configured")
	}
	msgs, err := prompts.Evaluate(ctx, spec, plan, markdown, exemplar)
	if err != nil {
		return nil, err
	}

	// 输出格式不对时再问一次
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.gen.Generate(ctx, msgs, model.WithTemperature(0))
		if err != nil {
			return nil, err
		}
		var ev evaluation
		if err := llm.DecodeJSON(out, &ev); err != nil {
			lastErr = err
			continue
		}
		ev.rescale()
		return &ev, nil
	}
	return nil, lastErr
}

// structureScore 大纲章节在文档中出现的比例与成功章节比例各占一半
func structureScore(plan dm.SectionPlan, draft *dm.Draft) float64 {
	if plan.Len() == 0 {
		return 0
	}
	present := make(map[string]bool, len(draft.Headings))
	for _, h := range draft.Headings {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}
	found := 0
	for _, s := range plan.Sections {
		if present[strings.ToLower(strings.TrimSpace(s.Heading))] {
			found++
		}
	}
	coverage := float64(found) / float64(plan.Len())

	completed := 1.0
	if len(draft.Sections) > 0 {
		completed = float64(len(draft.Sections)-draft.FailedSections()) / float64(len(draft.Sections))
	}
	return 0.5*coverage + 0.5*completed
}

// lengthScore 在目标区间内为 1，区间外按比例衰减
func lengthScore(l dm.Length, words int) float64 {
	minW, maxW := l.Band()
	switch {
	case words <= 0:
		return 0
	case words < minW:
		return float64(words) / float64(minW)
	case words > maxW:
		return float64(maxW) / float64(words)
	default:
		return 1
	}
}

var citationPattern = regexp.MustCompile(`https?://|\[\d+\]|\(source|source:`)

// sectionHeuristics 每个章节的依据分：有检索资料 1，需检索却无资料 0.5，失败 0。
// 没有执行记录的文档（单独评估）按正文是否有引用判断
func sectionHeuristics(plan dm.SectionPlan, draft *dm.Draft) map[string]float64 {
	byID := make(map[string]dm.SectionResult, len(draft.Sections))
	for _, r := range draft.Sections {
		byID[r.SectionID] = r
	}
	texts := splitSections(draft.Markdown)

	out := make(map[string]float64, plan.Len())
	for _, s := range plan.Sections {
		r, ok := byID[s.ID]
		switch {
		case !ok:
			if citationPattern.MatchString(strings.ToLower(texts[strings.ToLower(s.Heading)])) {
				out[s.ID] = 1
			} else {
				out[s.ID] = 0.5
			}
		case r.Status == dm.SectionFailed:
			out[s.ID] = 0
		case !s.ResearchRequired || len(r.Snippets) > 0:
			out[s.ID] = 1
		default:
			out[s.ID] = 0.5
		}
	}
	return out
}

// sectionScores 章节得分：优先用评估模型给出的分数，失败章节恒为 0
func sectionScores(plan dm.SectionPlan, draft *dm.Draft, heuristic map[string]float64, ev *evaluation) map[string]float64 {
	failed := make(map[string]bool)
	for _, r := range draft.Sections {
		if r.Status == dm.SectionFailed {
			failed[r.SectionID] = true
		}
	}
	out := make(map[string]float64, plan.Len())
	for _, s := range plan.Sections {
		score := heuristic[s.ID] * 0.5
		if ev != nil {
			if v, ok := ev.SectionScores[s.ID]; ok {
				score = v
			} else {
				score = ev.Clarity
			}
		}
		if failed[s.ID] {
			score = 0
		}
		out[s.ID] = clamp(score)
	}
	return out
}

// LowestSections 需要重写的章节：低于阈值的章节按分数升序（同分按大纲顺序），最多 k 个；
// 没有低于阈值的章节时返回得分最低的一个
func LowestSections(report *dm.BenchmarkReport, plan dm.SectionPlan, k int) []string {
	if report == nil || plan.Len() == 0 || k <= 0 {
		return nil
	}
	type scored struct {
		id    string
		idx   int
		score float64
	}
	all := make([]scored, 0, plan.Len())
	for i, s := range plan.Sections {
		all = append(all, scored{id: s.ID, idx: i, score: report.SectionScores[s.ID]})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		return all[i].idx < all[j].idx
	})

	var out []string
	for _, s := range all {
		if s.score < report.Threshold && len(out) < k {
			out = append(out, s.id)
		}
	}
	if len(out) == 0 {
		out = append(out, all[0].id)
	}
	return out
}

// Feedback 为待重写章节生成评审意见
func Feedback(report *dm.BenchmarkReport, ids []string) map[string]string {
	recs := strings.Join(report.Recommendations, "\n- ")
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		msg := fmt.Sprintf("This section scored %.2f against a threshold of %.2f.", report.SectionScores[id], report.Threshold)
		if recs != "" {
			msg += "\nRecommendations:\n- " + recs
		}
		out[id] = msg
	}
	return out
}

// rescale 评估模型有时按 0-10 或 0-100 打分。整体指标与章节分数各自按组内最大值判断分制，
// 同组内的 1 不会被误读为满分
func (ev *evaluation) rescale() {
	s := scaleOf(ev.Clarity, ev.ToneAdherence)
	ev.Clarity = clamp(ev.Clarity / s)
	ev.ToneAdherence = clamp(ev.ToneAdherence / s)

	vals := make([]float64, 0, len(ev.SectionScores))
	for _, v := range ev.SectionScores {
		vals = append(vals, v)
	}
	s = scaleOf(vals...)
	for id, v := range ev.SectionScores {
		ev.SectionScores[id] = clamp(v / s)
	}
}

func scaleOf(vals ...float64) float64 {
	var top float64
	for _, v := range vals {
		top = math.Max(top, v)
	}
	switch {
	case top > 10:
		return 100
	case top > 1:
		return 10
	default:
		return 1
	}
}

func mean(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var s float64
	for _, v := range m {
		s += v
	}
	return s / float64(len(m))
}

// splitSections 按二级标题切分正文，key 为小写标题
func splitSections(markdown string) map[string]string {
	out := make(map[string]string)
	var cur string
	var sb strings.Builder
	flush := func() {
		if cur != "" {
			out[cur] = sb.String()
		}
		sb.Reset()
	}
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			cur = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	flush()
	return out
}
