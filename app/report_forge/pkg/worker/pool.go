package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search"
)

// Options 章节执行参数
type Options struct {
	MaxConcurrency int           // 同时执行的章节数上限
	Retries        int           // 单个章节失败后的最大重试次数
	Backoff        time.Duration // 首次重试的退避时间
	MaxSnippets    int           // 每个章节最多使用的资料片段数
	SearchTimeout  time.Duration // 单次检索超时
}

// Pool 章节并发执行池。每个章节独立检索与撰写，失败只影响自身
type Pool struct {
	gen      llm.Generator
	searcher search.Searcher
	opts     Options
	log      logrus.FieldLogger
}

// New 创建执行池
func New(gen llm.Generator, searcher search.Searcher, opts Options, log logrus.FieldLogger) *Pool {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if searcher == nil {
		searcher = search.None{}
	}
	return &Pool{gen: gen, searcher: searcher, opts: opts, log: log}
}

// Job 一次执行请求
type Job struct {
	Spec dm.Spec
	Plan dm.SectionPlan
	// Only 非空时只执行这些章节（重写），为空执行全部
	Only []string
	// Feedback 重写时给到模型的评审意见，按章节 ID
	Feedback map[string]string
	// OnResult 每个章节到达终态时回调，可能并发调用
	OnResult func(dm.SectionResult)
}

// Run 执行章节并等待全部到达终态。返回值按章节 ID 索引，且每个结果都是 done 或 failed
func (p *Pool) Run(ctx context.Context, job Job) map[string]dm.SectionResult {
	targets := job.Plan.Sections
	if len(job.Only) > 0 {
		want := make(map[string]bool, len(job.Only))
		for _, id := range job.Only {
			want[id] = true
		}
		targets = make([]dm.SectionDescriptor, 0, len(job.Only))
		for _, s := range job.Plan.Sections {
			if want[s.ID] {
				targets = append(targets, s)
			}
		}
	}

	// 每个任务只写自己的下标，无需加锁
	results := make([]dm.SectionResult, len(targets))

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrency)
	for i, sec := range targets {
		g.Go(func() error {
			results[i] = p.runSection(ctx, job, sec)
			if job.OnResult != nil {
				job.OnResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]dm.SectionResult, len(results))
	for _, r := range results {
		out[r.SectionID] = r
	}
	return out
}

func (p *Pool) runSection(ctx context.Context, job Job, sec dm.SectionDescriptor) dm.SectionResult {
	log := p.log.WithField("section", sec.ID)
	res := dm.SectionResult{SectionID: sec.ID, Status: dm.SectionPending}

	if err := ctx.Err(); err != nil {
		return fail(res, sec, &dm.SectionError{SectionID: sec.ID, Stage: "start", Err: err})
	}
	_ = res.Advance(dm.SectionRunning)

	var (
		attempts int
		snippets []dm.Snippet
		text     string
	)
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++

		snips, err := p.research(ctx, job.Spec, sec)
		if err != nil {
			return retryable(ctx, &dm.SectionError{SectionID: sec.ID, Stage: "search", Err: err})
		}
		snippets = snips

		msgs, err := prompts.Section(ctx, job.Spec, sec, job.Plan.Len(), snips, job.Feedback[sec.ID])
		if err != nil {
			return backoff.Permanent(&dm.SectionError{SectionID: sec.ID, Stage: "prompt", Err: err})
		}
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		out, err := p.gen.Generate(ctx, msgs)
		if err != nil {
			return retryable(ctx, &dm.SectionError{SectionID: sec.ID, Stage: "draft", Err: err})
		}
		out = cleanDraft(out, sec.Heading)
		if out == "" {
			return &dm.SectionError{SectionID: sec.ID, Stage: "draft", Err: errors.New("empty model output")}
		}
		text = out
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.opts.Backoff
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.opts.Retries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		log.Warnf("章节 [%s] 第 %d 次尝试失败，%v 后重试: %v", sec.Heading, attempts, wait, err)
	})

	if attempts > 0 {
		res.Retries = attempts - 1
	}
	res.Snippets = snippets
	if err != nil {
		log.Errorf("章节 [%s] 失败: %v", sec.Heading, err)
		return fail(res, sec, err)
	}

	res.Text = text
	_ = res.Advance(dm.SectionDone)
	log.Debugf("章节 [%s] 完成，资料 %d 条，重试 %d 次", sec.Heading, len(snippets), res.Retries)
	return res
}

func (p *Pool) research(ctx context.Context, spec dm.Spec, sec dm.SectionDescriptor) ([]dm.Snippet, error) {
	if !sec.ResearchRequired {
		return nil, nil
	}
	callCtx := ctx
	if p.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.SearchTimeout)
		defer cancel()
	}

	resp, err := p.searcher.Search(callCtx, &search.Request{
		Query:      Query(sec, spec),
		MaxResults: p.opts.MaxSnippets,
	})
	if err != nil {
		return nil, err
	}
	// 空结果不是错误，仅依据标题与主题撰写
	return search.Snippets(resp, p.opts.MaxSnippets), nil
}

// Query 检索词：章节标题 + 主题
func Query(sec dm.SectionDescriptor, spec dm.Spec) string {
	return strings.TrimSpace(sec.Heading + " " + spec.Topic)
}

// retryable fatal 错误或已取消时不再重试
func retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil || llm.IsFatal(err) {
		return backoff.Permanent(err)
	}
	return err
}

func fail(res dm.SectionResult, sec dm.SectionDescriptor, err error) dm.SectionResult {
	reason := "generation failed"
	switch {
	case errors.Is(err, context.Canceled):
		reason = "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "time budget exceeded"
	case err != nil:
		reason = err.Error()
	}
	if res.Status == dm.SectionPending || res.Status == dm.SectionRunning {
		_ = res.Advance(dm.SectionFailed)
	}
	res.Text = dm.PlaceholderText(sec.Heading, reason)
	res.Err = fmt.Sprint(err)
	return res
}

// cleanDraft 去掉模型自行加上的代码块包裹和重复的章节标题
func cleanDraft(out, heading string) string {
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```markdown")
		out = strings.TrimPrefix(out, "```md")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(out, "```")
		out = strings.TrimSpace(out)
	}
	first, rest, _ := strings.Cut(out, "\n")
	if t := strings.TrimSpace(strings.TrimLeft(first, "#")); strings.HasPrefix(first, "#") && strings.EqualFold(t, heading) {
		out = strings.TrimSpace(rest)
	}
	return out
}
