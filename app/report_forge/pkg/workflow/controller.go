package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/benchmark"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/metrics"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/worker"
)

// ErrCancelled 调用方主动取消
var ErrCancelled = errors.New("report generation cancelled")

type Planner interface {
	Plan(ctx context.Context, spec dm.Spec) (dm.SectionPlan, error)
}

type Drafter interface {
	Run(ctx context.Context, job worker.Job) map[string]dm.SectionResult
}

type Compiler interface {
	Compile(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, results map[string]dm.SectionResult) (*dm.Draft, error)
}

type Scorer interface {
	Evaluate(ctx context.Context, spec dm.Spec, plan dm.SectionPlan, draft *dm.Draft, exemplar string) *dm.BenchmarkReport
}

// ExemplarSource 参考范例来源，可为 nil
type ExemplarSource interface {
	Exemplar(t dm.ReportType) string
}

// Components 控制器依赖的各阶段组件
type Components struct {
	Planner   Planner
	Drafter   Drafter
	Compiler  Compiler
	Scorer    Scorer
	Exemplars ExemplarSource
	Metrics   *metrics.Metrics
}

// Options 流程控制参数
type Options struct {
	PlanningRetries  int
	MaxRedraftCycles int
	RedraftSections  int
	Budget           time.Duration // 总时长预算，0 表示不限
	RetryBackoff     time.Duration
}

// Controller 单次报告生成的状态机，每个请求一个实例
type Controller struct {
	id   string
	spec dm.Spec
	c    Components
	opts Options
	log  logrus.FieldLogger

	onProgress  func(Progress)
	progressMu  sync.Mutex
	lastPercent int

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	cancelled atomic.Bool

	plan        dm.SectionPlan
	results     map[string]dm.SectionResult
	draft       *dm.Draft
	bench       *dm.BenchmarkReport
	cycles      int
	degraded    bool
	diagnostics []string
}

// NewController 创建控制器，spec 会被规范化
func NewController(id string, spec dm.Spec, c Components, opts Options, log logrus.FieldLogger) *Controller {
	if opts.RedraftSections <= 0 {
		opts.RedraftSections = 1
	}
	if opts.MaxRedraftCycles < 0 {
		opts.MaxRedraftCycles = 0
	}
	if opts.PlanningRetries < 0 {
		opts.PlanningRetries = 0
	}
	return &Controller{
		id:    id,
		spec:  spec.Normalize(),
		c:     c,
		opts:  opts,
		log:   log.WithField("report_id", id),
		state: StatePending,
	}
}

// OnProgress 设置进度回调，需在 Run 之前调用。回调串行执行
func (c *Controller) OnProgress(fn func(Progress)) { c.onProgress = fn }

func (c *Controller) ID() string { return c.id }

func (c *Controller) Spec() dm.Spec { return c.spec }

// State 当前状态
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel 协作式取消，进行中的章节不再发起新的外部调用
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run 执行完整流程。失败时返回 nil 报告与带诊断的错误
func (c *Controller) Run(parent context.Context) (*dm.Report, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	if c.cancelled.Load() {
		cancel()
	}
	if c.opts.Budget > 0 {
		var cancelBudget context.CancelFunc
		ctx, cancelBudget = context.WithTimeout(ctx, c.opts.Budget)
		defer cancelBudget()
	}

	c.log.Infof("开始生成报告: %s (%s, %s, %s)", c.spec.Topic, c.spec.ReportType, c.spec.Tone, c.spec.Length)

	plan, err := c.planning(ctx)
	if err != nil {
		return nil, c.fail(err)
	}
	c.plan = plan

	c.transition(StateDrafting, fmt.Sprintf("撰写 %d 个章节", plan.Len()))
	c.results = c.drafting(ctx, worker.Job{Spec: c.spec, Plan: plan}, statePercent[StateDrafting], statePercent[StateCompiling])
	if err := c.interrupted(ctx); err != nil {
		return nil, c.fail(err)
	}

	c.transition(StateCompiling, "合稿")
	draft, err := c.compile(ctx, c.results)
	if err != nil {
		return nil, c.fail(err)
	}
	c.draft = draft

	if c.spec.BenchmarkEnabled {
		if err := c.benchmarkLoop(ctx); err != nil {
			return nil, c.fail(err)
		}
	}
	return c.finalize(), nil
}

func (c *Controller) planning(ctx context.Context) (dm.SectionPlan, error) {
	c.transition(StatePlanning, "生成大纲")
	start := time.Now()
	defer func() { c.c.Metrics.ObserveStage(string(StatePlanning), time.Since(start)) }()

	var (
		plan     dm.SectionPlan
		attempts int
	)
	op := func() error {
		if err := c.interrupted(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		p, err := c.c.Planner.Plan(ctx, c.spec)
		if err != nil {
			if llm.IsFatal(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		plan = p
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.RetryBackoff
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.opts.PlanningRetries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		c.log.Warnf("大纲第 %d 次生成失败，%v 后重试: %v", attempts, wait, err)
	})
	if err != nil {
		// 取消与超时优先于规划错误
		if ie := c.interrupted(ctx); ie != nil {
			return dm.SectionPlan{}, ie
		}
		if !dm.IsPlanningError(err) {
			err = &dm.PlanningError{Reason: "planner", Err: err}
		}
		return dm.SectionPlan{}, err
	}
	return plan, nil
}

// drafting 执行章节，进度在 from 到 to 之间随完成数增长
func (c *Controller) drafting(ctx context.Context, job worker.Job, from, to int) map[string]dm.SectionResult {
	total := len(job.Only)
	if total == 0 {
		total = job.Plan.Len()
	}
	var finished atomic.Int32
	job.OnResult = func(r dm.SectionResult) {
		n := int(finished.Add(1))
		c.c.Metrics.ObserveSection(string(r.Status))
		pct := from
		if total > 0 {
			pct = from + (to-from)*n/total
		}
		c.emit(StateDrafting, pct, fmt.Sprintf("章节 %d/%d 完成", n, total))
	}

	start := time.Now()
	results := c.c.Drafter.Run(ctx, job)
	c.c.Metrics.ObserveStage(string(StateDrafting), time.Since(start))
	return results
}

func (c *Controller) compile(ctx context.Context, results map[string]dm.SectionResult) (*dm.Draft, error) {
	start := time.Now()
	defer func() { c.c.Metrics.ObserveStage(string(StateCompiling), time.Since(start)) }()
	return c.c.Compiler.Compile(ctx, c.spec, c.plan, results)
}

// benchmarkLoop 评估与有限轮次的局部重写。只有主动取消会返回错误，
// 预算耗尽或轮次用尽时保留最近一次合稿并标记为降级
func (c *Controller) benchmarkLoop(ctx context.Context) error {
	exemplar := c.exemplar()
	for {
		c.transition(StateBenchmarking, "质量评估")
		start := time.Now()
		bench := c.c.Scorer.Evaluate(ctx, c.spec, c.plan, c.draft, exemplar)
		c.c.Metrics.ObserveStage(string(StateBenchmarking), time.Since(start))

		if err := c.interrupted(ctx); err != nil {
			if errors.Is(err, ErrCancelled) {
				return err
			}
			if c.bench == nil {
				c.bench = bench
			}
			c.degrade(err.Error())
			return nil
		}
		c.bench = bench
		c.c.Metrics.ObserveBenchmark(bench.Aggregate)
		c.log.Infof("评估得分 %.3f (阈值 %.2f)", bench.Aggregate, bench.Threshold)

		if bench.MeetsThreshold {
			return nil
		}
		if bench.Err != "" {
			c.diagnostics = append(c.diagnostics, bench.Err)
		}
		if c.cycles >= c.opts.MaxRedraftCycles {
			if c.opts.MaxRedraftCycles > 0 {
				c.degrade((&dm.BudgetExceededError{Limit: "redraft_cycles"}).Error())
			} else {
				c.degrade("benchmark threshold not met")
			}
			return nil
		}

		c.cycles++
		ids := benchmark.LowestSections(bench, c.plan, c.opts.RedraftSections)
		c.transition(StateRedrafting, fmt.Sprintf("第 %d 轮重写: %v", c.cycles, ids))
		c.transition(StateDrafting, fmt.Sprintf("重写 %d 个章节", len(ids)))
		fresh := c.drafting(ctx, worker.Job{
			Spec:     c.spec,
			Plan:     c.plan,
			Only:     ids,
			Feedback: benchmark.Feedback(bench, ids),
		}, statePercent[StateRedrafting], statePercent[StateFinalizing])

		if err := c.interrupted(ctx); err != nil {
			if errors.Is(err, ErrCancelled) {
				return err
			}
			c.degrade(err.Error())
			return nil
		}

		merged := mergeResults(c.results, fresh)
		c.transition(StateCompiling, "重新合稿")
		draft, err := c.compile(ctx, merged)
		if err != nil {
			c.degrade(err.Error())
			return nil
		}
		c.results = merged
		c.draft = draft
	}
}

// mergeResults 新结果仅在成功或旧结果已失败时替换
func mergeResults(old, fresh map[string]dm.SectionResult) map[string]dm.SectionResult {
	out := make(map[string]dm.SectionResult, len(old))
	for id, r := range old {
		out[id] = r
	}
	for id, r := range fresh {
		prev, ok := old[id]
		if !ok || r.Status == dm.SectionDone || prev.Status == dm.SectionFailed {
			out[id] = r
		}
	}
	return out
}

func (c *Controller) exemplar() string {
	if s, ok := c.spec.Options["exemplar"].(string); ok && s != "" {
		return s
	}
	if c.c.Exemplars == nil {
		return ""
	}
	return c.c.Exemplars.Exemplar(c.spec.ReportType)
}

func (c *Controller) finalize() *dm.Report {
	c.transition(StateFinalizing, "整理报告")
	if n := c.draft.FailedSections(); n > 0 {
		c.degrade(fmt.Sprintf("%d of %d sections failed", n, c.plan.Len()))
	}
	if c.draft.LengthNote != "" {
		c.diagnostics = append(c.diagnostics, c.draft.LengthNote)
	}

	report := &dm.Report{
		ID:          c.id,
		Spec:        c.spec,
		Plan:        c.plan,
		Draft:       c.draft,
		Benchmark:   c.bench,
		CreatedAt:   time.Now(),
		Cycles:      c.cycles,
		Degraded:    c.degraded,
		Diagnostics: c.diagnostics,
	}

	outcome := "done"
	if c.degraded {
		outcome = "degraded"
	}
	c.c.Metrics.ObserveRun(outcome)
	c.c.Metrics.ObserveCycles(c.cycles)
	c.transition(StateDone, "完成")
	c.log.Infof("报告生成完成: %d 字，重写 %d 轮，降级=%v", c.draft.WordCount, c.cycles, c.degraded)
	return report
}

func (c *Controller) degrade(reason string) {
	c.degraded = true
	c.diagnostics = append(c.diagnostics, reason)
	c.log.Warnf("报告降级: %s", reason)
}

func (c *Controller) fail(err error) error {
	outcome := "failed"
	if errors.Is(err, ErrCancelled) {
		outcome = "cancelled"
	}
	c.c.Metrics.ObserveRun(outcome)
	c.transition(StateFailed, err.Error())
	c.log.Errorf("报告生成失败: %v", err)
	return err
}

// interrupted 主动取消或总预算耗尽时返回对应错误
func (c *Controller) interrupted(ctx context.Context) error {
	if c.cancelled.Load() {
		return ErrCancelled
	}
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &dm.BudgetExceededError{Limit: "wall_clock", Err: err}
	default:
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
}

func (c *Controller) transition(next State, msg string) {
	c.mu.Lock()
	prev := c.state
	if !prev.CanTransition(next) {
		c.log.Warnf("非法状态迁移 %s -> %s", prev, next)
	}
	c.state = next
	c.mu.Unlock()

	pct := statePercent[next]
	c.log.Debugf("状态 %s -> %s: %s", prev, next, msg)
	c.emit(next, pct, msg)
}

func (c *Controller) emit(state State, pct int, msg string) {
	if c.onProgress == nil {
		return
	}
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	// 重写轮次回到 Drafting/Compiling 时百分比不回退
	if pct < c.lastPercent {
		pct = c.lastPercent
	}
	c.lastPercent = pct
	c.onProgress(Progress{ReportID: c.id, State: state, Percent: pct, Message: msg})
}
