package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/benchmark"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/compiler"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/metrics"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/planner"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search/factory"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/worker"
)

// Engine 持有各阶段组件，为每个请求创建 Controller
type Engine struct {
	components Components
	opts       Options
	scorer     *benchmark.Engine
	log        logrus.FieldLogger
}

// NewEngine 由已组装好的组件创建引擎
func NewEngine(c Components, opts Options, log logrus.FieldLogger) *Engine {
	e := &Engine{components: c, opts: opts, log: log}
	if s, ok := c.Scorer.(*benchmark.Engine); ok {
		e.scorer = s
	}
	return e
}

// NewEngineFromConfig 按配置组装模型、检索、执行池、合稿与评估组件。
// 返回的 cleanup 用于停止范例目录监听
func NewEngineFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger) (*Engine, func(), error) {
	gen, err := llm.NewGenerator(ctx, &cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	limiter := llm.NewLimiter(&cfg.Concurrency)
	if cfg.LLM.Provider == "mock" {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	guarded := llm.NewGuard(gen, limiter, cfg.Workflow.PerCallTimeout())

	searcher, err := factory.NewSearcher(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	library := benchmark.NewLibrary(cfg.Benchmark.ExemplarDir, log)
	if err := library.Load(); err != nil {
		log.Warnf("范例库加载失败: %v", err)
	}
	if cfg.Benchmark.Watch {
		if err := library.Watch(ctx); err != nil {
			log.Warnf("范例目录监听失败: %v", err)
		}
	}

	pool := worker.New(guarded, searcher, worker.Options{
		MaxConcurrency: cfg.Concurrency.MaxSections,
		Retries:        cfg.Workflow.SectionRetryLimit(),
		Backoff:        cfg.Workflow.Backoff(),
		MaxSnippets:    cfg.Search.MaxSnippets,
		SearchTimeout:  cfg.Workflow.PerCallTimeout(),
	}, log)

	components := Components{
		Planner:   planner.New(guarded, 0, log),
		Drafter:   pool,
		Compiler:  compiler.New(cfg.Compiler.LengthTolerance, compiler.NewLLMSummarizer(guarded), log),
		Scorer:    benchmark.New(guarded, cfg.Benchmark.Threshold, log),
		Exemplars: library,
		Metrics:   m,
	}
	opts := Options{
		PlanningRetries:  cfg.Workflow.PlanningRetries,
		MaxRedraftCycles: cfg.Workflow.RedraftCycleLimit(),
		RedraftSections:  cfg.Workflow.RedraftSections,
		Budget:           cfg.Workflow.Budget(),
		RetryBackoff:     cfg.Workflow.Backoff(),
	}
	cleanup := func() {
		if err := library.Close(); err != nil {
			log.Warnf("关闭范例监听失败: %v", err)
		}
	}
	return NewEngine(components, opts, log), cleanup, nil
}

// NewController 为一次请求创建控制器
func (e *Engine) NewController(spec dm.Spec) *Controller {
	return NewController(dm.NewReportID(), spec, e.components, e.opts, e.log)
}

// Generate 同步生成一份报告
func (e *Engine) Generate(ctx context.Context, spec dm.Spec, onProgress func(Progress)) (*dm.Report, error) {
	ctrl := e.NewController(spec)
	ctrl.OnProgress(onProgress)
	return ctrl.Run(ctx)
}

// Evaluate 单独评估一份已有的 Markdown 文档，大纲由其二级标题推导
func (e *Engine) Evaluate(ctx context.Context, spec dm.Spec, markdown string) (*dm.BenchmarkReport, error) {
	spec = spec.Normalize()
	plan := planner.FromMarkdown(markdown)
	if plan.Len() == 0 {
		return nil, fmt.Errorf("document has no level-two headings to evaluate")
	}
	exemplar, _ := spec.Options["exemplar"].(string)
	if exemplar == "" && e.components.Exemplars != nil {
		exemplar = e.components.Exemplars.Exemplar(spec.ReportType)
	}
	return e.components.Scorer.Evaluate(ctx, spec, plan, compiler.FromMarkdown(markdown), exemplar), nil
}

// Threshold 当前评估阈值
func (e *Engine) Threshold() float64 {
	if e.scorer == nil {
		return 0
	}
	return e.scorer.Threshold()
}
