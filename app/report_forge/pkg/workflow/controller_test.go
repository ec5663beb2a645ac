package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/benchmark"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/compiler"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/planner"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/worker"
)

type fixedPlanner struct {
	plan  dm.SectionPlan
	err   error
	calls atomic.Int32
}

func (p *fixedPlanner) Plan(context.Context, dm.Spec) (dm.SectionPlan, error) {
	p.calls.Add(1)
	if p.err != nil {
		return dm.SectionPlan{}, p.err
	}
	return p.plan, nil
}

// scriptedDrafter 记录每次执行的章节，block 指定第几次调用阻塞到 ctx 结束
type scriptedDrafter struct {
	mu    sync.Mutex
	jobs  []worker.Job
	block map[int]bool
	start chan struct{}
}

func (d *scriptedDrafter) Run(ctx context.Context, job worker.Job) map[string]dm.SectionResult {
	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	call := len(d.jobs)
	d.mu.Unlock()

	if d.start != nil {
		close(d.start)
		d.start = nil
	}
	if d.block[call] {
		<-ctx.Done()
	}

	out := map[string]dm.SectionResult{}
	for _, s := range job.Plan.Sections {
		if len(job.Only) > 0 && !contains(job.Only, s.ID) {
			continue
		}
		r := dm.SectionResult{SectionID: s.ID, Status: dm.SectionDone, Text: "Body of " + s.Heading + " round " + string(rune('0'+call))}
		if ctx.Err() != nil {
			r.Status = dm.SectionFailed
			r.Text = dm.PlaceholderText(s.Heading, "cancelled")
		}
		if job.OnResult != nil {
			job.OnResult(r)
		}
		out[s.ID] = r
	}
	return out
}

func (d *scriptedDrafter) calls() []worker.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]worker.Job(nil), d.jobs...)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// scriptedScorer 依次返回预设评估结果，最后一个重复使用
type scriptedScorer struct {
	mu      sync.Mutex
	reports []*dm.BenchmarkReport
	calls   int
}

func (s *scriptedScorer) Evaluate(context.Context, dm.Spec, dm.SectionPlan, *dm.Draft, string) *dm.BenchmarkReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.reports) {
		i = len(s.reports) - 1
	}
	s.calls++
	r := *s.reports[i]
	return &r
}

func notMet(scores map[string]float64) *dm.BenchmarkReport {
	return &dm.BenchmarkReport{Aggregate: 0.4, Threshold: 0.7, SectionScores: scores}
}

func met() *dm.BenchmarkReport {
	return &dm.BenchmarkReport{Aggregate: 0.9, Threshold: 0.7, MeetsThreshold: true}
}

func threeSections() dm.SectionPlan {
	return dm.SectionPlan{Sections: []dm.SectionDescriptor{
		{ID: "s01", Heading: "Overview"},
		{ID: "s02", Heading: "Drivers"},
		{ID: "s03", Heading: "Outlook"},
	}}
}

func evSpec() dm.Spec {
	s := dm.NewSpec("EV battery supply chains")
	s.ReportType = dm.ReportMarketAnalysis
	s.Tone = dm.ToneProfessional
	s.Length = dm.LengthShort
	s.BenchmarkEnabled = true
	return s
}

func newTestController(c Components, opts Options) *Controller {
	if c.Compiler == nil {
		c.Compiler = compiler.New(0.25, nil, logger.Discard())
	}
	return NewController("test-report", evSpec(), c, opts, logger.Discard())
}

func TestEndToEndOffline(t *testing.T) {
	gen := llm.NewOffline()
	log := logger.Discard()
	c := Components{
		Planner:  planner.New(gen, 0, log),
		Drafter:  worker.New(gen, search.None{}, worker.Options{MaxConcurrency: 3, Retries: 1}, log),
		Compiler: compiler.New(0.25, compiler.NewLLMSummarizer(gen), log),
		Scorer:   benchmark.New(gen, 0.7, log),
	}
	ctrl := newTestController(c, Options{MaxRedraftCycles: 2, RedraftSections: 2})

	var mu sync.Mutex
	var progress []Progress
	ctrl.OnProgress(func(p Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, StateDone, ctrl.State())
	assert.Equal(t, "test-report", report.ID)
	require.GreaterOrEqual(t, report.Plan.Len(), 1)
	require.Len(t, report.Draft.Sections, report.Plan.Len())
	for i, r := range report.Draft.Sections {
		assert.Equal(t, report.Plan.Sections[i].ID, r.SectionID)
		assert.True(t, r.Status.Terminal())
	}
	require.NotNil(t, report.Benchmark)
	assert.GreaterOrEqual(t, report.Benchmark.Aggregate, 0.0)
	assert.LessOrEqual(t, report.Benchmark.Aggregate, 1.0)
	assert.LessOrEqual(t, report.Cycles, 2)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, StatePlanning, progress[0].State)
	last := progress[len(progress)-1]
	assert.Equal(t, StateDone, last.State)
	assert.Equal(t, 100, last.Percent)
}

func TestRedraftOnlyLowestSections(t *testing.T) {
	drafter := &scriptedDrafter{}
	scorer := &scriptedScorer{reports: []*dm.BenchmarkReport{
		notMet(map[string]float64{"s01": 0.8, "s02": 0.2, "s03": 0.75}),
		met(),
	}}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
		Scorer:  scorer,
	}, Options{MaxRedraftCycles: 3, RedraftSections: 2})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	jobs := drafter.calls()
	require.Len(t, jobs, 2)
	assert.Empty(t, jobs[0].Only)
	assert.Equal(t, []string{"s02"}, jobs[1].Only)
	assert.Contains(t, jobs[1].Feedback["s02"], "0.20")

	assert.Equal(t, 1, report.Cycles)
	assert.False(t, report.Degraded)
	assert.True(t, report.Benchmark.MeetsThreshold)
	// 只有 s02 被替换
	assert.Contains(t, report.Draft.Sections[1].Text, "round 2")
	assert.Contains(t, report.Draft.Sections[0].Text, "round 1")
	assert.Contains(t, report.Draft.Markdown, "Body of Drivers round 2")
}

func TestRedraftCyclesBounded(t *testing.T) {
	drafter := &scriptedDrafter{}
	scorer := &scriptedScorer{reports: []*dm.BenchmarkReport{
		notMet(map[string]float64{"s01": 0.1, "s02": 0.2, "s03": 0.3}),
	}}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
		Scorer:  scorer,
	}, Options{MaxRedraftCycles: 2, RedraftSections: 1})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, drafter.calls(), 3)
	assert.Equal(t, 3, scorer.calls)
	assert.Equal(t, 2, report.Cycles)
	assert.True(t, report.Degraded)
	assert.False(t, report.Benchmark.MeetsThreshold)
	assert.Contains(t, strings.Join(report.Diagnostics, "\n"), "redraft_cycles")
}

func TestProgressMonotonicAcrossRedraft(t *testing.T) {
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: &scriptedDrafter{},
		Scorer: &scriptedScorer{reports: []*dm.BenchmarkReport{
			notMet(map[string]float64{"s01": 0.1, "s02": 0.2, "s03": 0.3}),
			notMet(map[string]float64{"s01": 0.5, "s02": 0.2, "s03": 0.3}),
			met(),
		}},
	}, Options{MaxRedraftCycles: 3, RedraftSections: 1})

	var mu sync.Mutex
	var progress []Progress
	ctrl.OnProgress(func(p Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Cycles)

	mu.Lock()
	defer mu.Unlock()
	var sawRedraft bool
	for i := 1; i < len(progress); i++ {
		if progress[i].State == StateRedrafting {
			sawRedraft = true
		}
		assert.GreaterOrEqual(t, progress[i].Percent, progress[i-1].Percent,
			"%s after %s", progress[i].State, progress[i-1].State)
	}
	assert.True(t, sawRedraft)
	assert.Equal(t, 100, progress[len(progress)-1].Percent)
}

func TestNoRedraftWhenCyclesZero(t *testing.T) {
	drafter := &scriptedDrafter{}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
		Scorer:  &scriptedScorer{reports: []*dm.BenchmarkReport{notMet(nil)}},
	}, Options{MaxRedraftCycles: 0})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, drafter.calls(), 1)
	assert.Zero(t, report.Cycles)
	assert.True(t, report.Degraded)
}

func TestBenchmarkDisabled(t *testing.T) {
	scorer := &scriptedScorer{reports: []*dm.BenchmarkReport{met()}}
	spec := evSpec()
	spec.BenchmarkEnabled = false
	ctrl := NewController("r", spec, Components{
		Planner:  &fixedPlanner{plan: threeSections()},
		Drafter:  &scriptedDrafter{},
		Compiler: compiler.New(0.25, nil, logger.Discard()),
		Scorer:   scorer,
	}, Options{MaxRedraftCycles: 2}, logger.Discard())

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Benchmark)
	assert.Zero(t, scorer.calls)
}

func TestPlanningRetriedThenFailed(t *testing.T) {
	p := &fixedPlanner{err: &dm.PlanningError{Reason: "no sections in model output"}}
	drafter := &scriptedDrafter{}
	ctrl := newTestController(Components{Planner: p, Drafter: drafter}, Options{PlanningRetries: 2})

	report, err := ctrl.Run(context.Background())
	assert.Nil(t, report)
	assert.True(t, dm.IsPlanningError(err))
	assert.Equal(t, int32(3), p.calls.Load())
	assert.Equal(t, StateFailed, ctrl.State())
	assert.Empty(t, drafter.calls())
}

func TestPlanningFatalNotRetried(t *testing.T) {
	p := &fixedPlanner{err: &dm.PlanningError{Reason: "model call", Err: llm.NewFatalError(errors.New("401 unauthorized"))}}
	ctrl := newTestController(Components{Planner: p, Drafter: &scriptedDrafter{}}, Options{PlanningRetries: 2})

	_, err := ctrl.Run(context.Background())
	assert.True(t, dm.IsPlanningError(err))
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestPersistentSectionFailureDegrades(t *testing.T) {
	offline := llm.NewOffline()
	var driversCalls atomic.Int32
	gen := llm.GeneratorFunc(func(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
		switch llm.TaskOf(msgs) {
		case llm.TaskOutline:
			return "1. Overview - context\n2. Drivers - what moves the market\n3. Outlook - what comes next", nil
		case llm.TaskSection:
			for _, m := range msgs {
				if m.Extra["heading"] == "Drivers" {
					driversCalls.Add(1)
					return "", errors.New("503 service unavailable")
				}
			}
		}
		return offline.Generate(ctx, msgs, opts...)
	})
	log := logger.Discard()
	spec := evSpec()
	spec.BenchmarkEnabled = false
	ctrl := NewController("r", spec, Components{
		Planner:  planner.New(gen, 0, log),
		Drafter:  worker.New(gen, search.None{}, worker.Options{MaxConcurrency: 2, Retries: 2}, log),
		Compiler: compiler.New(0.25, nil, log),
	}, Options{}, log)

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), driversCalls.Load())
	assert.True(t, report.Degraded)
	require.Len(t, report.Draft.Sections, 3)
	assert.Equal(t, dm.SectionFailed, report.Draft.Sections[1].Status)
	assert.Equal(t, dm.SectionDone, report.Draft.Sections[0].Status)
	assert.Contains(t, report.Draft.Markdown, "Drivers")
}

func TestCancelDuringDrafting(t *testing.T) {
	started := make(chan struct{})
	drafter := &scriptedDrafter{block: map[int]bool{1: true}, start: started}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
		Scorer:  &scriptedScorer{reports: []*dm.BenchmarkReport{met()}},
	}, Options{})

	go func() {
		<-started
		ctrl.Cancel()
	}()

	report, err := ctrl.Run(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateFailed, ctrl.State())
	assert.Len(t, drafter.calls(), 1)
}

func TestCancelBeforeRun(t *testing.T) {
	p := &fixedPlanner{plan: threeSections()}
	ctrl := newTestController(Components{Planner: p, Drafter: &scriptedDrafter{}}, Options{})
	ctrl.Cancel()

	_, err := ctrl.Run(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, p.calls.Load())
}

func TestBudgetExceededBeforeDraft(t *testing.T) {
	drafter := &scriptedDrafter{block: map[int]bool{1: true}}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
	}, Options{Budget: 30 * time.Millisecond})

	report, err := ctrl.Run(context.Background())
	assert.Nil(t, report)
	assert.True(t, dm.IsBudgetExceeded(err))
	assert.Equal(t, StateFailed, ctrl.State())
}

func TestBudgetExceededDuringRedraftKeepsDraft(t *testing.T) {
	drafter := &scriptedDrafter{block: map[int]bool{2: true}}
	ctrl := newTestController(Components{
		Planner: &fixedPlanner{plan: threeSections()},
		Drafter: drafter,
		Scorer:  &scriptedScorer{reports: []*dm.BenchmarkReport{notMet(map[string]float64{"s01": 0.1})}},
	}, Options{MaxRedraftCycles: 3, Budget: 50 * time.Millisecond})

	report, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Degraded)
	assert.Contains(t, strings.Join(report.Diagnostics, "\n"), "wall_clock")
	for _, r := range report.Draft.Sections {
		assert.Equal(t, dm.SectionDone, r.Status)
	}
	assert.Equal(t, StateDone, ctrl.State())
}

func TestMergeResults(t *testing.T) {
	old := map[string]dm.SectionResult{
		"s01": {SectionID: "s01", Status: dm.SectionDone, Text: "old"},
		"s02": {SectionID: "s02", Status: dm.SectionFailed, Text: "old"},
		"s03": {SectionID: "s03", Status: dm.SectionDone, Text: "old"},
	}
	fresh := map[string]dm.SectionResult{
		"s01": {SectionID: "s01", Status: dm.SectionFailed, Text: "new"},
		"s02": {SectionID: "s02", Status: dm.SectionFailed, Text: "new"},
		"s03": {SectionID: "s03", Status: dm.SectionDone, Text: "new"},
	}
	merged := mergeResults(old, fresh)
	assert.Equal(t, "old", merged["s01"].Text)
	assert.Equal(t, "new", merged["s02"].Text)
	assert.Equal(t, "new", merged["s03"].Text)
	assert.Equal(t, "old", old["s02"].Text)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StatePlanning.CanTransition(StateDrafting))
	assert.True(t, StateBenchmarking.CanTransition(StateRedrafting))
	assert.True(t, StateRedrafting.CanTransition(StateDrafting))
	assert.False(t, StateDone.CanTransition(StatePlanning))
	assert.False(t, StatePlanning.CanTransition(StateBenchmarking))
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateDrafting.Terminal())
}

func TestEngineFromConfigMock(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "mock"
	cfg.Workflow.RetryBackoff = "1ms"
	require.NoError(t, cfg.Validate())

	engine, cleanup, err := NewEngineFromConfig(context.Background(), cfg, nil, logger.Discard())
	require.NoError(t, err)
	defer cleanup()

	report, err := engine.Generate(context.Background(), evSpec(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.NotEmpty(t, report.Draft.Markdown)
	assert.InDelta(t, 0.7, engine.Threshold(), 1e-9)

	bench, err := engine.Evaluate(context.Background(), evSpec(), report.Draft.Markdown)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bench.Aggregate, 0.0)
	assert.LessOrEqual(t, bench.Aggregate, 1.0)

	_, err = engine.Evaluate(context.Background(), evSpec(), "no headings here")
	assert.Error(t, err)
}
