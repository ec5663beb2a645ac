package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/internal/data"
	"github.com/iWorld-y/report_forge/app/report_forge/internal/repo"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/export"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/notify"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) all() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

// blockingPlanner 阻塞到上下文取消
type blockingPlanner struct {
	started chan struct{}
}

func (p *blockingPlanner) Plan(ctx context.Context, _ dm.Spec) (dm.SectionPlan, error) {
	close(p.started)
	<-ctx.Done()
	return dm.SectionPlan{}, ctx.Err()
}

func newRepo(t *testing.T) repo.ReportRepo {
	d, cleanup, err := data.NewData(nil, nil, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return data.NewReportRepo(d, log.DefaultLogger)
}

func newMockUseCase(t *testing.T) (*ReportUseCase, *recordingPublisher) {
	return newMockUseCaseWithRepo(t, newRepo(t))
}

func newMockUseCaseWithRepo(t *testing.T, r repo.ReportRepo) (*ReportUseCase, *recordingPublisher) {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = "mock"
	cfg.Workflow.RetryBackoff = "1ms"

	engine, cleanupEngine, err := workflow.NewEngineFromConfig(context.Background(), cfg, nil, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(cleanupEngine)

	pub := &recordingPublisher{}
	uc, cleanup := NewReportUseCase(engine, r, export.NewRegistry(), pub, log.DefaultLogger)
	t.Cleanup(cleanup)
	return uc, pub
}

func TestReportUseCase_SubmitAndGet(t *testing.T) {
	uc, pub := newMockUseCase(t)
	ctx := context.Background()

	spec := dm.NewSpec("EV battery supply chains")
	spec.Length = dm.LengthShort
	spec.Formats = []dm.Format{dm.FormatMarkdown, dm.FormatHTML}

	rec, err := uc.Submit(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, dm.StatusPending, rec.Status)
	assert.NotEmpty(t, rec.ID)

	uc.Wait()

	view, err := uc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Progress)
	require.Equal(t, dm.StatusDone, view.Record.Status, view.Record.Diagnostic)
	require.NotNil(t, view.Record.Report)
	assert.NotEmpty(t, view.Record.Report.Draft.Markdown)

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, rec.ID, events[0].ReportID)
	assert.Equal(t, dm.StatusDone, events[0].Status)

	records, total, err := uc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, records, 1)
}

// failingRepo 写入带报告内容的记录时失败，前 transient 次对任意记录失败
type failingRepo struct {
	repo.ReportRepo
	mu        sync.Mutex
	transient int
	calls     int
}

func (r *failingRepo) Update(ctx context.Context, rec *dm.Record) error {
	r.mu.Lock()
	r.calls++
	transient := r.calls <= r.transient
	r.mu.Unlock()
	if transient {
		return errors.ServiceUnavailable("DB_BUSY", "connection reset")
	}
	if r.transient == 0 && rec.Report != nil {
		return errors.InternalServer("DB_ERROR", "invalid input syntax for type json")
	}
	return r.ReportRepo.Update(ctx, rec)
}

func TestReportUseCase_PersistFailureMarksFailed(t *testing.T) {
	uc, pub := newMockUseCaseWithRepo(t, &failingRepo{ReportRepo: newRepo(t)})
	ctx := context.Background()

	spec := dm.NewSpec("EV battery supply chains")
	spec.Length = dm.LengthShort
	rec, err := uc.Submit(ctx, spec)
	require.NoError(t, err)
	uc.Wait()

	view, err := uc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, dm.StatusFailed, view.Record.Status)
	assert.Nil(t, view.Record.Report)
	assert.Contains(t, view.Record.Diagnostic, "failed to persist report")

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, dm.StatusFailed, events[0].Status)
}

func TestReportUseCase_PersistRetriesTransientErrors(t *testing.T) {
	r := &failingRepo{ReportRepo: newRepo(t), transient: 2}
	uc, _ := newMockUseCaseWithRepo(t, r)
	ctx := context.Background()

	spec := dm.NewSpec("EV battery supply chains")
	spec.Length = dm.LengthShort
	rec, err := uc.Submit(ctx, spec)
	require.NoError(t, err)
	uc.Wait()

	view, err := uc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, dm.StatusDone, view.Record.Status, view.Record.Diagnostic)
	assert.NotNil(t, view.Record.Report)
	assert.Equal(t, 3, r.calls)
}

func TestReportUseCase_SubmitInvalid(t *testing.T) {
	uc, _ := newMockUseCase(t)

	_, err := uc.Submit(context.Background(), dm.Spec{Topic: "  "})
	assert.True(t, errors.IsBadRequest(err))

	spec := dm.NewSpec("topic")
	spec.Formats = []dm.Format{"odt"}
	_, err = uc.Submit(context.Background(), spec)
	assert.True(t, errors.IsBadRequest(err))
}

func TestReportUseCase_Export(t *testing.T) {
	uc, _ := newMockUseCase(t)
	ctx := context.Background()

	spec := dm.NewSpec("Remote work policies")
	spec.Formats = []dm.Format{dm.FormatHTML}
	rec, err := uc.Submit(ctx, spec)
	require.NoError(t, err)
	uc.Wait()

	// 请求的格式在生成后已缓存
	cached, err := uc.repo.GetExport(ctx, rec.ID, dm.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(cached), "<html")

	content, info, err := uc.Export(ctx, rec.ID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.MIMEType)
	assert.Equal(t, "%PDF-", string(content[:5]))

	_, err = uc.repo.GetExport(ctx, rec.ID, dm.FormatPDF)
	assert.NoError(t, err)

	md, info, err := uc.Export(ctx, rec.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ".md", info.Extension)
	assert.NotEmpty(t, md)

	_, _, err = uc.Export(ctx, rec.ID, "odt")
	assert.True(t, errors.IsBadRequest(err))

	_, _, err = uc.Export(ctx, "missing", dm.FormatPDF)
	assert.True(t, errors.IsNotFound(err))
}

func TestReportUseCase_Benchmark(t *testing.T) {
	uc, _ := newMockUseCase(t)
	ctx := context.Background()

	withBench, err := uc.Submit(ctx, dm.NewSpec("Cloud gaming"))
	require.NoError(t, err)
	spec := dm.NewSpec("Cloud gaming")
	spec.BenchmarkEnabled = false
	withoutBench, err := uc.Submit(ctx, spec)
	require.NoError(t, err)
	uc.Wait()

	stored, err := uc.Benchmark(ctx, withBench.ID)
	require.NoError(t, err)
	view, err := uc.Get(ctx, withBench.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Record.Report.Benchmark, stored)

	computed, err := uc.Benchmark(ctx, withoutBench.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, computed.Aggregate, 0.0)
	assert.LessOrEqual(t, computed.Aggregate, 1.0)
	assert.InDelta(t, uc.Threshold(), computed.Threshold, 1e-9)
}

func TestReportUseCase_Cancel(t *testing.T) {
	planner := &blockingPlanner{started: make(chan struct{})}
	engine := workflow.NewEngine(workflow.Components{Planner: planner}, workflow.Options{}, logger.Discard())
	pub := &recordingPublisher{}
	uc, cleanup := NewReportUseCase(engine, newRepo(t), export.NewRegistry(), pub, log.DefaultLogger)
	defer cleanup()
	ctx := context.Background()

	rec, err := uc.Submit(ctx, dm.NewSpec("Quantum sensing"))
	require.NoError(t, err)
	<-planner.started

	view, err := uc.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Progress)
	assert.Equal(t, workflow.StatePlanning, view.Progress.State)

	_, _, err = uc.Export(ctx, rec.ID, dm.FormatMarkdown)
	assert.True(t, errors.IsConflict(err))

	require.NoError(t, uc.Cancel(ctx, rec.ID))
	uc.Wait()

	view, err = uc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, dm.StatusFailed, view.Record.Status)
	assert.Contains(t, view.Record.Diagnostic, workflow.ErrCancelled.Error())

	// 已结束的报告不能再取消
	assert.True(t, errors.IsConflict(uc.Cancel(ctx, rec.ID)))
	_, err = uc.Benchmark(ctx, rec.ID)
	assert.True(t, errors.IsConflict(err))

	events := pub.all()
	require.Len(t, events, 1)
	assert.Equal(t, dm.StatusFailed, events[0].Status)
}

func TestReportUseCase_CancelOrphanedPending(t *testing.T) {
	uc, _ := newMockUseCase(t)
	ctx := context.Background()

	rec := &dm.Record{ID: "orphan", Spec: dm.NewSpec("x"), Status: dm.StatusPending}
	require.NoError(t, uc.repo.Create(ctx, rec))
	require.NoError(t, uc.Cancel(ctx, "orphan"))

	view, err := uc.Get(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, dm.StatusFailed, view.Record.Status)
	assert.True(t, errors.IsNotFound(uc.Cancel(ctx, "missing")))
}

func TestReportUseCase_Types(t *testing.T) {
	uc, _ := newMockUseCase(t)

	types := uc.Types()
	require.Len(t, types, len(dm.ReportTypes))
	assert.Equal(t, dm.ReportMarketAnalysis, types[0].ReportType)
	assert.NotEmpty(t, types[0].Sections)

	tpl := uc.Template("white_paper")
	assert.Equal(t, dm.ReportType("white_paper"), tpl.ReportType)
	assert.NotEmpty(t, tpl.Sections)
}
