package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/report_forge/app/report_forge/internal/repo"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/export"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/notify"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

const (
	persistTimeout = 10 * time.Second
	persistRetries = 2
	persistBackoff = 200 * time.Millisecond
)

// ReportUseCase 报告生成业务逻辑：异步运行、查询、取消、评估与导出
type ReportUseCase struct {
	engine    *workflow.Engine
	repo      repo.ReportRepo
	exporters *export.Registry
	publisher notify.Publisher
	log       *log.Helper

	mu   sync.Mutex
	runs map[string]*run

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// run 一个进行中的生成任务
type run struct {
	ctrl     *workflow.Controller
	progress workflow.Progress
}

// ReportView 查询结果：存储记录加上进行中任务的进度
type ReportView struct {
	Record   *dm.Record
	Progress *workflow.Progress
}

// NewReportUseCase 创建报告业务逻辑实例，返回的 cleanup 会取消并等待所有进行中的任务
func NewReportUseCase(engine *workflow.Engine, repo repo.ReportRepo, exporters *export.Registry, publisher notify.Publisher, logger log.Logger) (*ReportUseCase, func()) {
	base, stop := context.WithCancel(context.Background())
	uc := &ReportUseCase{
		engine:    engine,
		repo:      repo,
		exporters: exporters,
		publisher: publisher,
		log:       log.NewHelper(logger),
		runs:      make(map[string]*run),
		base:      base,
		stop:      stop,
	}
	return uc, uc.Close
}

// Submit 校验需求并在后台启动生成，立即返回 pending 记录
func (uc *ReportUseCase) Submit(ctx context.Context, spec dm.Spec) (*dm.Record, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, errors.BadRequest("INVALID_SPEC", err.Error())
	}

	ctrl := uc.engine.NewController(spec)
	now := time.Now()
	rec := &dm.Record{
		ID:        ctrl.ID(),
		Spec:      ctrl.Spec(),
		Status:    dm.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	r := &run{ctrl: ctrl, progress: workflow.Progress{ReportID: rec.ID, State: workflow.StatePending}}
	ctrl.OnProgress(func(p workflow.Progress) {
		uc.mu.Lock()
		r.progress = p
		uc.mu.Unlock()
	})

	uc.mu.Lock()
	uc.runs[rec.ID] = r
	uc.mu.Unlock()

	uc.wg.Add(1)
	go uc.execute(ctrl, *rec)

	uc.log.Infof("report %s submitted: %s (%s)", rec.ID, spec.Topic, spec.ReportType)
	return rec, nil
}

func (uc *ReportUseCase) execute(ctrl *workflow.Controller, rec dm.Record) {
	defer uc.wg.Done()
	defer func() {
		uc.mu.Lock()
		delete(uc.runs, rec.ID)
		uc.mu.Unlock()
	}()

	report, err := ctrl.Run(uc.base)
	rec.UpdatedAt = time.Now()
	if err != nil {
		rec.Status = dm.StatusFailed
		rec.Diagnostic = err.Error()
		uc.log.Errorf("report %s failed: %v", rec.ID, err)
	} else {
		rec.Status = dm.StatusDone
		rec.Report = report
		rec.Diagnostic = strings.Join(report.Diagnostics, "; ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := uc.persist(ctx, &rec); err != nil {
		uc.log.Errorf("report %s: failed to persist result: %v", rec.ID, err)
		if rec.Report != nil {
			// 报告写不进去时至少落一条 failed 记录，避免一直 pending
			rec.Status = dm.StatusFailed
			rec.Report = nil
			rec.Diagnostic = "failed to persist report: " + err.Error()
			if err := uc.persist(ctx, &rec); err != nil {
				uc.log.Errorf("report %s: failed to persist failure: %v", rec.ID, err)
			}
		}
	}
	if rec.Status == dm.StatusDone {
		for _, f := range rec.Spec.Formats {
			if _, err := uc.render(ctx, report, f); err != nil {
				uc.log.Warnf("report %s: render %s failed: %v", rec.ID, f, err)
			}
		}
	}
	if err := uc.publisher.Publish(ctx, notify.EventFromRecord(&rec)); err != nil {
		uc.log.Warnf("report %s: publish event failed: %v", rec.ID, err)
	}
}

// persist 写回记录，存储暂时不可用时按指数退避重试
func (uc *ReportUseCase) persist(ctx context.Context, rec *dm.Record) error {
	op := func() error {
		err := uc.repo.Update(ctx, rec)
		if errors.IsNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = persistBackoff
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, persistRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		uc.log.Warnf("report %s: persist failed, retrying in %v: %v", rec.ID, wait, err)
	})
}

// Get 返回记录；任务进行中时附带最新进度
func (uc *ReportUseCase) Get(ctx context.Context, id string) (*ReportView, error) {
	rec, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ReportView{Record: rec}
	uc.mu.Lock()
	if r, ok := uc.runs[id]; ok {
		p := r.progress
		view.Progress = &p
	}
	uc.mu.Unlock()
	return view, nil
}

// List 分页列出记录，page 从 1 开始
func (uc *ReportUseCase) List(ctx context.Context, page, pageSize int) ([]*dm.Record, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return uc.repo.List(ctx, page, pageSize)
}

// Cancel 取消进行中的生成。已结束的报告返回 Conflict
func (uc *ReportUseCase) Cancel(ctx context.Context, id string) error {
	rec, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != dm.StatusPending {
		return errors.Conflict("REPORT_FINISHED", "report already "+string(rec.Status))
	}

	uc.mu.Lock()
	r, ok := uc.runs[id]
	uc.mu.Unlock()
	if ok {
		r.ctrl.Cancel()
		return nil
	}

	// 进程重启后遗留的 pending 记录没有对应任务
	rec.Status = dm.StatusFailed
	rec.Diagnostic = workflow.ErrCancelled.Error()
	rec.UpdatedAt = time.Now()
	return uc.repo.Update(ctx, rec)
}

// Benchmark 返回已保存的评估结果；生成时关闭了评估则现场计算
func (uc *ReportUseCase) Benchmark(ctx context.Context, id string) (*dm.BenchmarkReport, error) {
	report, err := uc.finished(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Benchmark != nil {
		return report.Benchmark, nil
	}
	b, err := uc.engine.Evaluate(ctx, report.Spec, report.Draft.Markdown)
	if err != nil {
		return nil, errors.BadRequest("BENCHMARK_UNAVAILABLE", err.Error())
	}
	return b, nil
}

// Export 返回指定格式的文件，首次请求时渲染并缓存
func (uc *ReportUseCase) Export(ctx context.Context, id string, format dm.Format) ([]byte, export.FormatInfo, error) {
	format = dm.Format(strings.ToLower(string(format)))
	if format == "" {
		format = dm.FormatMarkdown
	}
	info, ok := export.Info(format)
	if !ok {
		return nil, export.FormatInfo{}, errors.BadRequest("INVALID_FORMAT", "unsupported format: "+string(format))
	}
	report, err := uc.finished(ctx, id)
	if err != nil {
		return nil, info, err
	}

	content, err := uc.repo.GetExport(ctx, id, format)
	if err == nil {
		return content, info, nil
	}
	if !errors.IsNotFound(err) {
		return nil, info, err
	}
	content, err = uc.render(ctx, report, format)
	return content, info, err
}

func (uc *ReportUseCase) render(ctx context.Context, report *dm.Report, format dm.Format) ([]byte, error) {
	content, err := uc.exporters.Render(report, format)
	if err != nil {
		return nil, errors.InternalServer("EXPORT_FAILED", err.Error())
	}
	if err := uc.repo.SaveExport(ctx, report.ID, format, content); err != nil {
		uc.log.Warnf("report %s: cache %s export failed: %v", report.ID, format, err)
	}
	return content, nil
}

// finished 取已完成的报告，未完成或失败时返回 Conflict
func (uc *ReportUseCase) finished(ctx context.Context, id string) (*dm.Report, error) {
	rec, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case dm.StatusPending:
		return nil, errors.Conflict("REPORT_PENDING", "report is still being generated")
	case dm.StatusFailed:
		return nil, errors.Conflict("REPORT_FAILED", rec.Diagnostic)
	}
	if rec.Report == nil || rec.Report.Draft == nil {
		return nil, errors.InternalServer("REPORT_EMPTY", "report has no draft")
	}
	return rec.Report, nil
}

// Types 所有内置报告类型及其默认结构
func (uc *ReportUseCase) Types() []prompts.ReportTemplate {
	out := make([]prompts.ReportTemplate, 0, len(dm.ReportTypes))
	for _, t := range dm.ReportTypes {
		out = append(out, prompts.Template(t))
	}
	return out
}

// Template 某类报告的默认结构，未知类型返回通用结构
func (uc *ReportUseCase) Template(t dm.ReportType) prompts.ReportTemplate {
	return prompts.Template(t)
}

// Threshold 当前评估阈值
func (uc *ReportUseCase) Threshold() float64 {
	return uc.engine.Threshold()
}

// Wait 等待所有后台任务结束
func (uc *ReportUseCase) Wait() {
	uc.wg.Wait()
}

// Close 取消所有进行中的任务并等待其落库
func (uc *ReportUseCase) Close() {
	uc.stop()
	uc.wg.Wait()
}
