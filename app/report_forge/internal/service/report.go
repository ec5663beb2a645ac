package service

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/report_forge/app/report_forge/internal/usecase"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

type ReportService struct {
	uc  *usecase.ReportUseCase
	log *log.Helper
}

func NewReportService(uc *usecase.ReportUseCase, logger log.Logger) *ReportService {
	return &ReportService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

func (s *ReportService) SubmitReport(ctx context.Context, req *SubmitReportRequest) (*SubmitReportReply, error) {
	rec, err := s.uc.Submit(ctx, req.toSpec())
	if err != nil {
		return nil, err
	}
	return &SubmitReportReply{ID: rec.ID, Status: rec.Status}, nil
}

func (s *ReportService) GetReport(ctx context.Context, req *GetReportRequest) (*GetReportReply, error) {
	view, err := s.uc.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	rec := view.Record
	return &GetReportReply{
		ID:         rec.ID,
		Status:     rec.Status,
		Spec:       rec.Spec,
		Report:     rec.Report,
		Diagnostic: rec.Diagnostic,
		Progress:   view.Progress,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func (s *ReportService) ListReports(ctx context.Context, req *ListReportsRequest) (*ListReportsReply, error) {
	records, total, err := s.uc.List(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	list := make([]*ReportSummary, 0, len(records))
	for _, rec := range records {
		list = append(list, toSummary(rec))
	}
	return &ListReportsReply{Reports: list, Total: total}, nil
}

func (s *ReportService) CancelReport(ctx context.Context, req *CancelReportRequest) (*CancelReportReply, error) {
	if err := s.uc.Cancel(ctx, req.ID); err != nil {
		return nil, err
	}
	return &CancelReportReply{ID: req.ID, Message: "cancellation requested"}, nil
}

func (s *ReportService) GetBenchmark(ctx context.Context, req *GetBenchmarkRequest) (*dm.BenchmarkReport, error) {
	return s.uc.Benchmark(ctx, req.ID)
}

func (s *ReportService) ListTypes(ctx context.Context, req *ListTypesRequest) (*ListTypesReply, error) {
	return &ListTypesReply{
		Types:   s.uc.Types(),
		Tones:   dm.Tones,
		Lengths: []dm.Length{dm.LengthShort, dm.LengthMedium, dm.LengthDetailed},
		Formats: dm.Formats,
	}, nil
}

func (s *ReportService) GetTemplate(ctx context.Context, req *GetTemplateRequest) (*prompts.ReportTemplate, error) {
	tpl := s.uc.Template(dm.ReportType(req.Type))
	return &tpl, nil
}

// Download 直接写出文件内容，不走 JSON 编码
func (s *ReportService) Download(ctx http.Context) error {
	var in DownloadRequest
	if err := ctx.BindQuery(&in); err != nil {
		return err
	}
	if err := ctx.BindVars(&in); err != nil {
		return err
	}
	content, info, err := s.uc.Export(ctx, in.ID, dm.Format(in.Format))
	if err != nil {
		return err
	}
	ctx.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, in.ID, info.Extension))
	return ctx.Blob(200, info.MIMEType, content)
}
