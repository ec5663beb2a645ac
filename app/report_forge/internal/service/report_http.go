package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/transport/http"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

const (
	OperationReportSubmitReport = "/report_forge.v1.Report/SubmitReport"
	OperationReportGetReport    = "/report_forge.v1.Report/GetReport"
	OperationReportListReports  = "/report_forge.v1.Report/ListReports"
	OperationReportCancelReport = "/report_forge.v1.Report/CancelReport"
	OperationReportGetBenchmark = "/report_forge.v1.Report/GetBenchmark"
	OperationReportDownload     = "/report_forge.v1.Report/Download"
	OperationReportListTypes    = "/report_forge.v1.Report/ListTypes"
	OperationReportGetTemplate  = "/report_forge.v1.Report/GetTemplate"
)

type ReportHTTPServer interface {
	SubmitReport(context.Context, *SubmitReportRequest) (*SubmitReportReply, error)
	GetReport(context.Context, *GetReportRequest) (*GetReportReply, error)
	ListReports(context.Context, *ListReportsRequest) (*ListReportsReply, error)
	CancelReport(context.Context, *CancelReportRequest) (*CancelReportReply, error)
	GetBenchmark(context.Context, *GetBenchmarkRequest) (*dm.BenchmarkReport, error)
	ListTypes(context.Context, *ListTypesRequest) (*ListTypesReply, error)
	GetTemplate(context.Context, *GetTemplateRequest) (*prompts.ReportTemplate, error)
	Download(http.Context) error
}

// RegisterReportHTTPServer 注册 JSON 路由，除下载外都经过服务端中间件
func RegisterReportHTTPServer(s *http.Server, srv ReportHTTPServer) {
	r := s.Route("/")
	r.POST("/api/reports", _Report_SubmitReport0_HTTP_Handler(srv))
	r.GET("/api/reports", _Report_ListReports0_HTTP_Handler(srv))
	r.GET("/api/reports/{id}", _Report_GetReport0_HTTP_Handler(srv))
	r.POST("/api/reports/{id}/cancel", _Report_CancelReport0_HTTP_Handler(srv))
	r.GET("/api/reports/{id}/benchmark", _Report_GetBenchmark0_HTTP_Handler(srv))
	r.GET("/api/reports/{id}/download", _Report_Download0_HTTP_Handler(srv))
	r.GET("/api/types", _Report_ListTypes0_HTTP_Handler(srv))
	r.GET("/api/templates/{type}", _Report_GetTemplate0_HTTP_Handler(srv))
}

func _Report_SubmitReport0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in SubmitReportRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportSubmitReport)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.SubmitReport(ctx, req.(*SubmitReportRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(202, out)
	}
}

func _Report_ListReports0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListReportsRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportListReports)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListReports(ctx, req.(*ListReportsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _Report_GetReport0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetReportRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportGetReport)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetReport(ctx, req.(*GetReportRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _Report_CancelReport0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in CancelReportRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportCancelReport)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CancelReport(ctx, req.(*CancelReportRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(202, out)
	}
}

func _Report_GetBenchmark0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetBenchmarkRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportGetBenchmark)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetBenchmark(ctx, req.(*GetBenchmarkRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _Report_Download0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, OperationReportDownload)
		return srv.Download(ctx)
	}
}

func _Report_ListTypes0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ListTypesRequest
		http.SetOperation(ctx, OperationReportListTypes)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListTypes(ctx, req.(*ListTypesRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func _Report_GetTemplate0_HTTP_Handler(srv ReportHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetTemplateRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationReportGetTemplate)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetTemplate(ctx, req.(*GetTemplateRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
