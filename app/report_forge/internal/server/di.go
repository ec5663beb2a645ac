package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/report_forge/app/report_forge/internal/data"
	"github.com/iWorld-y/report_forge/app/report_forge/internal/service"
	"github.com/iWorld-y/report_forge/app/report_forge/internal/usecase"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/export"
)

// ProviderSet 是报告服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Engine providers
	NewRegistry,
	NewMetrics,
	NewEngine,
	NewPublisher,
	export.NewRegistry,

	// Data providers
	data.NewData,
	data.NewReportRepo,

	// UseCase providers
	usecase.NewReportUseCase,

	// Service providers
	service.NewReportService,
)
