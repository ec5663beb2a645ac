package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	rfLogger "github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/metrics"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/notify"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

// NewRegistry 服务独立的指标注册表，附带进程与运行时指标
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// NewEngine 初始化报告生成引擎，组件日志写入全局 logrus
func NewEngine(c *config.Config, m *metrics.Metrics, logger log.Logger) (*workflow.Engine, func(), error) {
	helper := log.NewHelper(logger)
	if err := c.Validate(); err != nil {
		helper.Errorf("invalid forge config: %v", err)
		return nil, nil, err
	}

	engine, cleanup, err := workflow.NewEngineFromConfig(context.Background(), c, m, rfLogger.Default())
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}
	return engine, func() {
		helper.Info("Cleaning up report engine")
		cleanup()
	}, nil
}

// NewPublisher 未配置 NATS 时返回空实现
func NewPublisher(c *config.Config, logger log.Logger) (notify.Publisher, func(), error) {
	pub, err := notify.New(&c.NATS, rfLogger.Default())
	if err != nil {
		log.NewHelper(logger).Errorf("Failed to connect NATS: %v", err)
		return nil, nil, err
	}
	return pub, pub.Close, nil
}
