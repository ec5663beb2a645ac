package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "report_forge"

// Metrics 报告生成相关指标。零值与 nil 均可安全调用
type Metrics struct {
	runs      *prometheus.CounterVec
	sections  *prometheus.CounterVec
	aggregate prometheus.Histogram
	cycles    prometheus.Histogram
	stages    *prometheus.HistogramVec
}

// New 创建并注册指标，reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report generation runs by outcome.",
		}, []string{"outcome"}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_results_total",
			Help:      "Terminal section results by status.",
		}, []string{"status"}),
		aggregate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "benchmark_aggregate",
			Help:      "Aggregate benchmark score of compiled drafts.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		cycles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redraft_cycles",
			Help:      "Redraft cycles used per finished report.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each workflow stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
	}
	reg.MustRegister(m.runs, m.sections, m.aggregate, m.cycles, m.stages)
	return m
}

// ObserveRun 记录一次运行结果：done | degraded | failed | cancelled
func (m *Metrics) ObserveRun(outcome string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSection(status string) {
	if m == nil || m.sections == nil {
		return
	}
	m.sections.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveBenchmark(aggregate float64) {
	if m == nil || m.aggregate == nil {
		return
	}
	m.aggregate.Observe(aggregate)
}

func (m *Metrics) ObserveCycles(n int) {
	if m == nil || m.cycles == nil {
		return
	}
	m.cycles.Observe(float64(n))
}

// ObserveStage 记录阶段耗时
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil || m.stages == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}
