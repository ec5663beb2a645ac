package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// Event 报告生命周期事件
type Event struct {
	ReportID       string    `json:"report_id"`
	Status         dm.Status `json:"status"`
	Topic          string    `json:"topic"`
	ReportType     string    `json:"report_type"`
	Aggregate      float64   `json:"aggregate,omitempty"`
	MeetsThreshold bool      `json:"meets_threshold"`
	Degraded       bool      `json:"degraded"`
	Diagnostic     string    `json:"diagnostic,omitempty"`
	Time           time.Time `json:"time"`
}

// EventFromRecord 由存储记录构造事件
func EventFromRecord(rec *dm.Record) Event {
	ev := Event{
		ReportID:   rec.ID,
		Status:     rec.Status,
		Topic:      rec.Spec.Topic,
		ReportType: string(rec.Spec.ReportType),
		Diagnostic: rec.Diagnostic,
		Time:       rec.UpdatedAt,
	}
	if rec.Report != nil {
		ev.Degraded = rec.Report.Degraded
		if b := rec.Report.Benchmark; b != nil {
			ev.Aggregate = b.Aggregate
			ev.MeetsThreshold = b.MeetsThreshold
		}
	}
	return ev
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop 不发送任何事件
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// conn *nats.Conn 的最小子集
type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

// NATSPublisher 发布到 <prefix>.<status>
type NATSPublisher struct {
	nc     conn
	prefix string
	log    logrus.FieldLogger
}

// New 按配置创建发布器，未配置 URL 时返回 Nop
func New(cfg *config.NATSConfig, log logrus.FieldLogger) (Publisher, error) {
	if cfg == nil || cfg.URL == "" {
		return Nop{}, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("report_forge"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	log.Infof("已连接 NATS: %s", cfg.URL)
	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix, log: log}, nil
}

// Subject 事件主题
func Subject(prefix string, status dm.Status) string {
	if prefix == "" {
		return string(status)
	}
	return prefix + "." + string(status)
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	subject := Subject(p.prefix, ev.Status)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.WithField("report_id", ev.ReportID).Debugf("事件已发布到 %s", subject)
	return nil
}

func (p *NATSPublisher) Close() {
	p.nc.Close()
}
