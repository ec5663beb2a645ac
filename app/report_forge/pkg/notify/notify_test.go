package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	closed   bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestSubject(t *testing.T) {
	assert.Equal(t, "report_forge.reports.done", Subject("report_forge.reports", dm.StatusDone))
	assert.Equal(t, "failed", Subject("", dm.StatusFailed))
}

func TestNATSPublisher(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{nc: fc, prefix: "rf", log: logger.Discard()}

	rec := &dm.Record{
		ID:        "r1",
		Spec:      dm.NewSpec("EV"),
		Status:    dm.StatusDone,
		UpdatedAt: time.Now(),
		Report: &dm.Report{
			Degraded:  true,
			Benchmark: &dm.BenchmarkReport{Aggregate: 0.64},
		},
	}
	require.NoError(t, p.Publish(context.Background(), EventFromRecord(rec)))
	require.Len(t, fc.subjects, 1)
	assert.Equal(t, "rf.done", fc.subjects[0])

	var ev Event
	require.NoError(t, json.Unmarshal(fc.payloads[0], &ev))
	assert.Equal(t, "r1", ev.ReportID)
	assert.True(t, ev.Degraded)
	assert.InDelta(t, 0.64, ev.Aggregate, 1e-9)

	p.Close()
	assert.True(t, fc.closed)
}

func TestNATSPublisherErrors(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	p := &NATSPublisher{nc: fc, prefix: "rf", log: logger.Discard()}
	assert.Error(t, p.Publish(context.Background(), Event{Status: dm.StatusFailed}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{}), context.Canceled)
}

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New(&config.NATSConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}
