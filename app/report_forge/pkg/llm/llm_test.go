package llm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		fatal     bool
	}{
		{"rate limited", errors.New("status code: 429, Too Many Requests"), true, false},
		{"server error", errors.New("error, status code: 503, message: overloaded"), true, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, false},
		{"auth", errors.New("error, status code: 401, message: Incorrect API key provided"), false, true},
		{"api error 429", &openai.Error{StatusCode: 429}, true, false},
		{"api error 400", &openai.Error{StatusCode: 400}, false, true},
		{"unknown", errors.New("something odd"), true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			assert.Equal(t, tc.transient, IsTransient(got))
			assert.Equal(t, tc.fatal, IsFatal(got))
		})
	}

	assert.NoError(t, Classify(nil))
	canceled := Classify(context.Canceled)
	assert.False(t, IsTransient(canceled))
	assert.ErrorIs(t, canceled, context.Canceled)

	// 已分类的错误保持不变
	fatal := NewFatalError(errors.New("429 but fatal"))
	assert.Same(t, fatal, Classify(fatal))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose", "Here you go: {\"a\": 1} hope it helps", `{"a": 1}`},
		{"trailing comma", `{"a": [1, 2,],}`, `{"a": [1, 2]}`},
		{"none", "no json here", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Clarity float64 `json:"clarity"`
	}
	require.NoError(t, DecodeJSON("```\n{\"clarity\": 0.9}\n```", &v))
	assert.InDelta(t, 0.9, v.Clarity, 1e-9)

	assert.Error(t, DecodeJSON("nothing", &v))
	assert.Error(t, DecodeJSON("{not json}", &v))
}

func TestGuardTimeoutIsTransient(t *testing.T) {
	slow := GeneratorFunc(func(ctx context.Context, _ []*schema.Message, _ ...model.Option) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g := NewGuard(slow, nil, 10*time.Millisecond)

	_, err := g.Generate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGuardParentCancel(t *testing.T) {
	var calls int32
	gen := GeneratorFunc(func(ctx context.Context, _ []*schema.Message, _ ...model.Option) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	})
	g := NewGuard(gen, rate.NewLimiter(rate.Inf, 1), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no call after cancellation")

	out, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestOfflineOutline(t *testing.T) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: "Sections:\n1. Executive summary - overview\n2. Trends - current trends\nTone: x"},
		{Role: schema.User, Content: "plan it", Extra: map[string]any{TaskKey: TaskOutline}},
	}
	out, err := NewOffline().Generate(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, "1. Executive summary - overview\n2. Trends - current trends", out)
}

func TestOfflineEvaluate(t *testing.T) {
	msgs := []*schema.Message{
		{Role: schema.System, Content: "evaluate"},
		{Role: schema.User, Content: "[s01] Intro\n[s02] Body", Extra: map[string]any{TaskKey: TaskEvaluate, "tone": "professional"}},
	}
	out, err := NewOffline().Generate(context.Background(), msgs)
	require.NoError(t, err)

	var v struct {
		SectionScores map[string]float64 `json:"section_scores"`
		DetectedTone  string             `json:"detected_tone"`
	}
	require.NoError(t, DecodeJSON(out, &v))
	assert.Len(t, v.SectionScores, 2)
	assert.Equal(t, "professional", v.DetectedTone)
}
