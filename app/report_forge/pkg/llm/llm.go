package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
)

// Generator 文本生成能力：消息列表 -> 文本
type Generator interface {
	Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error)
}

// GeneratorFunc 函数适配器，测试中常用
type GeneratorFunc func(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
	return f(ctx, msgs, opts...)
}

// TaskKey 写入 schema.Message.Extra，标记这条提示属于哪个生成任务
const TaskKey = "report_forge_task"

const (
	TaskOutline  = "outline"
	TaskSection  = "section"
	TaskEvaluate = "evaluate"
	TaskCondense = "condense"
)

// TaskOf 读取消息列表上的任务标记
func TaskOf(msgs []*schema.Message) string {
	for _, m := range msgs {
		if m == nil || m.Extra == nil {
			continue
		}
		if t, ok := m.Extra[TaskKey].(string); ok {
			return t
		}
	}
	return ""
}

// NewGenerator 按配置创建生成能力
func NewGenerator(ctx context.Context, cfg *config.LLMConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "eino_openai":
		return NewEinoGenerator(ctx, cfg)
	case "openai_sdk":
		return NewOpenAIGenerator(cfg)
	case "mock":
		return NewOffline(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
