package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
)

// EinoGenerator 基于 eino ChatModel 的生成能力
type EinoGenerator struct {
	chatModel model.BaseChatModel
}

// NewEinoGenerator 使用 eino-ext 的 OpenAI 兼容模型
func NewEinoGenerator(ctx context.Context, cfg *config.LLMConfig) (*EinoGenerator, error) {
	temperature := cfg.Temperature
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Timeout:     cfg.LLMTimeout(),
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return &EinoGenerator{chatModel: chatModel}, nil
}

// WrapChatModel 包装任意 eino ChatModel
func WrapChatModel(cm model.BaseChatModel) *EinoGenerator {
	return &EinoGenerator{chatModel: cm}
}

// Generate 实现 Generator
func (g *EinoGenerator) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
	resp, err := g.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", Classify(err)
	}
	if resp == nil {
		return "", NewTransientError(fmt.Errorf("empty response"))
	}
	return resp.Content, nil
}
