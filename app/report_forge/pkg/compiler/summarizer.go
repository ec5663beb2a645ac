package compiler

import (
	"context"
	"strings"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/llm"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

// LLMSummarizer 用一次模型调用压缩章节
type LLMSummarizer struct {
	gen llm.Generator
}

// NewLLMSummarizer 创建压缩器
func NewLLMSummarizer(gen llm.Generator) *LLMSummarizer {
	return &LLMSummarizer{gen: gen}
}

// Condense implements Summarizer
func (s *LLMSummarizer) Condense(ctx context.Context, spec dm.Spec, heading, text string, words int) (string, error) {
	msgs, err := prompts.Condense(ctx, spec, heading, text, words)
	if err != nil {
		return "", err
	}
	out, err := s.gen.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
