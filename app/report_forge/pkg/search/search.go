package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Topic             string // "news" or "general"
	MaxResults        int
	IncludeRawContent bool
	StartDate         string // Format: YYYY-MM-DD
	EndDate           string // Format: YYYY-MM-DD
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	RawContent    string
	Score         float64
	PublishedDate string
}

// maxSnippetRunes 单条资料片段的最大长度
const maxSnippetRunes = 1500

// Snippets 把搜索结果转为有序资料片段，跳过空内容，最多 max 条
func Snippets(resp *Response, max int) []model.Snippet {
	if resp == nil {
		return nil
	}
	out := make([]model.Snippet, 0, len(resp.Results))
	for _, r := range resp.Results {
		if max > 0 && len(out) >= max {
			break
		}
		text := strings.TrimSpace(r.Content)
		if text == "" {
			text = strings.TrimSpace(r.RawContent)
		}
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > maxSnippetRunes {
			text = string([]rune(text)[:maxSnippetRunes])
		}
		source := r.URL
		if source == "" {
			source = r.Title
		}
		out = append(out, model.Snippet{Source: source, Text: text})
	}
	return out
}

// None 不做检索，总是返回空结果
type None struct{}

// Search implements Searcher
func (None) Search(ctx context.Context, _ *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{}, nil
}
