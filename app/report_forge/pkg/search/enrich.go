package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"
	"github.com/sirupsen/logrus"
)

// Fetcher 抓取页面正文，返回 Markdown
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ReadabilityFetcher 使用 readability 抽取正文，再转为 Markdown
type ReadabilityFetcher struct {
	client    *http.Client
	converter *md.Converter
}

// NewReadabilityFetcher 创建抓取器
func NewReadabilityFetcher(timeout time.Duration) *ReadabilityFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &ReadabilityFetcher{
		client:    &http.Client{Timeout: timeout},
		converter: converter,
	}
}

// Fetch implements Fetcher
func (f *ReadabilityFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; report_forge/1.0)")

	res, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	markdown, err := f.converter.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return strings.TrimSpace(article.TextContent), nil
	}
	return strings.TrimSpace(markdown), nil
}

// Enricher 对摘要过短的结果抓取原文补全
type Enricher struct {
	next    Searcher
	fetcher Fetcher
	minLen  int
	log     logrus.FieldLogger
}

// NewEnricher minLen 为触发抓取的摘要长度阈值
func NewEnricher(next Searcher, fetcher Fetcher, log logrus.FieldLogger) *Enricher {
	return &Enricher{next: next, fetcher: fetcher, minLen: 500, log: log}
}

var _ Searcher = (*Enricher)(nil)

// Search implements Searcher
func (e *Enricher) Search(ctx context.Context, req *Request) (*Response, error) {
	resp, err := e.next.Search(ctx, req)
	if err != nil || resp == nil {
		return resp, err
	}

	for i := range resp.Results {
		if ctx.Err() != nil {
			break
		}
		r := &resp.Results[i]
		if len(r.Content) >= e.minLen || r.URL == "" {
			continue
		}
		fetched, err := e.fetcher.Fetch(ctx, r.URL)
		if err != nil {
			e.log.Debugf("抓取正文失败 [%s]: %v", r.URL, err)
			continue
		}
		if len(fetched) > len(r.Content) {
			r.Content = fetched
		}
	}
	return resp, nil
}
