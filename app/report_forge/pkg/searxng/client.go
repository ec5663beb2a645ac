package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search"
)

const (
	defaultTimeout = 30 * time.Second
	// 部分公开实例会拒绝没有浏览器 UA 的请求
	userAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 report_forge"
	maxErrBody = 512
)

// Client 自建 SearXNG 实例的 JSON 搜索接口
type Client struct {
	endpoint string
	hc       *http.Client
	now      func() time.Time
}

var _ search.Searcher = (*Client)(nil)

// NewClient timeout 单位为秒，0 使用默认 30s
func NewClient(baseURL string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t <= 0 {
		t = defaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/"),
		hc:       &http.Client{Timeout: t},
		now:      time.Now,
	}
}

// response /search?format=json 的返回体，只取用到的字段
type response struct {
	Results []hit `json:"results"`
}

type hit struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate"`
	Score         float64 `json:"score"`
}

// Search SearXNG 没有条数参数，MaxResults 在本地截断；多引擎聚合出的重复链接只保留第一条
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	target, err := c.searchURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBody))
		return nil, fmt.Errorf("searxng: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload response
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("searxng: decode: %w", err)
	}
	return &search.Response{Results: collect(payload.Results, req.MaxResults)}, nil
}

func (c *Client) searchURL(req *search.Request) (string, error) {
	base, err := url.Parse(c.endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("searxng: invalid base URL %q", c.endpoint)
	}
	u := base.JoinPath("search")

	category := "general"
	if req.Topic == "news" {
		category = "news"
	}
	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("categories", category)
	if r := c.timeRange(req.StartDate); r != "" {
		q.Set("time_range", r)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// timeRange 把起始日期换成 SearXNG 支持的 day/week/month/year 粒度
func (c *Client) timeRange(start string) string {
	if start == "" {
		return ""
	}
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return ""
	}
	switch age := c.now().Sub(from); {
	case age <= 24*time.Hour:
		return "day"
	case age <= 7*24*time.Hour:
		return "week"
	case age <= 31*24*time.Hour:
		return "month"
	default:
		return "year"
	}
}

func collect(hits []hit, limit int) []search.Result {
	out := make([]search.Result, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		if h.URL == "" || seen[h.URL] {
			continue
		}
		seen[h.URL] = true
		out = append(out, search.Result{
			Title:         h.Title,
			URL:           h.URL,
			Content:       h.Content,
			Score:         h.Score,
			PublishedDate: h.PublishedDate,
		})
	}
	return out
}
