package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
)

type stubSearcher struct {
	resp *Response
	err  error
}

func (s *stubSearcher) Search(context.Context, *Request) (*Response, error) {
	return s.resp, s.err
}

type stubFetcher struct {
	pages map[string]string
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, u string) (string, error) {
	f.calls = append(f.calls, u)
	if p, ok := f.pages[u]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func TestSnippets(t *testing.T) {
	resp := &Response{Results: []Result{
		{URL: "https://a", Content: "alpha"},
		{URL: "https://b", Content: "   "},
		{Title: "only title", RawContent: "raw gamma"},
		{URL: "https://d", Content: "delta"},
	}}

	got := Snippets(resp, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "https://a", got[0].Source)
	assert.Equal(t, "only title", got[1].Source)
	assert.Equal(t, "raw gamma", got[1].Text)

	assert.Len(t, Snippets(resp, 0), 3)
	assert.Empty(t, Snippets(nil, 5))

	long := &Response{Results: []Result{{URL: "u", Content: strings.Repeat("字", 3000)}}}
	assert.Equal(t, maxSnippetRunes, len([]rune(Snippets(long, 1)[0].Text)))
}

func TestEnricher(t *testing.T) {
	inner := &stubSearcher{resp: &Response{Results: []Result{
		{URL: "https://short", Content: "tiny"},
		{URL: "https://long", Content: strings.Repeat("x", 600)},
		{URL: "https://missing", Content: "tiny"},
	}}}
	fetcher := &stubFetcher{pages: map[string]string{"https://short": "a much longer article body"}}

	e := NewEnricher(inner, fetcher, logger.Discard())
	resp, err := e.Search(context.Background(), &Request{Query: "q"})
	require.NoError(t, err)

	assert.Equal(t, "a much longer article body", resp.Results[0].Content)
	assert.Equal(t, "tiny", resp.Results[2].Content)
	assert.Equal(t, []string{"https://short", "https://missing"}, fetcher.calls)
}

func TestEnricherPropagatesError(t *testing.T) {
	e := NewEnricher(&stubSearcher{err: errors.New("boom")}, &stubFetcher{}, logger.Discard())
	_, err := e.Search(context.Background(), &Request{})
	assert.EqualError(t, err, "boom")
}

func TestReadabilityFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Batteries</title></head><body>
<nav>menu</nav>
<article><h1>Battery supply</h1>
<p>Global lithium-ion battery demand grew strongly last year, driven by electric vehicles and grid storage projects across Europe, China and North America.</p>
<p>Cathode material prices fell as new refining capacity came online, easing pressure on cell manufacturers and automakers alike.</p>
</article></body></html>`))
	}))
	defer srv.Close()

	f := NewReadabilityFetcher(0)
	out, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "lithium-ion")
}

func TestNone(t *testing.T) {
	resp, err := None{}.Search(context.Background(), &Request{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}
