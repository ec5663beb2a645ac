package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/searxng"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/tavily"
)

func TestNewSearcher(t *testing.T) {
	log := logger.Discard()

	cfg := config.DefaultConfig()
	s, err := NewSearcher(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, search.None{}, s)

	cfg.Search.Tavily.APIKey = "key"
	s, err = NewSearcher(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &tavily.Client{}, s)

	cfg = config.DefaultConfig()
	cfg.Search.Provider = "searxng"
	_, err = NewSearcher(cfg, log)
	assert.Error(t, err, "base url required")

	cfg.Search.SearXNG.BaseURL = "http://localhost:8888"
	s, err = NewSearcher(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &searxng.Client{}, s)

	cfg.Search.Enrich = true
	s, err = NewSearcher(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &search.Enricher{}, s)

	cfg.Search.Provider = "bing"
	_, err = NewSearcher(cfg, log)
	assert.Error(t, err)
}
