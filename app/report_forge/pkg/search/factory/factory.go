package factory

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/search"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/searxng"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config, log logrus.FieldLogger) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" && cfg.Search.Tavily.APIKey != "" {
		provider = "tavily"
	}

	var s search.Searcher
	switch provider {
	case "", "none":
		// 不配置搜索时章节仅依据标题与主题撰写
		return search.None{}, nil

	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		s = tavily.NewClient(cfg.Search.Tavily.APIKey)

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		s = searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout)

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}

	if cfg.Search.Enrich {
		s = search.NewEnricher(s, search.NewReadabilityFetcher(30*time.Second), log)
	}
	return s, nil
}
