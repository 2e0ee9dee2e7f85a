package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/crawl"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/normalizer"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/feed"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/legistar"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/newsapi"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/puc"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/websearch"
)

// BuildAdapters returns the enabled adapters in merge priority order. Each
// source gets its own rate-limited client over one shared transport.
func BuildAdapters(cfg *config.Config, lex *lexicon.Lexicon, log logger.Logger) []sources.Adapter {
	httpClient := sources.NewHTTPClient(cfg.Crawl.RequestTimeout)
	client := func(userAgent string) *sources.Client {
		return sources.NewClient(sources.ClientOptions{
			HTTP:          httpClient,
			Delay:         cfg.Crawl.RequestDelay,
			RetryAttempts: cfg.Crawl.RetryAttempts,
			UserAgent:     userAgent,
		})
	}

	src := cfg.Sources
	var adapters []sources.Adapter
	if !src.WebSearch.Disabled {
		adapters = append(adapters, websearch.New(websearch.Config{
			APIKey:   src.WebSearch.APIKey,
			EngineID: src.WebSearch.EngineID,
			BaseURL:  src.WebSearch.BaseURL,
		}, client(""), log))
	}
	if !src.NewsAPI.Disabled {
		adapters = append(adapters, newsapi.New(newsapi.Config{
			APIKey:  src.NewsAPI.APIKey,
			BaseURL: src.NewsAPI.BaseURL,
		}, client(""), log))
	}
	if !src.PUC.Disabled && len(lex.PUC.Sites) > 0 {
		adapters = append(adapters, puc.New(lex.PUC, client(sources.BrowserUserAgent), log))
	}
	if !src.Legistar.Disabled && len(lex.Legistar.Cities) > 0 {
		adapters = append(adapters, legistar.New(lex.Legistar, client(""), log))
	}
	if !src.Feeds.Disabled && len(src.Feeds.URLs) > 0 {
		adapters = append(adapters, feed.New(src.Feeds.URLs, lex.Feeds.Keywords, client(""), log))
	}
	return adapters
}

// SetupCrawlService wires adapters, classification and persistence into a
// crawl service.
func SetupCrawlService(
	cfg *config.Config,
	lex *lexicon.Lexicon,
	mentions crawl.MentionStore,
	runs crawl.CrawlRunStore,
	log logger.Logger,
	opts ...crawl.Option,
) (*crawl.Service, error) {
	ex, err := extractor.New(lex)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	var orchestrator *crawl.Orchestrator
	if adapters := BuildAdapters(cfg, lex, log); len(adapters) > 0 {
		orchestrator = crawl.NewOrchestrator(adapters, normalizer.New(ex), cfg.Crawl.Workers, log)
		log.Info("Source adapters configured", logger.Strings("adapters", orchestrator.Adapters()))
	} else {
		log.Warn("No source adapters enabled, crawls will fail")
	}

	return crawl.NewService(crawl.ServiceConfig{
		DefaultQueries:    cfg.Crawl.DefaultQueries,
		DefaultMaxResults: cfg.Crawl.DefaultMaxResults,
	}, orchestrator, mentions, runs, log, opts...), nil
}
