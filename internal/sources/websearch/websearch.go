// Package websearch queries the Google Custom Search JSON API.
package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const (
	// Name identifies the adapter in logs, metrics and crawl stats.
	Name = "websearch"

	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	pageSize     = 10
	dateRestrict = "m6"
	// resultCeiling is the CSE limit: start+num may not pass 100.
	resultCeiling = 100
)

type Config struct {
	APIKey   string
	EngineID string
	// BaseURL overrides the API endpoint. Tests point it at httptest servers.
	BaseURL string
}

type Adapter struct {
	cfg      Config
	client   *sources.Client
	log      logger.Logger
	warnOnce sync.Once
}

func New(cfg Config, client *sources.Client, log logger.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Adapter{cfg: cfg, client: client, log: log.With(logger.String("source", Name))}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Scope() sources.Scope { return sources.ScopeQuery }

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Pagemap struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
}

// Search pages through results ten at a time until limit hits are collected
// or a page comes back empty. limit is clamped to the CSE ceiling of 100. A
// failing page after the first keeps the hits already collected. Missing
// credentials yield no hits.
func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]sources.RawHit, error) {
	if a.cfg.APIKey == "" || a.cfg.EngineID == "" {
		a.warnOnce.Do(func() {
			a.log.Warn("Web search credentials not configured, adapter disabled",
				logger.Error(sources.ErrMissingCredentials))
		})
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, resultCeiling)

	pages := (limit + pageSize - 1) / pageSize
	var hits []sources.RawHit

	for page := range pages {
		var resp searchResponse
		if err := a.client.GetJSON(ctx, a.pageURL(query, page, min(pageSize, limit-len(hits))), &resp); err != nil {
			if len(hits) == 0 {
				return nil, fmt.Errorf("websearch page %d: %w", page+1, err)
			}
			a.log.Warn("Web search page failed, keeping earlier pages",
				logger.String("query", query),
				logger.Int("page", page+1),
				logger.Int("hits", len(hits)),
				logger.Error(err),
			)
			break
		}
		if len(resp.Items) == 0 {
			break
		}

		for _, item := range resp.Items {
			hit := sources.RawHit{
				Title:   item.Title,
				URL:     item.Link,
				Snippet: item.Snippet,
				Source:  sources.HostOf(item.Link),
			}
			if len(item.Pagemap.Metatags) > 0 {
				hit.PublishedAt = item.Pagemap.Metatags[0]["article:published_time"]
			}
			hits = append(hits, hit)
		}
		if len(hits) >= limit {
			break
		}
	}

	a.log.Debug("Web search complete", logger.String("query", query), logger.Int("hits", len(hits)))
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (a *Adapter) pageURL(query string, page, num int) string {
	params := url.Values{}
	params.Set("key", a.cfg.APIKey)
	params.Set("cx", a.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(page*pageSize+1))
	params.Set("dateRestrict", dateRestrict)
	return a.cfg.BaseURL + "?" + params.Encode()
}
