// Package newsapi searches recent articles through the NewsAPI /v2/everything endpoint.
package newsapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const (
	Name           = "newsapi"
	DefaultBaseURL = "https://newsapi.org/v2/everything"

	// maxPageSize is the hard cap NewsAPI enforces per request.
	maxPageSize  = 100
	windowDays   = 30
	removedTitle = "[Removed]"
	dateLayout   = "2006-01-02"
	statusOK     = "ok"
)

type Config struct {
	APIKey  string
	BaseURL string
}

type Adapter struct {
	cfg      Config
	client   *sources.Client
	log      logger.Logger
	now      func() time.Time
	warnOnce sync.Once
}

func New(cfg Config, client *sources.Client, log logger.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Adapter{
		cfg:    cfg,
		client: client,
		log:    log.With(logger.String("source", Name)),
		now:    time.Now,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Scope() sources.Scope { return sources.ScopeQuery }

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

// Search issues a single request covering the last 30 days.
func (a *Adapter) Search(ctx context.Context, query string, maxResults int) ([]sources.RawHit, error) {
	if a.cfg.APIKey == "" {
		a.warnOnce.Do(func() {
			a.log.Warn("NewsAPI key not configured, adapter disabled",
				logger.Error(sources.ErrMissingCredentials))
		})
		return nil, nil
	}
	if maxResults <= 0 {
		return nil, nil
	}

	to := a.now()
	from := to.AddDate(0, 0, -windowDays)

	params := url.Values{}
	params.Set("apiKey", a.cfg.APIKey)
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(min(maxResults, maxPageSize)))
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))

	var resp everythingResponse
	if err := a.client.GetJSON(ctx, a.cfg.BaseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "" && resp.Status != statusOK {
		return nil, fmt.Errorf("newsapi: %s: %s", resp.Code, resp.Message)
	}

	hits := make([]sources.RawHit, 0, len(resp.Articles))
	for _, art := range resp.Articles {
		if art.Title == removedTitle {
			continue
		}
		source := art.Source.Name
		if source == "" {
			source = sources.HostOf(art.URL)
		}
		hits = append(hits, sources.RawHit{
			Title:       art.Title,
			URL:         art.URL,
			Snippet:     art.Description,
			Source:      source,
			PublishedAt: art.PublishedAt,
		})
	}

	a.log.Debug("NewsAPI search complete", logger.String("query", query), logger.Int("hits", len(hits)))
	return hits, nil
}
