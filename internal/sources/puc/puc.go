// Package puc scans state public utility commission newsrooms for links
// about municipalization.
package puc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const (
	Name = "puc"

	snippetRunes = 200
)

type Adapter struct {
	sites    []lexicon.PUCSite
	paths    []string
	keywords *extractor.Keywords
	client   *sources.Client
	log      logger.Logger
}

// New builds the adapter from the lexicon's PUC site list. The client should
// carry a browser User-Agent; several commissions reject anything else.
func New(cfg lexicon.PUC, client *sources.Client, log logger.Logger) *Adapter {
	return &Adapter{
		sites:    cfg.Sites,
		paths:    cfg.Paths,
		keywords: extractor.NewKeywords(cfg.Keywords),
		client:   client,
		log:      log.With(logger.String("source", Name)),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Scope() sources.Scope { return sources.ScopeSite }

// Search ignores the query. For each commission it tries the newsroom paths
// in order and scrapes the first one that answers 200. Unreachable or
// unparsable pages are skipped.
func (a *Adapter) Search(ctx context.Context, _ string, _ int) ([]sources.RawHit, error) {
	var hits []sources.RawHit
	for _, site := range a.sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		siteHits, ok := a.scrapeSite(ctx, site)
		if !ok {
			a.log.Debug("No newsroom page found", logger.String("state", site.State))
			continue
		}
		hits = append(hits, siteHits...)
	}
	a.log.Info("PUC scan complete", logger.Int("sites", len(a.sites)), logger.Int("hits", len(hits)))
	return hits, nil
}

func (a *Adapter) scrapeSite(ctx context.Context, site lexicon.PUCSite) ([]sources.RawHit, bool) {
	base, err := url.Parse(site.BaseURL)
	if err != nil {
		a.log.Warn("Invalid PUC base URL", logger.String("state", site.State), logger.Error(err))
		return nil, false
	}

	for _, path := range a.paths {
		pageURL := strings.TrimRight(site.BaseURL, "/") + path
		resp, err := a.client.Get(ctx, pageURL)
		if err != nil {
			a.log.Debug("PUC page fetch failed", logger.String("url", pageURL), logger.Error(err))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}
		hits, err := a.parse(resp.Body, base, site.State)
		if err != nil {
			a.log.Debug("PUC page parse failed", logger.String("url", pageURL), logger.Error(err))
			continue
		}
		return hits, true
	}
	return nil, false
}

func (a *Adapter) parse(body []byte, base *url.URL, state string) ([]sources.RawHit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var hits []sources.RawHit
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		text := strings.TrimSpace(link.Text())
		if !a.keywords.Contains(text) {
			return
		}
		href, _ := link.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		hits = append(hits, sources.RawHit{
			Title:   text,
			URL:     base.ResolveReference(ref).String(),
			Snippet: fmt.Sprintf("%s PUC: %s", state, sources.Truncate(text, snippetRunes)),
			Source:  state + " Public Utility Commission",
		})
	})
	return hits, nil
}
