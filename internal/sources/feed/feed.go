// Package feed polls RSS and Atom feeds from trade publications and keeps
// items that mention municipalization.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const Name = "feed"

type Adapter struct {
	urls     []string
	keywords *extractor.Keywords
	client   *sources.Client
	log      logger.Logger
}

func New(urls, keywords []string, client *sources.Client, log logger.Logger) *Adapter {
	return &Adapter{
		urls:     urls,
		keywords: extractor.NewKeywords(keywords),
		client:   client,
		log:      log.With(logger.String("source", Name)),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Scope() sources.Scope { return sources.ScopeSite }

// Search ignores the query and reads every configured feed. A feed that
// fails to load or parse is logged and skipped.
func (a *Adapter) Search(ctx context.Context, _ string, _ int) ([]sources.RawHit, error) {
	var hits []sources.RawHit
	for _, feedURL := range a.urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feedHits, err := a.read(ctx, feedURL)
		if err != nil {
			a.log.Warn("Feed skipped", logger.String("url", feedURL), logger.Error(err))
			continue
		}
		hits = append(hits, feedHits...)
	}
	a.log.Info("Feed scan complete", logger.Int("feeds", len(a.urls)), logger.Int("hits", len(hits)))
	return hits, nil
}

func (a *Adapter) read(ctx context.Context, feedURL string) ([]sources.RawHit, error) {
	resp, err := a.client.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(parsed.Title)
	if source == "" {
		source = sources.HostOf(feedURL)
	}

	var hits []sources.RawHit
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		description := stripMarkup(item.Description)
		if !a.keywords.Contains(item.Title + " " + description) {
			continue
		}
		link := itemLink(item)
		if link == "" {
			continue
		}
		hit := sources.RawHit{
			Title:   strings.TrimSpace(item.Title),
			URL:     link,
			Snippet: description,
			Source:  source,
		}
		if item.PublishedParsed != nil {
			hit.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if strings.HasPrefix(item.GUID, "http") {
		return item.GUID
	}
	return ""
}

// stripMarkup flattens HTML descriptions to their text content.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
