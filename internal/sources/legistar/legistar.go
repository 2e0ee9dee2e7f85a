// Package legistar reads recent city council agendas from Legistar web APIs
// and reports agenda items that mention municipal utilities.
package legistar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const (
	Name = "legistar"

	titleRunes        = 100
	snippetTitleRunes = 150
	dateLayout        = "2006-01-02"
	dayHours          = 24
)

// Event is the subset of a Legistar event used here.
type Event struct {
	EventID   int    `json:"EventId"`
	EventDate string `json:"EventDate"`
}

// EventItem is the subset of a Legistar agenda item used here.
type EventItem struct {
	Title      string `json:"EventItemTitle"`
	MatterName string `json:"EventItemMatterName"`
}

type Adapter struct {
	cities    []lexicon.LegistarCity
	keywords  *extractor.Keywords
	lookback  time.Duration
	maxEvents int
	client    *sources.Client
	log       logger.Logger
	now       func() time.Time
}

func New(cfg lexicon.Legistar, client *sources.Client, log logger.Logger) *Adapter {
	return &Adapter{
		cities:    cfg.Cities,
		keywords:  extractor.NewKeywords(cfg.Keywords),
		lookback:  time.Duration(cfg.LookbackDays) * dayHours * time.Hour,
		maxEvents: cfg.MaxEvents,
		client:    client,
		log:       log.With(logger.String("source", Name)),
		now:       time.Now,
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Scope() sources.Scope { return sources.ScopeSite }

// Search ignores the query and scans every configured city. A city whose
// API is unreachable is skipped so one outage does not hide the others.
func (a *Adapter) Search(ctx context.Context, _ string, _ int) ([]sources.RawHit, error) {
	since := a.now().Add(-a.lookback).Format(dateLayout)

	var hits []sources.RawHit
	for _, city := range a.cities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cityHits, err := a.searchCity(ctx, city, since)
		if err != nil {
			a.log.Warn("Legistar city skipped", logger.String("city", city.Name), logger.Error(err))
			continue
		}
		hits = append(hits, cityHits...)
	}
	a.log.Info("Legistar scan complete", logger.Int("cities", len(a.cities)), logger.Int("hits", len(hits)))
	return hits, nil
}

func (a *Adapter) searchCity(ctx context.Context, city lexicon.LegistarCity, since string) ([]sources.RawHit, error) {
	api := strings.TrimRight(city.APIBase, "/")

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("EventDate ge datetime'%s'", since))
	params.Set("$top", strconv.Itoa(a.maxEvents))

	var events []Event
	if err := a.client.GetJSON(ctx, api+"/Events?"+params.Encode(), &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var hits []sources.RawHit
	for _, ev := range events {
		if ev.EventID == 0 {
			continue
		}
		var items []EventItem
		itemsURL := fmt.Sprintf("%s/Events/%d/EventItems", api, ev.EventID)
		if err := a.client.GetJSON(ctx, itemsURL, &items); err != nil {
			a.log.Debug("Agenda items unavailable",
				logger.String("city", city.Name),
				logger.Int("event_id", ev.EventID),
				logger.Error(err),
			)
			continue
		}
		for _, item := range items {
			if !a.keywords.Contains(item.Title + " " + item.MatterName) {
				continue
			}
			hits = append(hits, sources.RawHit{
				Title:       fmt.Sprintf("%s Council: %s", city.Name, sources.Truncate(item.Title, titleRunes)),
				URL:         MeetingURL(api, ev.EventID),
				Snippet:     fmt.Sprintf("Council agenda item: %s. %s", item.MatterName, sources.Truncate(item.Title, snippetTitleRunes)),
				Source:      city.Name + " City Council",
				PublishedAt: sources.Truncate(ev.EventDate, len(dateLayout)),
			})
		}
	}
	return hits, nil
}

// MeetingURL is the public meeting page for an event. The API path
// ("/api/v1", "/api/v2/legistar") is dropped from the base.
func MeetingURL(apiBase string, eventID int) string {
	site := strings.TrimRight(apiBase, "/")
	if i := strings.Index(site, "/api/"); i >= 0 {
		site = site[:i]
	}
	return fmt.Sprintf("%s/MeetingDetail.aspx?ID=%d", site, eventID)
}
