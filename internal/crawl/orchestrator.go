// Package crawl drives the source adapters across a set of queries,
// deduplicates their hits by URL and persists the new mentions.
package crawl

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/normalizer"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const (
	defaultWorkers = 4

	// MaxResultsLimit caps MaxResultsPerQuery. No source serves more than
	// 100 results for one query.
	MaxResultsLimit = 100
)

// ErrNoAdapters is returned when the orchestrator has nothing to run.
var ErrNoAdapters = errors.New("no source adapters configured")

// URLChecker reports which of a set of URLs are already persisted.
type URLChecker interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error)
}

// Request is one crawl invocation. MaxResultsPerQuery is clamped to
// MaxResultsLimit. Known is optional; when nil, only in-run duplicates are
// removed.
type Request struct {
	Queries            []string
	MaxResultsPerQuery int
	Known              URLChecker
}

// SourceStats counts one adapter's contribution to a run.
type SourceStats struct {
	Hits     int `json:"hits"`
	Failures int `json:"failures"`
}

type Stats struct {
	// TotalFound counts every hit that carried a URL, duplicates included.
	TotalFound      int                    `json:"total_found"`
	InRunDuplicates int                    `json:"in_run_duplicates"`
	KnownDuplicates int                    `json:"known_duplicates"`
	Failures        int                    `json:"failures"`
	PerSource       map[string]SourceStats `json:"per_source"`
}

type Result struct {
	Mentions []models.Mention
	Stats    Stats
}

type task struct {
	adapter sources.Adapter
	query   string
}

type taskResult struct {
	hits []sources.RawHit
	err  error
}

// Orchestrator fans (adapter, query) tasks out to a bounded pool and merges
// the results in adapter priority order, then query order.
type Orchestrator struct {
	adapters   []sources.Adapter
	normalizer *normalizer.Normalizer
	workers    int
	log        logger.Logger
}

// NewOrchestrator keeps adapters in the given order; that order decides
// which of two hits sharing a URL is kept.
func NewOrchestrator(adapters []sources.Adapter, n *normalizer.Normalizer, workers int, log logger.Logger) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Orchestrator{
		adapters:   adapters,
		normalizer: n,
		workers:    workers,
		log:        log,
	}
}

// Adapters returns the adapter names in priority order.
func (o *Orchestrator) Adapters() []string {
	names := make([]string, 0, len(o.adapters))
	for _, a := range o.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Run executes every task. Adapter failures are logged and counted, never
// returned; Run only fails on cancellation or when Known cannot be queried.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if len(o.adapters) == 0 {
		return nil, ErrNoAdapters
	}

	maxResults := min(req.MaxResultsPerQuery, MaxResultsLimit)
	tasks := o.plan(req.Queries)
	results := make([]taskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = o.execute(ctx, t, maxResults)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl canceled: %w", err)
	}

	res := o.merge(tasks, results)

	if req.Known != nil && len(res.Mentions) > 0 {
		if err := o.dropKnown(ctx, req.Known, res); err != nil {
			return nil, err
		}
	}

	o.log.Info("Crawl run complete",
		logger.Int("tasks", len(tasks)),
		logger.Int("total_found", res.Stats.TotalFound),
		logger.Int("unique", len(res.Mentions)),
		logger.Int("in_run_duplicates", res.Stats.InRunDuplicates),
		logger.Int("known_duplicates", res.Stats.KnownDuplicates),
		logger.Int("failures", res.Stats.Failures),
	)
	return res, nil
}

// plan lists tasks in merge order. Site-scoped adapters get one task with
// an empty query.
func (o *Orchestrator) plan(queries []string) []task {
	var tasks []task
	for _, a := range o.adapters {
		if a.Scope() == sources.ScopeSite {
			tasks = append(tasks, task{adapter: a})
			continue
		}
		for _, q := range queries {
			tasks = append(tasks, task{adapter: a, query: q})
		}
	}
	return tasks
}

func (o *Orchestrator) execute(ctx context.Context, t task, maxResults int) (res taskResult) {
	defer func() {
		if r := recover(); r != nil {
			res = taskResult{err: fmt.Errorf("adapter panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return taskResult{err: err}
	}
	hits, err := t.adapter.Search(ctx, t.query, maxResults)
	return taskResult{hits: hits, err: err}
}

func (o *Orchestrator) merge(tasks []task, results []taskResult) *Result {
	res := &Result{Stats: Stats{PerSource: make(map[string]SourceStats, len(o.adapters))}}
	seen := make(map[string]struct{})

	for i, t := range tasks {
		name := t.adapter.Name()
		src := res.Stats.PerSource[name]

		if err := results[i].err; err != nil {
			src.Failures++
			res.Stats.Failures++
			res.Stats.PerSource[name] = src
			o.log.Warn("Adapter search failed",
				logger.String("source", name),
				logger.String("scope", t.adapter.Scope().String()),
				logger.String("query", t.query),
				logger.Error(err),
			)
			continue
		}

		for _, hit := range results[i].hits {
			if hit.URL == "" {
				continue
			}
			src.Hits++
			res.Stats.TotalFound++
			if _, dup := seen[hit.URL]; dup {
				res.Stats.InRunDuplicates++
				continue
			}
			seen[hit.URL] = struct{}{}
			res.Mentions = append(res.Mentions, o.normalizer.Normalize(hit))
		}
		res.Stats.PerSource[name] = src
	}
	return res
}

func (o *Orchestrator) dropKnown(ctx context.Context, known URLChecker, res *Result) error {
	urls := make([]string, len(res.Mentions))
	for i := range res.Mentions {
		urls[i] = res.Mentions[i].URL
	}
	existing, err := known.ExistingURLs(ctx, urls)
	if err != nil {
		return fmt.Errorf("check persisted urls: %w", err)
	}

	kept := res.Mentions[:0]
	for _, m := range res.Mentions {
		if existing[m.URL] {
			res.Stats.KnownDuplicates++
			continue
		}
		kept = append(kept, m)
	}
	res.Mentions = kept
	return nil
}
