package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MentionStore is the persistence the crawl service writes to. Insert must
// be insert-or-skip on URL and report whether a row was written.
type MentionStore interface {
	URLChecker
	Insert(ctx context.Context, m *models.Mention) (bool, error)
}

type CrawlRunStore interface {
	Append(ctx context.Context, run *models.CrawlRun) error
}

// Recorder receives crawl metrics. *metrics.Metrics implements it.
type Recorder interface {
	ObserveCrawl(outcome string, elapsed time.Duration)
	AddSourceStats(source string, hits, failures int)
	AddMentionsCreated(n int)
}

// Publisher receives crawl events. *events.Publisher implements it.
type Publisher interface {
	PublishMentionCreated(ctx context.Context, m *models.Mention)
	PublishCrawlCompleted(ctx context.Context, run *models.CrawlRun)
}

// Summary is what a crawl trigger gets back.
type Summary struct {
	NewMentions int `json:"new_mentions"`
	TotalFound  int `json:"total_found"`
	Duplicates  int `json:"duplicates"`
}

type ServiceConfig struct {
	DefaultQueries    []string
	DefaultMaxResults int
}

// Service runs a crawl end to end: orchestrate, persist, log the run.
// Crawls are serialized; a second caller waits for the running one.
type Service struct {
	cfg          ServiceConfig
	orchestrator *Orchestrator
	mentions     MentionStore
	runs         CrawlRunStore
	recorder     Recorder
	publisher    Publisher
	log          logger.Logger
	now          func() time.Time

	mu sync.Mutex
}

// Option configures optional Service collaborators.
type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(
	cfg ServiceConfig,
	orchestrator *Orchestrator,
	mentions MentionStore,
	runs CrawlRunStore,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:          cfg,
		orchestrator: orchestrator,
		mentions:     mentions,
		runs:         runs,
		recorder:     nopRecorder{},
		publisher:    nopPublisher{},
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl runs one crawl. Empty queries and a non-positive max fall back to
// the configured defaults.
func (s *Service) Crawl(ctx context.Context, queries []string, maxResults int) (*Summary, error) {
	if s.orchestrator == nil {
		return nil, ErrNoAdapters
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(queries) == 0 {
		queries = s.cfg.DefaultQueries
	}
	if maxResults <= 0 {
		maxResults = s.cfg.DefaultMaxResults
	}
	maxResults = min(maxResults, MaxResultsLimit)

	started := s.now()
	s.log.Info("Starting crawl", logger.Strings("queries", queries), logger.Int("max_results", maxResults))

	res, err := s.orchestrator.Run(ctx, Request{
		Queries:            queries,
		MaxResultsPerQuery: maxResults,
		Known:              s.mentions,
	})
	if err != nil {
		s.recorder.ObserveCrawl(OutcomeFailure, s.now().Sub(started))
		return nil, fmt.Errorf("run crawl: %w", err)
	}
	for name, src := range res.Stats.PerSource {
		s.recorder.AddSourceStats(name, src.Hits, src.Failures)
	}

	inserted, err := s.persist(ctx, res.Mentions)
	if err != nil {
		s.recorder.ObserveCrawl(OutcomeFailure, s.now().Sub(started))
		return nil, err
	}

	summary := &Summary{
		NewMentions: inserted,
		TotalFound:  res.Stats.TotalFound,
		Duplicates:  res.Stats.TotalFound - inserted,
	}

	run := &models.CrawlRun{
		ID:         uuid.New(),
		StartedAt:  started,
		FinishedAt: s.now(),
		Queries:    queries,
		TotalFound: summary.TotalFound,
		NewUnique:  summary.NewMentions,
		Duplicates: summary.Duplicates,
		Failures:   res.Stats.Failures,
	}
	if err := s.runs.Append(ctx, run); err != nil {
		s.recorder.ObserveCrawl(OutcomeFailure, s.now().Sub(started))
		s.log.Error("Failed to record crawl run",
			logger.String("run_id", run.ID.String()),
			logger.Int("new_mentions", summary.NewMentions),
			logger.Error(err),
		)
		return nil, fmt.Errorf("record crawl run: %w", err)
	}

	s.recorder.AddMentionsCreated(inserted)
	s.recorder.ObserveCrawl(OutcomeSuccess, run.FinishedAt.Sub(started))
	s.publisher.PublishCrawlCompleted(ctx, run)

	s.log.Info("Crawl complete",
		logger.String("run_id", run.ID.String()),
		logger.Int("new_mentions", summary.NewMentions),
		logger.Int("total_found", summary.TotalFound),
		logger.Int("duplicates", summary.Duplicates),
		logger.Duration("duration", run.FinishedAt.Sub(started)),
	)
	return summary, nil
}

// persist writes mentions one row at a time. On failure the URLs that were
// not written are logged so the batch is recoverable.
func (s *Service) persist(ctx context.Context, mentions []models.Mention) (int, error) {
	inserted := 0
	for i := range mentions {
		ok, err := s.mentions.Insert(ctx, &mentions[i])
		if err != nil {
			unwritten := make([]string, 0, len(mentions)-i)
			for _, m := range mentions[i:] {
				unwritten = append(unwritten, m.URL)
			}
			s.log.Error("Failed to persist mentions",
				logger.Int("written", inserted),
				logger.Strings("unwritten_urls", unwritten),
				logger.Error(err),
			)
			return inserted, fmt.Errorf("persist mention %s: %w", mentions[i].URL, err)
		}
		if !ok {
			// lost an insert race; counted as a duplicate
			continue
		}
		inserted++
		s.publisher.PublishMentionCreated(ctx, &mentions[i])
	}
	return inserted, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveCrawl(string, time.Duration) {}
func (nopRecorder) AddSourceStats(string, int, int)    {}
func (nopRecorder) AddMentionsCreated(int)             {}

type nopPublisher struct{}

func (nopPublisher) PublishMentionCreated(context.Context, *models.Mention)  {}
func (nopPublisher) PublishCrawlCompleted(context.Context, *models.CrawlRun) {}
