// Package scheduler runs crawls on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/crawl"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

// Crawler is the crawl entry point the scheduler drives.
type Crawler interface {
	Crawl(ctx context.Context, queries []string, maxResults int) (*crawl.Summary, error)
}

// Scheduler triggers a default-query crawl on every tick of its schedule.
type Scheduler struct {
	cron     *cron.Cron
	parser   cron.Parser
	crawler  Crawler
	schedule string
	log      logger.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func New(schedule string, crawler Crawler, log logger.Logger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		parser:   parser,
		crawler:  crawler,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the schedule and starts the cron loop. Cancelling ctx
// aborts a crawl in flight but does not stop the loop; call Stop for that.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	sched, err := s.parser.Parse(s.schedule)
	if err != nil {
		return fmt.Errorf("parse crawl schedule %q: %w", s.schedule, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() { s.Trigger(s.ctx) }))
	s.cron.Start()
	s.running = true

	s.log.Info("Crawl scheduler started",
		logger.String("schedule", s.schedule),
		logger.Time("next_run", sched.Next(time.Now())),
	)
	return nil
}

// Trigger runs one scheduled crawl with the service defaults. Errors are
// logged, never returned, so a failing tick leaves the schedule intact.
func (s *Scheduler) Trigger(ctx context.Context) {
	started := time.Now()
	summary, err := s.crawler.Crawl(ctx, nil, 0)
	if err != nil {
		s.log.Error("Scheduled crawl failed", logger.Error(err), logger.Duration("duration", time.Since(started)))
		return
	}
	s.log.Info("Scheduled crawl completed",
		logger.Int("new_mentions", summary.NewMentions),
		logger.Int("total_found", summary.TotalFound),
		logger.Int("duplicates", summary.Duplicates),
		logger.Duration("duration", time.Since(started)),
	)
}

// Next reports the next scheduled run, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop halts the loop and waits for a running crawl to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.log.Info("Crawl scheduler stopped")
}
