// Package bootstrap handles application initialization and lifecycle
// management for muniwatch.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/crawl"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/database"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/events"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/metrics"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/scheduler"
)

// App holds the long-lived components shared by every command.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Publisher *events.Publisher
	Metrics   *metrics.Metrics
	Mentions  *database.MentionRepository
	Runs      *database.CrawlRunRepository
	Crawler   *crawl.Service
}

// NewApp loads configuration and connects every dependency. Callers must
// Close the returned App.
func NewApp(configPath string, debug bool) (*App, error) {
	// Phase 1: config and logger
	cfg, err := LoadConfig(configPath, debug)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := CreateLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	app := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	lex, err := LoadLexicon(cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Phase 2: database
	app.DB, err = SetupDatabase(cfg, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Mentions = database.NewMentionRepository(app.DB)
	app.Runs = database.NewCrawlRunRepository(app.DB)

	// Phase 3: event publisher (optional)
	app.Publisher, app.Redis = SetupEventPublisher(cfg, log)

	// Phase 4: crawl service
	opts := []crawl.Option{crawl.WithRecorder(app.Metrics)}
	if app.Publisher != nil {
		opts = append(opts, crawl.WithPublisher(app.Publisher))
	}
	app.Crawler, err = SetupCrawlService(cfg, lex, app.Mentions, app.Runs, log, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases connections and flushes the logger.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Error("Failed to close redis", logger.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Error("Failed to close database", logger.Error(err))
		}
	}
	_ = a.Log.Sync()
}

// Serve runs the HTTP server, and the crawl scheduler when one is
// configured, until ctx is cancelled or a shutdown signal arrives.
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Crawl.Schedule != "" {
		sched := scheduler.New(a.Config.Crawl.Schedule, a.Crawler, a.Log)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	srv := SetupHTTPServer(a.Config, HTTPDeps{
		Mentions: a.Mentions,
		Runs:     a.Runs,
		Crawler:  a.Crawler,
		DB:       a.DB,
		Metrics:  a.Metrics,
	}, a.Log)

	if err := srv.Run(ctx); err != nil {
		a.Log.Error("Server error", logger.Error(err))
		return fmt.Errorf("server error: %w", err)
	}
	a.Log.Info("Server exited")
	return nil
}

// Migrate applies pending migrations, or rolls back steps migrations when
// steps is positive. It only needs configuration and the database.
func Migrate(configPath string, debug bool, steps int) error {
	if steps < 0 {
		return errors.New("rollback steps must be positive")
	}
	cfg, err := LoadConfig(configPath, debug)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := CreateLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	if steps > 0 {
		return database.MigrateDown(db.DB, steps, log)
	}
	return database.Migrate(db.DB, log)
}
