package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

const crawlRunColumns = `id, started_at, finished_at, queries, total_found, new_unique, duplicates, failures`

// CrawlRunRepository keeps the bounded crawl log.
type CrawlRunRepository struct {
	db     *sqlx.DB
	retain int
}

func NewCrawlRunRepository(db *sqlx.DB) *CrawlRunRepository {
	return &CrawlRunRepository{db: db, retain: models.MaxRetainedCrawlRuns}
}

// Append records run and trims the log to the most recent runs in one
// transaction.
func (r *CrawlRunRepository) Append(ctx context.Context, run *models.CrawlRun) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO crawl_runs (`+crawlRunColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Queries,
		run.TotalFound, run.NewUnique, run.Duplicates, run.Failures,
	); err != nil {
		return fmt.Errorf("failed to insert crawl run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM crawl_runs
		WHERE id NOT IN (
			SELECT id FROM crawl_runs ORDER BY started_at DESC LIMIT $1
		)`, r.retain,
	); err != nil {
		return fmt.Errorf("failed to trim crawl runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit crawl run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit
// returns the whole retained window.
func (r *CrawlRunRepository) Recent(ctx context.Context, limit int) ([]models.CrawlRun, error) {
	if limit <= 0 || limit > r.retain {
		limit = r.retain
	}
	runs := []models.CrawlRun{}
	if err := r.db.SelectContext(ctx, &runs,
		`SELECT `+crawlRunColumns+` FROM crawl_runs ORDER BY started_at DESC LIMIT $1`, limit); err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	return runs, nil
}
