package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MaxRetainedCrawlRuns bounds the crawl log.
const MaxRetainedCrawlRuns = 100

// CrawlRun is one entry of the append-only crawl log.
type CrawlRun struct {
	ID         uuid.UUID      `db:"id"          json:"id"`
	StartedAt  time.Time      `db:"started_at"  json:"timestamp"`
	FinishedAt time.Time      `db:"finished_at" json:"finished_at"`
	Queries    pq.StringArray `db:"queries"     json:"queries"`
	TotalFound int            `db:"total_found" json:"total_found"`
	NewUnique  int            `db:"new_unique"  json:"new_unique"`
	Duplicates int            `db:"duplicates"  json:"duplicates"`
	Failures   int            `db:"failures"    json:"failures"`
}
