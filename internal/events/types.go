package events

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStream is the Redis stream crawl events are appended to.
const DefaultStream = "muniwatch:events"

type EventType string

const (
	MentionCreated EventType = "mention.created"
	CrawlCompleted EventType = "crawl.completed"
)

// Event is the envelope for every published event.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type MentionCreatedPayload struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Location string `json:"location"`
	Stage    string `json:"stage"`
	Priority string `json:"priority"`
}

type CrawlCompletedPayload struct {
	RunID       uuid.UUID `json:"run_id"`
	Queries     []string  `json:"queries"`
	TotalFound  int       `json:"total_found"`
	NewMentions int       `json:"new_mentions"`
	Duplicates  int       `json:"duplicates"`
	Failures    int       `json:"failures"`
	DurationMS  int64     `json:"duration_ms"`
}
