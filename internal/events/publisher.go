// Package events publishes crawl lifecycle events to a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

// Publisher appends events to a Redis stream. A nil *Publisher is valid
// and publishes nothing.
type Publisher struct {
	client *redis.Client
	stream string
	log    logger.Logger
}

// NewPublisher returns nil if client is nil.
func NewPublisher(client *redis.Client, stream string, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{client: client, stream: stream, log: log}
}

// Publish stamps a missing id and timestamp and appends event to the stream.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": string(payload)},
	})
	if err := result.Err(); err != nil {
		return fmt.Errorf("publish to stream: %w", err)
	}

	p.log.Debug("Published event",
		logger.String("event_type", string(event.EventType)),
		logger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishMentionCreated logs rather than returns failures; a lost event
// never fails a crawl.
func (p *Publisher) PublishMentionCreated(ctx context.Context, m *models.Mention) {
	if p == nil {
		return
	}
	err := p.Publish(ctx, Event{
		EventType: MentionCreated,
		Payload: MentionCreatedPayload{
			ID:       m.ID,
			URL:      m.URL,
			Title:    m.Title,
			Source:   m.Source,
			Location: m.Location,
			Stage:    string(m.Stage),
			Priority: string(m.Priority),
		},
	})
	if err != nil {
		p.log.Warn("Failed to publish mention event", logger.String("url", m.URL), logger.Error(err))
	}
}

func (p *Publisher) PublishCrawlCompleted(ctx context.Context, run *models.CrawlRun) {
	if p == nil {
		return
	}
	err := p.Publish(ctx, Event{
		EventType: CrawlCompleted,
		Timestamp: run.FinishedAt.UTC(),
		Payload: CrawlCompletedPayload{
			RunID:       run.ID,
			Queries:     run.Queries,
			TotalFound:  run.TotalFound,
			NewMentions: run.NewUnique,
			Duplicates:  run.Duplicates,
			Failures:    run.Failures,
			DurationMS:  run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		},
	})
	if err != nil {
		p.log.Warn("Failed to publish crawl event", logger.String("run_id", run.ID.String()), logger.Error(err))
	}
}
