package bootstrap

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/events"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

const redisPingTimeout = 5 * time.Second

// SetupEventPublisher connects to Redis when events are enabled. It returns
// nils when Redis is disabled or unreachable; crawls run without events.
func SetupEventPublisher(cfg *config.Config, log logger.Logger) (*events.Publisher, *redis.Client) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Warn("Redis not available, events disabled",
			logger.String("redis_address", cfg.Redis.Address),
			logger.Error(err),
		)
		return nil, nil
	}

	log.Info("Event publisher initialized",
		logger.String("redis_address", cfg.Redis.Address),
		logger.String("stream", cfg.Redis.Stream),
	)
	return events.NewPublisher(client, cfg.Redis.Stream, log), client
}
