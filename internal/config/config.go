// Package config loads muniwatch configuration from a YAML file with
// environment variable overrides declared through `env` struct tags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

const (
	defaultServerHost      = "0.0.0.0"
	defaultServerPort      = 8080
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
	defaultRedisAddress    = "localhost:6379"
	defaultRedisStream     = "muniwatch:events"
	defaultMaxResults      = 10
	defaultRequestDelay    = time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultCrawlTimeout    = 9 * time.Minute
	defaultWorkers         = 4
	defaultRetryAttempts   = 2
	defaultMetricsPath     = "/metrics"
	defaultFeedURL         = "https://www.utilitydive.com/feeds/news/"
	maxPort                = 65535
	maxResultsPerQuery     = 100
)

// DefaultQueries are used whenever a crawl is triggered without queries.
var DefaultQueries = []string{"utility municipalization", "public power initiative"}

type Config struct {
	Debug    bool           `env:"APP_DEBUG" yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Sources  SourcesConfig  `yaml:"sources"`
	Logging  logger.Config  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST"  yaml:"host"`
	Port            int           `env:"SERVER_PORT"  yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the optional crawl event stream.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Stream   string `env:"REDIS_STREAM"         yaml:"stream"`
}

type CrawlConfig struct {
	DefaultQueries    []string      `env:"CRAWL_DEFAULT_QUERIES" yaml:"default_queries"`
	DefaultMaxResults int           `env:"CRAWL_MAX_RESULTS"     yaml:"default_max_results"`
	RequestDelay      time.Duration `env:"CRAWL_REQUEST_DELAY"   yaml:"request_delay"`
	RequestTimeout    time.Duration `env:"CRAWL_REQUEST_TIMEOUT" yaml:"request_timeout"`
	Workers           int           `env:"CRAWL_WORKERS"         yaml:"workers"`
	RetryAttempts     int           `env:"CRAWL_RETRY_ATTEMPTS"  yaml:"retry_attempts"`
	// Timeout bounds a crawl triggered over HTTP and must stay below server.write_timeout.
	Timeout time.Duration `env:"CRAWL_TIMEOUT" yaml:"timeout"`
	// Schedule is a standard 5-field cron expression. Empty disables scheduled crawls.
	Schedule    string `env:"CRAWL_SCHEDULE"     yaml:"schedule"`
	LexiconPath string `env:"CRAWL_LEXICON_PATH" yaml:"lexicon_path"`
}

type SourcesConfig struct {
	WebSearch WebSearchConfig `yaml:"websearch"`
	NewsAPI   NewsAPIConfig   `yaml:"newsapi"`
	PUC       SiteConfig      `yaml:"puc"`
	Legistar  SiteConfig      `yaml:"legistar"`
	Feeds     FeedsConfig     `yaml:"feeds"`
}

// Toggle lets a source section opt out with `disabled: true`.
type Toggle struct {
	Disabled bool `yaml:"disabled"`
}

type WebSearchConfig struct {
	Toggle   `yaml:",inline"`
	APIKey   string `env:"GOOGLE_API_KEY" yaml:"api_key"`
	EngineID string `env:"GOOGLE_CSE_ID"  yaml:"engine_id"`
	BaseURL  string `yaml:"base_url"`
}

type NewsAPIConfig struct {
	Toggle  `yaml:",inline"`
	APIKey  string `env:"NEWSAPI_KEY,NEWS_API_KEY" yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type SiteConfig struct {
	Toggle `yaml:",inline"`
}

type FeedsConfig struct {
	Toggle `yaml:",inline"`
	URLs   []string `env:"FEED_URLS" yaml:"urls"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate checks the values the service cannot run without. Adapter
// credentials are not checked here; a missing key disables that adapter.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Crawl.Workers <= 0 {
		return errors.New("crawl.workers must be positive")
	}
	if c.Crawl.DefaultMaxResults <= 0 || c.Crawl.DefaultMaxResults > maxResultsPerQuery {
		return fmt.Errorf("crawl.default_max_results must be between 1 and %d", maxResultsPerQuery)
	}
	if c.Crawl.Timeout <= 0 {
		return errors.New("crawl.timeout must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Crawl.Timeout >= c.Server.WriteTimeout {
		return fmt.Errorf("crawl.timeout (%s) must be shorter than server.write_timeout (%s)",
			c.Crawl.Timeout, c.Server.WriteTimeout)
	}
	if c.Crawl.Schedule != "" {
		if _, err := cron.ParseStandard(c.Crawl.Schedule); err != nil {
			return fmt.Errorf("crawl.schedule is invalid: %w", err)
		}
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return errors.New("redis.address is required when redis is enabled")
	}
	return nil
}

// Load reads path, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("invalid config: %w", validationErr)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	// write timeout must outlast crawl.timeout
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = defaultRedisStream
	}

	if len(cfg.Crawl.DefaultQueries) == 0 {
		cfg.Crawl.DefaultQueries = append([]string(nil), DefaultQueries...)
	}
	if cfg.Crawl.DefaultMaxResults == 0 {
		cfg.Crawl.DefaultMaxResults = defaultMaxResults
	}
	if cfg.Crawl.RequestDelay == 0 {
		cfg.Crawl.RequestDelay = defaultRequestDelay
	}
	if cfg.Crawl.RequestTimeout == 0 {
		cfg.Crawl.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Crawl.Timeout == 0 {
		cfg.Crawl.Timeout = defaultCrawlTimeout
	}
	if cfg.Crawl.Workers == 0 {
		cfg.Crawl.Workers = defaultWorkers
	}
	if cfg.Crawl.RetryAttempts == 0 {
		cfg.Crawl.RetryAttempts = defaultRetryAttempts
	}

	if len(cfg.Sources.Feeds.URLs) == 0 {
		cfg.Sources.Feeds.URLs = []string{defaultFeedURL}
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}
