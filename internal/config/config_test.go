package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
)

const sampleYAML = `
server:
  port: 9090
database:
  host: db.internal
  user: muniwatch
  dbname: muniwatch
crawl:
  workers: 2
  request_delay: 250ms
  default_queries:
    - community choice aggregation
sources:
  newsapi:
    disabled: true
  feeds:
    urls:
      - https://example.com/rss
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 2, cfg.Crawl.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawl.RequestDelay)
	assert.Equal(t, 10*time.Second, cfg.Crawl.RequestTimeout)
	assert.Equal(t, 10, cfg.Crawl.DefaultMaxResults)
	assert.Equal(t, []string{"community choice aggregation"}, cfg.Crawl.DefaultQueries)
	assert.True(t, cfg.Sources.NewsAPI.Disabled)
	assert.False(t, cfg.Sources.WebSearch.Disabled)
	assert.Equal(t, []string{"https://example.com/rss"}, cfg.Sources.Feeds.URLs)
	assert.Equal(t, "muniwatch:events", cfg.Redis.Stream)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 9*time.Minute, cfg.Crawl.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GOOGLE_API_KEY", "key-123")
	t.Setenv("CRAWL_DEFAULT_QUERIES", "public power, municipal utility")
	t.Setenv("CRAWL_REQUEST_DELAY", "2s")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "key-123", cfg.Sources.WebSearch.APIKey)
	assert.Equal(t, []string{"public power", "municipal utility"}, cfg.Crawl.DefaultQueries)
	assert.Equal(t, 2*time.Second, cfg.Crawl.RequestDelay)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "muniwatch")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.DefaultQueries, cfg.Crawl.DefaultQueries)
}

func TestLoad_EnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("NEWSAPI_KEY=from-dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", envPath)
	t.Setenv("NEWSAPI_KEY", "")
	require.NoError(t, os.Unsetenv("NEWSAPI_KEY"))

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Sources.NewsAPI.APIKey)
}

func TestLoad_NewsAPIKeyAliases(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("NEWSAPI_KEY", "")
	t.Setenv("NEWS_API_KEY", "legacy-key")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.Sources.NewsAPI.APIKey)

	t.Setenv("NEWSAPI_KEY", "primary-key")
	cfg, err = config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "primary-key", cfg.Sources.NewsAPI.APIKey)
}

func TestValidate(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing database host",
			yaml:    "database:\n  user: u\n  dbname: d\n",
			wantErr: "database.host is required",
		},
		{
			name:    "bad port",
			yaml:    "server:\n  port: 70000\ndatabase:\n  host: h\n  user: u\n  dbname: d\n",
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "bad schedule",
			yaml:    "database:\n  host: h\n  user: u\n  dbname: d\ncrawl:\n  schedule: every tuesday\n",
			wantErr: "crawl.schedule is invalid",
		},
		{
			name:    "max results above source limit",
			yaml:    "database:\n  host: h\n  user: u\n  dbname: d\ncrawl:\n  default_max_results: 500\n",
			wantErr: "crawl.default_max_results must be between 1 and 100",
		},
		{
			name:    "crawl timeout not below write timeout",
			yaml:    "server:\n  write_timeout: 2m\ndatabase:\n  host: h\n  user: u\n  dbname: d\ncrawl:\n  timeout: 2m\n",
			wantErr: "crawl.timeout (2m0s) must be shorter than server.write_timeout (2m0s)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yml", config.GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/muniwatch.yml")
	assert.Equal(t, "/etc/muniwatch.yml", config.GetConfigPath("config.yml"))
}
