package bootstrap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/crawl"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/metrics"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/testhelpers"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, CORSOrigins: []string{"*"}},
		Crawl: config.CrawlConfig{
			DefaultQueries:    []string{"utility municipalization"},
			DefaultMaxResults: 5,
			RequestTimeout:    2 * time.Second,
			Workers:           2,
			RetryAttempts:     1,
			Timeout:           time.Minute,
		},
		Sources: config.SourcesConfig{
			Feeds: config.FeedsConfig{URLs: []string{"https://example.com/feed"}},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func defaultLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return lex
}

func adapterNames(cfg *config.Config, lex *lexicon.Lexicon) []string {
	adapters := bootstrap.BuildAdapters(cfg, lex, logger.NewNop())
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	return names
}

func TestBuildAdapters_PriorityOrder(t *testing.T) {
	t.Parallel()

	names := adapterNames(testConfig(), defaultLexicon(t))
	assert.Equal(t, []string{"websearch", "newsapi", "puc", "legistar", "feed"}, names)
}

func TestBuildAdapters_Disabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sources.NewsAPI.Disabled = true
	cfg.Sources.Legistar.Disabled = true
	cfg.Sources.Feeds.URLs = nil

	names := adapterNames(cfg, defaultLexicon(t))
	assert.Equal(t, []string{"websearch", "puc"}, names)
}

func TestSetupCrawlService_EndToEnd(t *testing.T) {
	t.Parallel()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Boulder weighs municipal utility","link":"https://news.example.com/boulder","snippet":"Xcel Energy franchise vote"},
			{"title":"Boulder weighs municipal utility","link":"https://news.example.com/boulder","snippet":"repeat"}
		]}`))
	}))
	defer api.Close()

	cfg := testConfig()
	cfg.Sources.WebSearch.APIKey = "key"
	cfg.Sources.WebSearch.EngineID = "cx"
	cfg.Sources.WebSearch.BaseURL = api.URL
	cfg.Sources.NewsAPI.Disabled = true
	cfg.Sources.PUC.Disabled = true
	cfg.Sources.Legistar.Disabled = true
	cfg.Sources.Feeds.Disabled = true

	store := testhelpers.NewMemoryStore()
	svc, err := bootstrap.SetupCrawlService(cfg, defaultLexicon(t), store, store, logger.NewNop())
	require.NoError(t, err)

	summary, err := svc.Crawl(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewMentions)
	assert.Equal(t, 2, summary.TotalFound)
	assert.Equal(t, 1, summary.Duplicates)

	stored := store.Mentions()
	require.Len(t, stored, 1)
	assert.Equal(t, "https://news.example.com/boulder", stored[0].URL)

	runs, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"utility municipalization"}, []string(runs[0].Queries))
}

func TestSetupCrawlService_LogsConfiguredAdapters(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sources.Legistar.Disabled = true
	log := testhelpers.NewRecordingLogger()
	store := testhelpers.NewMemoryStore()

	_, err := bootstrap.SetupCrawlService(cfg, defaultLexicon(t), store, store, log)
	require.NoError(t, err)

	entries := log.Entries("Source adapters configured")
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"websearch", "newsapi", "puc", "feed"}, entries[0].Fields["adapters"])
}

func TestSetupEventPublisher(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		pub, client := bootstrap.SetupEventPublisher(testConfig(), logger.NewNop())
		assert.Nil(t, pub)
		assert.Nil(t, client)
	})

	t.Run("connected", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.Redis = config.RedisConfig{Enabled: true, Address: mr.Addr(), Stream: "muniwatch:events"}

		pub, client := bootstrap.SetupEventPublisher(cfg, logger.NewNop())
		require.NotNil(t, pub)
		require.NotNil(t, client)
		_ = client.Close()
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := testConfig()
		cfg.Redis = config.RedisConfig{Enabled: true, Address: addr, Stream: "muniwatch:events"}

		pub, client := bootstrap.SetupEventPublisher(cfg, logger.NewNop())
		assert.Nil(t, pub)
		assert.Nil(t, client)
	})
}

func TestSetupHTTPServer_Routes(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	deps := bootstrap.HTTPDeps{Mentions: store, Runs: store, Metrics: metrics.New()}

	cfg := testConfig()
	router := bootstrap.SetupHTTPServer(cfg, deps, logger.NewNop()).Router()
	for _, path := range []string{"/health", "/ready", "/api/health", "/api/mentions", "/api/stats", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	cfg.Metrics.Enabled = false
	router = bootstrap.SetupHTTPServer(cfg, deps, logger.NewNop()).Router()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type blockingCrawler struct{}

func (blockingCrawler) Crawl(ctx context.Context, _ []string, _ int) (*crawl.Summary, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSetupHTTPServer_CrawlTimeout(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	deps := bootstrap.HTTPDeps{Mentions: store, Runs: store, Crawler: blockingCrawler{}}

	cfg := testConfig()
	cfg.Crawl.Timeout = 20 * time.Millisecond
	router := bootstrap.SetupHTTPServer(cfg, deps, logger.NewNop()).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"crawl timed out"}`, w.Body.String())
}

func TestCreateLogger(t *testing.T) {
	t.Cleanup(func() { logger.SetDefault(nil) })

	cfg := testConfig()
	cfg.Debug = true
	log, err := bootstrap.CreateLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Same(t, log, logger.FromContext(context.Background()))
}
