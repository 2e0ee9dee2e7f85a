package websearch_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/websearch"
)

type fakeCSE struct {
	mu       sync.Mutex
	requests []map[string]string
	total    int
}

func (f *fakeCSE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.requests = append(f.requests, map[string]string{
		"key": q.Get("key"), "cx": q.Get("cx"), "q": q.Get("q"),
		"num": q.Get("num"), "start": q.Get("start"), "dateRestrict": q.Get("dateRestrict"),
	})
	f.mu.Unlock()

	start, _ := strconv.Atoi(q.Get("start"))
	num, _ := strconv.Atoi(q.Get("num"))

	items := []map[string]any{}
	for i := start; i < start+num && i <= f.total; i++ {
		items = append(items, map[string]any{
			"title":   fmt.Sprintf("Result %d", i),
			"link":    fmt.Sprintf("https://news%d.example.com/story", i),
			"snippet": "City weighs public power",
			"pagemap": map[string]any{
				"metatags": []map[string]string{{"article:published_time": "2026-01-02T03:04:05Z"}},
			},
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

func newAdapter(t *testing.T, srv *httptest.Server, cfg websearch.Config) *websearch.Adapter {
	t.Helper()
	cfg.BaseURL = srv.URL
	client := sources.NewClient(sources.ClientOptions{HTTP: srv.Client()})
	return websearch.New(cfg, client, logger.NewNop())
}

func TestSearch_Paginates(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 100}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	hits, err := a.Search(context.Background(), "utility municipalization", 25)
	require.NoError(t, err)
	require.Len(t, hits, 25)

	require.Len(t, fake.requests, 3)
	assert.Equal(t, "1", fake.requests[0]["start"])
	assert.Equal(t, "10", fake.requests[0]["num"])
	assert.Equal(t, "11", fake.requests[1]["start"])
	assert.Equal(t, "21", fake.requests[2]["start"])
	assert.Equal(t, "5", fake.requests[2]["num"])
	assert.Equal(t, "m6", fake.requests[0]["dateRestrict"])
	assert.Equal(t, "utility municipalization", fake.requests[0]["q"])

	first := hits[0]
	assert.Equal(t, "Result 1", first.Title)
	assert.Equal(t, "https://news1.example.com/story", first.URL)
	assert.Equal(t, "news1.example.com", first.Source)
	assert.Equal(t, "2026-01-02T03:04:05Z", first.PublishedAt)
}

func TestSearch_StopsWhenExhausted(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 12}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	hits, err := a.Search(context.Background(), "q", 40)
	require.NoError(t, err)
	assert.Len(t, hits, 12)
	assert.Len(t, fake.requests, 3, "third page is empty and ends pagination")
}

func TestSearch_MissingCredentials(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 10}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k"})
	hits, err := a.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, fake.requests)
}

func TestSearch_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	hits, err := a.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, sources.ScopeQuery, a.Scope())
	assert.Equal(t, websearch.Name, a.Name())
}

func TestSearch_ClampsToResultCeiling(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 1000}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	hits, err := a.Search(context.Background(), "q", 250)
	require.NoError(t, err)
	assert.Len(t, hits, 100)
	require.Len(t, fake.requests, 10)
	assert.Equal(t, "91", fake.requests[9]["start"])
	assert.Equal(t, "10", fake.requests[9]["num"])
}

func TestSearch_HugeLimitDoesNotPreallocate(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 0}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	for _, limit := range []int{1_000_000_000, 1 << 40} {
		hits, err := a.Search(context.Background(), "q", limit)
		require.NoError(t, err)
		assert.Empty(t, hits)
	}
	assert.Len(t, fake.requests, 2)
}

func TestSearch_LaterPageFailureKeepsHits(t *testing.T) {
	t.Parallel()

	fake := &fakeCSE{total: 100}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "21" {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	a := newAdapter(t, srv, websearch.Config{APIKey: "k", EngineID: "cx"})
	hits, err := a.Search(context.Background(), "q", 30)
	require.NoError(t, err)
	assert.Len(t, hits, 20)
}
