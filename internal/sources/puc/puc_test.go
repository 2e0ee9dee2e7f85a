package puc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources/puc"
)

const newsroomHTML = `<html><body>
  <ul>
    <li><a href="/news/2026/boulder-municipal-utility">Commission rules on Boulder MUNICIPAL utility separation</a></li>
    <li><a href="https://other.example.gov/franchise">Franchise agreement hearing</a></li>
    <li><a href="/news/rate-case">Rate case decision issued</a></li>
    <li><a>Public power workshop (no link)</a></li>
  </ul>
</body></html>`

func lexiconFor(urls ...string) lexicon.PUC {
	cfg := lexicon.PUC{
		Keywords: []string{"municipal", "franchise", "public power", "takeover"},
		Paths:    []string{"/news", "/press-releases", "/newsroom", "/media"},
	}
	states := []string{"Colorado", "Texas"}
	for i, u := range urls {
		cfg.Sites = append(cfg.Sites, lexicon.PUCSite{State: states[i], BaseURL: u})
	}
	return cfg
}

func TestSearch_ScrapesFirstWorkingPath(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, sources.BrowserUserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/press-releases":
			_, _ = w.Write([]byte(newsroomHTML))
		case "/newsroom":
			t.Error("paths after the first 200 must not be fetched")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := sources.NewClient(sources.ClientOptions{HTTP: srv.Client(), UserAgent: sources.BrowserUserAgent})
	a := puc.New(lexiconFor(srv.URL), client, logger.NewNop())

	hits, err := a.Search(context.Background(), "ignored", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	mu.Lock()
	assert.Equal(t, []string{"/news", "/press-releases"}, paths)
	mu.Unlock()

	assert.Equal(t, "Commission rules on Boulder MUNICIPAL utility separation", hits[0].Title)
	assert.Equal(t, srv.URL+"/news/2026/boulder-municipal-utility", hits[0].URL)
	assert.Equal(t, "Colorado PUC: Commission rules on Boulder MUNICIPAL utility separation", hits[0].Snippet)
	assert.Equal(t, "Colorado Public Utility Commission", hits[0].Source)
	assert.Equal(t, "https://other.example.gov/franchise", hits[1].URL)
	assert.Equal(t, sources.ScopeSite, a.Scope())
}

func TestSearch_SkipsUnreachableSites(t *testing.T) {
	t.Parallel()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer down.Close()

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="/takeover">Takeover proposal filed</a>`))
	}))
	defer up.Close()

	client := sources.NewClient(sources.ClientOptions{HTTP: http.DefaultClient})
	a := puc.New(lexiconFor(down.URL, up.URL), client, logger.NewNop())

	hits, err := a.Search(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Texas Public Utility Commission", hits[0].Source)
	assert.Equal(t, up.URL+"/takeover", hits[0].URL)
}
