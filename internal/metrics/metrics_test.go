package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/metrics"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.ObserveCrawl("success", 2*time.Second)
	m.ObserveCrawl("failure", time.Second)
	m.ObserveCrawl("success", time.Second)
	m.AddSourceStats("websearch", 3, 0)
	m.AddSourceStats("websearch", 2, 1)
	m.AddMentionsCreated(4)
	m.AddMentionsCreated(0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.CrawlRunsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CrawlRunsTotal.WithLabelValues("failure")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.SourceHitsTotal.WithLabelValues("websearch")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourceFailuresTotal.WithLabelValues("websearch")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.MentionsCreated), 0)
}

func TestMetrics_NilIsNoOp(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.ObserveCrawl("success", time.Second)
	m.AddSourceStats("feed", 1, 1)
	m.AddMentionsCreated(1)
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.AddMentionsCreated(2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "muniwatch_mentions_created_total 2")
	assert.Contains(t, string(body), "go_goroutines")
}
