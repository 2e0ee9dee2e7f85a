package testhelpers

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

// StubAdapter returns canned hits. Hits keyed by "" answer every query.
type StubAdapter struct {
	AdapterName  string
	AdapterScope sources.Scope
	Hits         map[string][]sources.RawHit
	Err          error

	mu    sync.Mutex
	calls []string
	max   []int
}

func (a *StubAdapter) Name() string { return a.AdapterName }

func (a *StubAdapter) Scope() sources.Scope { return a.AdapterScope }

func (a *StubAdapter) Search(_ context.Context, query string, maxResults int) ([]sources.RawHit, error) {
	a.mu.Lock()
	a.calls = append(a.calls, query)
	a.max = append(a.max, maxResults)
	a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	if hits, ok := a.Hits[query]; ok {
		return hits, nil
	}
	return a.Hits[""], nil
}

// Calls returns the queries Search received, in call order.
func (a *StubAdapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// MaxResults returns the maxResults argument of each Search call.
func (a *StubAdapter) MaxResults() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.max...)
}
