// Package sources defines the adapter contract shared by every external
// source muniwatch crawls, plus the rate-limited HTTP client they use.
package sources

import (
	"context"
	"errors"
	"net/url"
)

// Scope tells the orchestrator how to schedule an adapter.
type Scope int

const (
	// ScopeQuery adapters are called once per crawl query.
	ScopeQuery Scope = iota
	// ScopeSite adapters scan a fixed set of endpoints and ignore the query,
	// so they are called once per crawl.
	ScopeSite
)

func (s Scope) String() string {
	if s == ScopeSite {
		return "site"
	}
	return "query"
}

// RawHit is one unclassified search result.
type RawHit struct {
	Title   string
	URL     string
	Snippet string
	Source  string
	// PublishedAt is the date string as reported by the source, if any.
	PublishedAt string
}

// Adapter fetches raw hits from one external source. Each call is
// independent; adapters keep no cursor state between calls.
type Adapter interface {
	Name() string
	Scope() Scope
	Search(ctx context.Context, query string, maxResults int) ([]RawHit, error)
}

// ErrMissingCredentials marks an adapter that cannot run for lack of
// configuration. Adapters log it and return no hits rather than failing.
var ErrMissingCredentials = errors.New("missing credentials")

// HostOf returns the host part of rawURL, or "" when it cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
