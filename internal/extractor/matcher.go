package extractor

import (
	"slices"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// termMatcher finds which of an ordered term list occur in a text, case
// insensitively, in one pass over the text.
type termMatcher struct {
	// ahocorasick.Matcher mutates internal counters on every Match call.
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
}

func newTermMatcher(terms []string) *termMatcher {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		lowered = append(lowered, strings.ToLower(t))
	}
	m := &termMatcher{terms: terms}
	if len(lowered) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(lowered)
	}
	return m
}

// hits returns the indexes of every term present in lowered, ascending.
func (m *termMatcher) hits(lowered string) []int {
	if m == nil || m.matcher == nil || lowered == "" {
		return nil
	}
	m.mu.Lock()
	found := m.matcher.Match([]byte(lowered))
	m.mu.Unlock()
	slices.Sort(found)
	return found
}

// first returns the earliest term in list order present in lowered.
func (m *termMatcher) first(lowered string) (string, bool) {
	found := m.hits(lowered)
	if len(found) == 0 {
		return "", false
	}
	return m.terms[found[0]], true
}

// any reports whether at least one term is present in lowered.
func (m *termMatcher) any(lowered string) bool {
	return len(m.hits(lowered)) > 0
}

// Keywords is a reusable case-insensitive "contains any of" test. The
// government-site adapters use it for link and agenda relevance.
type Keywords struct {
	m *termMatcher
}

// NewKeywords builds a keyword set. An empty set matches nothing.
func NewKeywords(terms []string) *Keywords {
	return &Keywords{m: newTermMatcher(terms)}
}

// Contains reports whether text contains any keyword.
func (k *Keywords) Contains(text string) bool {
	return k.m.any(strings.ToLower(text))
}
