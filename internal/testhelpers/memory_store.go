// Package testhelpers provides in-memory collaborators for service and
// handler tests.
package testhelpers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/database"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

// MemoryStore implements the mention and crawl-run repositories in memory
// with the same conflict and ordering rules as the SQL ones. Setting an
// Err field makes the matching operation fail.
type MemoryStore struct {
	mu       sync.Mutex
	mentions []models.Mention
	byURL    map[string]int
	runs     []models.CrawlRun
	now      func() time.Time

	InsertErr   error
	ExistingErr error
	ListErr     error
	AppendErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]int), now: time.Now}
}

// SetClock controls the updated_at stamp written by Patch.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed inserts mentions directly, bypassing InsertErr.
func (s *MemoryStore) Seed(mentions ...models.Mention) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range mentions {
		s.insertLocked(&mentions[i])
	}
}

func (s *MemoryStore) Insert(_ context.Context, m *models.Mention) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return false, s.InsertErr
	}
	return s.insertLocked(m), nil
}

func (s *MemoryStore) insertLocked(m *models.Mention) bool {
	if _, ok := s.byURL[m.URL]; ok {
		return false
	}
	cp := clone(*m)
	if cp.Status == "" {
		cp.Status = models.StatusPending
	}
	if cp.Tags == nil {
		cp.Tags = pq.StringArray{}
	}
	s.byURL[cp.URL] = len(s.mentions)
	s.mentions = append(s.mentions, cp)
	return true
}

func (s *MemoryStore) ExistingURLs(_ context.Context, urls []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistingErr != nil {
		return nil, s.ExistingErr
	}
	out := make(map[string]bool)
	for _, u := range urls {
		if _, ok := s.byURL[u]; ok {
			out[u] = true
		}
	}
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, f models.MentionFilter) ([]models.Mention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.Mention, 0, len(s.mentions))
	for _, m := range s.mentions {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Location != "" && m.Location != f.Location {
			continue
		}
		if f.Priority != "" && m.Priority != f.Priority {
			continue
		}
		out = append(out, clone(m))
	}
	slices.SortStableFunc(out, func(a, b models.Mention) int {
		return b.CapturedAt.Compare(a.CapturedAt)
	})
	return out, nil
}

func (s *MemoryStore) Patch(_ context.Context, id string, p models.MentionPatch) (*models.Mention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, database.ErrMentionNotFound
	}
	m := &s.mentions[i]
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
	if p.Tags != nil {
		m.Tags = pq.StringArray(slices.Clone(*p.Tags))
	}
	if p.Notes != nil {
		notes := *p.Notes
		m.Notes = &notes
	}
	updated := s.now()
	m.UpdatedAt = &updated
	out := clone(*m)
	return &out, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.Status]int)
	for _, m := range s.mentions {
		counts[m.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CountCapturedBetween(_ context.Context, start, end time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.mentions {
		if !m.CapturedAt.Before(start) && m.CapturedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Append(_ context.Context, run *models.CrawlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.runs = append(s.runs, *run)
	if extra := len(s.runs) - models.MaxRetainedCrawlRuns; extra > 0 {
		s.runs = slices.Delete(s.runs, 0, extra)
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.CrawlRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CrawlRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}

// Mentions returns a snapshot of every stored mention in insertion order.
func (s *MemoryStore) Mentions() []models.Mention {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Mention, len(s.mentions))
	for i, m := range s.mentions {
		out[i] = clone(m)
	}
	return out
}

func (s *MemoryStore) indexOf(id string) int {
	return slices.IndexFunc(s.mentions, func(m models.Mention) bool { return m.ID == id })
}

func clone(m models.Mention) models.Mention {
	m.Tags = slices.Clone(m.Tags)
	if m.Tags == nil {
		m.Tags = pq.StringArray{}
	}
	if m.Notes != nil {
		n := *m.Notes
		m.Notes = &n
	}
	if m.UpdatedAt != nil {
		u := *m.UpdatedAt
		m.UpdatedAt = &u
	}
	if m.PublishedAt != nil {
		p := *m.PublishedAt
		m.PublishedAt = &p
	}
	return m
}
