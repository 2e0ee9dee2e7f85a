// Package normalizer turns raw source hits into classified Mention records.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/extractor"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/sources"
)

const urlHashChars = 8

// publishedLayouts are tried in order. Values with a zone come first.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type Normalizer struct {
	extractor *extractor.Extractor
	now       func() time.Time
}

func New(ex *extractor.Extractor) *Normalizer {
	return &Normalizer{extractor: ex, now: time.Now}
}

// WithClock returns a copy of n that stamps mentions using now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	cp := *n
	cp.now = now
	return &cp
}

// Normalize classifies hit and returns a pending mention captured now.
func (n *Normalizer) Normalize(hit sources.RawHit) models.Mention {
	captured := n.now()
	c := n.extractor.Classify(hit.Title + " " + hit.Snippet)

	return models.Mention{
		ID:          MentionID(captured, hit.URL),
		Title:       hit.Title,
		Snippet:     hit.Snippet,
		URL:         hit.URL,
		Source:      hit.Source,
		Location:    c.Location,
		Utility:     c.Utility,
		UtilityType: c.UtilityType,
		Stage:       c.Stage,
		Priority:    c.Priority,
		CapturedAt:  captured,
		PublishedAt: ParsePublished(hit.PublishedAt),
		Status:      models.StatusPending,
		Tags:        pq.StringArray{},
	}
}

// MentionID combines the capture time in milliseconds with a prefix of the
// URL's SHA-256, so ids differ across runs and across URLs within a run.
func MentionID(at time.Time, rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("%d-%s", at.UnixMilli(), hex.EncodeToString(sum[:])[:urlHashChars])
}

// ParsePublished validates a source-reported date. Anything unparsable,
// including the empty string, yields nil.
func ParsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
