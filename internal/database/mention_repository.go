package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

// ErrMentionNotFound is returned when no mention has the requested id.
var ErrMentionNotFound = errors.New("mention not found")

const mentionColumns = `id, title, snippet, url, source, location, utility, utility_type, stage,
	priority, status, tags, notes, captured_at, published_at, updated_at`

// MentionRepository persists mentions. URL uniqueness is enforced by the
// table; inserts never overwrite an existing row.
type MentionRepository struct {
	db *sqlx.DB
}

func NewMentionRepository(db *sqlx.DB) *MentionRepository {
	return &MentionRepository{db: db}
}

// Insert writes m unless its URL is already stored. The first writer of a
// URL wins; later inserts report false.
func (r *MentionRepository) Insert(ctx context.Context, m *models.Mention) (bool, error) {
	tags := m.Tags
	if tags == nil {
		tags = pq.StringArray{}
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO mentions (`+mentionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (url) DO NOTHING`,
		m.ID, m.Title, m.Snippet, m.URL, m.Source, m.Location, m.Utility, m.UtilityType, m.Stage,
		m.Priority, m.Status, tags, m.Notes, m.CapturedAt, m.PublishedAt, m.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert mention: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert mention: %w", err)
	}
	return n > 0, nil
}

// ExistingURLs returns the subset of urls already stored.
func (r *MentionRepository) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(urls) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found,
		`SELECT url FROM mentions WHERE url = ANY($1)`, pq.Array(urls)); err != nil {
		return nil, fmt.Errorf("failed to check existing urls: %w", err)
	}
	for _, u := range found {
		existing[u] = true
	}
	return existing, nil
}

// List returns mentions matching f, most recently captured first.
func (r *MentionRepository) List(ctx context.Context, f models.MentionFilter) ([]models.Mention, error) {
	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if f.Location != "" {
		add("location", f.Location)
	}
	if f.Priority != "" {
		add("priority", f.Priority)
	}

	query := `SELECT ` + mentionColumns + ` FROM mentions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY captured_at DESC`

	mentions := []models.Mention{}
	if err := r.db.SelectContext(ctx, &mentions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list mentions: %w", err)
	}
	return mentions, nil
}

// Patch applies the reviewer fields in p and always refreshes updated_at.
// Nil fields are left unchanged.
func (r *MentionRepository) Patch(ctx context.Context, id string, p models.MentionPatch) (*models.Mention, error) {
	var tags any
	if p.Tags != nil {
		tags = pq.StringArray(*p.Tags)
	}

	var m models.Mention
	err := r.db.GetContext(ctx, &m, `
		UPDATE mentions SET
			status     = COALESCE($2, status),
			tags       = COALESCE($3, tags),
			notes      = COALESCE($4, notes),
			priority   = COALESCE($5, priority),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+mentionColumns,
		id, p.Status, tags, p.Notes, p.Priority,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMentionNotFound
		}
		return nil, fmt.Errorf("failed to patch mention: %w", err)
	}
	return &m, nil
}

// CountByStatus returns the number of mentions per status. Statuses with
// no mentions are absent.
func (r *MentionRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	var rows []struct {
		Status models.Status `db:"status"`
		Count  int           `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS count FROM mentions GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count mentions: %w", err)
	}
	counts := make(map[models.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountCapturedBetween counts mentions with start <= captured_at < end.
func (r *MentionRepository) CountCapturedBetween(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM mentions WHERE captured_at >= $1 AND captured_at < $2`, start, end); err != nil {
		return 0, fmt.Errorf("failed to count captured mentions: %w", err)
	}
	return n, nil
}
