// Package api implements the review queue HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/crawl"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/database"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/models"
)

const (
	// APIVersion is reported by /api/health.
	APIVersion = "1.0.0"

	filterAll        = "all"
	defaultRunsLimit = 20
)

// MentionStore is the read and review side of the mention repository.
type MentionStore interface {
	List(ctx context.Context, f models.MentionFilter) ([]models.Mention, error)
	Patch(ctx context.Context, id string, p models.MentionPatch) (*models.Mention, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
	CountCapturedBetween(ctx context.Context, start, end time.Time) (int, error)
}

type CrawlRunLister interface {
	Recent(ctx context.Context, limit int) ([]models.CrawlRun, error)
}

// Crawler triggers a crawl. *crawl.Service implements it.
type Crawler interface {
	Crawl(ctx context.Context, queries []string, maxResults int) (*crawl.Summary, error)
}

type Handler struct {
	mentions     MentionStore
	runs         CrawlRunLister
	crawler      Crawler
	log          logger.Logger
	now          func() time.Time
	crawlTimeout time.Duration
}

// NewHandler wires the API. crawler may be nil, in which case POST
// /api/crawl reports failure.
func NewHandler(mentions MentionStore, runs CrawlRunLister, crawler Crawler, log logger.Logger) *Handler {
	return &Handler{
		mentions: mentions,
		runs:     runs,
		crawler:  crawler,
		log:      log,
		now:      time.Now,
	}
}

// SetCrawlTimeout bounds a crawl triggered over HTTP. It must be shorter
// than the server write timeout so the caller always gets a JSON answer.
// Zero means no bound.
func (h *Handler) SetCrawlTimeout(d time.Duration) {
	h.crawlTimeout = d
}

// SetClock replaces the handler clock used by /api/health and /api/stats.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v := router.Group("/api")
	v.GET("/health", h.Health)
	v.GET("/mentions", h.ListMentions)
	v.PATCH("/mentions/:id", h.PatchMention)
	v.POST("/crawl", h.TriggerCrawl)
	v.GET("/stats", h.Stats)
	v.GET("/crawl-runs", h.ListCrawlRuns)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339),
		"version":   APIVersion,
	})
}

func (h *Handler) ListMentions(c *gin.Context) {
	filter := models.MentionFilter{
		Status:   models.Status(c.Query("status")),
		Location: c.Query("location"),
		Priority: models.Priority(c.Query("priority")),
	}
	if filter.Location == filterAll {
		filter.Location = ""
	}
	if filter.Priority == filterAll {
		filter.Priority = ""
	}

	mentions, err := h.mentions.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list mentions"})
		return
	}
	c.JSON(http.StatusOK, mentions)
}

type patchRequest struct {
	Status   *string   `json:"status"`
	Tags     *[]string `json:"tags"`
	Notes    *string   `json:"notes"`
	Priority *string   `json:"priority"`
}

func (r patchRequest) toPatch() (models.MentionPatch, error) {
	p := models.MentionPatch{Tags: r.Tags, Notes: r.Notes}
	if r.Status != nil {
		s := models.Status(*r.Status)
		if !s.Valid() {
			return p, errors.New("status must be one of pending, approved, deleted")
		}
		p.Status = &s
	}
	if r.Priority != nil {
		pr := models.Priority(*r.Priority)
		if !pr.Valid() {
			return p, errors.New("priority must be one of normal, high")
		}
		p.Priority = &pr
	}
	return p, nil
}

func (h *Handler) PatchMention(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field value", "details": err.Error()})
		return
	}

	updated, err := h.mentions.Patch(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, database.ErrMentionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Mention not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update mention"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

type crawlRequest struct {
	Queries            []string `json:"queries"`
	MaxResultsPerQuery int      `json:"max_results_per_query"`
}

func (h *Handler) TriggerCrawl(c *gin.Context) {
	if h.crawler == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Crawler not available"})
		return
	}

	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.MaxResultsPerQuery > crawl.MaxResultsLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("max_results_per_query must be at most %d", crawl.MaxResultsLimit),
		})
		return
	}

	ctx := c.Request.Context()
	if h.crawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.crawlTimeout)
		defer cancel()
	}

	summary, err := h.crawler.Crawl(ctx, req.Queries, req.MaxResultsPerQuery)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			h.log.Warn("Crawl timed out", logger.Duration("timeout", h.crawlTimeout), logger.Error(err))
			c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "error": "crawl timed out"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"new_mentions": summary.NewMentions,
		"total_found":  summary.TotalFound,
		"duplicates":   summary.Duplicates,
	})
}

// Stats counts today_captured over the server-local calendar day.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.mentions.CountByStatus(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	now := h.now().Local()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	today, err := h.mentions.CountCapturedBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	stats := models.Stats{
		Pending:       counts[models.StatusPending],
		Approved:      counts[models.StatusApproved],
		Deleted:       counts[models.StatusDeleted],
		TodayCaptured: today,
	}
	for _, n := range counts {
		stats.Total += n
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListCrawlRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list crawl runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}
