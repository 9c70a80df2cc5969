// Package feed serves the public prediction feed and the per-user
// dashboard, newest first, with promotions merged in for presentation.
package feed

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// Query selects a page of a feed
type Query struct {
	Limit    int
	Cursor   *Cursor
	Category string
}

// Page is one page of predictions. NextCursor is set when the page is full.
type Page struct {
	Predictions []*objects.PredictionView
	NextCursor  string
}

// Engine runs feed and dashboard queries
type Engine struct {
	predictions *db.PredictionRepository
	loader      *objects.PredictionLoader
	promos      *PromoPool
	cfg         config.FeedConfig
	log         *zap.Logger
}

// NewEngine creates a new feed engine. promos may be nil to disable the
// promotional merge.
func NewEngine(predictions *db.PredictionRepository, loader *objects.PredictionLoader, promos *PromoPool, cfg config.FeedConfig) *Engine {
	return &Engine{
		predictions: predictions,
		loader:      loader,
		promos:      promos,
		cfg:         cfg,
		log:         logging.WithComponent("feed"),
	}
}

// ParseQuery validates raw request parameters
func (e *Engine) ParseQuery(limit, cursor, category string) (Query, error) {
	var q Query

	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return q, apperr.Validation("limit must be a positive integer")
		}
		q.Limit = n
	}

	c, err := ParseCursor(cursor)
	if err != nil {
		return q, apperr.Validation("cursor must be an ISO-8601 timestamp")
	}
	q.Cursor = c

	if category = strings.TrimSpace(category); category != "" {
		if !config.IsCategory(category) {
			return q, apperr.Validation("unknown category %q", category)
		}
		q.Category = category
	}
	return q, nil
}

func (e *Engine) limit(q Query) int {
	switch {
	case q.Limit <= 0:
		return e.cfg.DefaultPageSize
	case q.Limit > e.cfg.MaxPageSize:
		return e.cfg.MaxPageSize
	default:
		return q.Limit
	}
}

func (e *Engine) page(q Query) db.Page {
	p := db.Page{Limit: e.limit(q)}
	if q.Cursor != nil {
		t := q.Cursor.Time
		p.Before = &t
		p.BeforeID = q.Cursor.ID
	}
	return p
}

// Feed returns public, live predictions newest first
func (e *Engine) Feed(ctx context.Context, q Query) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.Feed")
	defer span.End()
	span.SetAttributes(attribute.String("category", q.Category))

	if q.Category != "" && !config.IsCategory(q.Category) {
		return nil, apperr.Validation("unknown category %q", q.Category)
	}

	page := e.page(q)
	records, err := e.predictions.ListPublic(ctx, q.Category, page)
	if err != nil {
		logging.Ctx(ctx).Error("Feed query failed", zap.Error(err))
		return nil, apperr.Upstream("failed to load feed", err)
	}
	return e.build(ctx, records, page.Limit)
}

// Dashboard returns userID's own live predictions, private ones included
func (e *Engine) Dashboard(ctx context.Context, userID string, q Query) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.Dashboard")
	defer span.End()

	if userID == "" {
		return nil, apperr.AuthenticationRequired("authentication required")
	}

	page := e.page(q)
	records, err := e.predictions.ListByUser(ctx, userID, page)
	if err != nil {
		logging.Ctx(ctx).Error("Dashboard query failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperr.Upstream("failed to load dashboard", err)
	}
	return e.build(ctx, records, page.Limit)
}

func (e *Engine) build(ctx context.Context, records []*models.Prediction, limit int) (*Page, error) {
	views, err := e.loader.Load(ctx, records)
	if err != nil {
		logging.Ctx(ctx).Error("Failed to map predictions", zap.Error(err))
		return nil, apperr.Upstream("failed to load predictions", err)
	}

	page := &Page{Predictions: views}
	if len(records) == limit && limit > 0 {
		last := records[len(records)-1]
		page.NextCursor = Cursor{Time: last.CreatedAt, ID: last.ID}.String()
	}
	return page, nil
}

// Present merges promotions for category into a page. A failed promo load
// leaves the page unmerged.
func (e *Engine) Present(ctx context.Context, page *Page, category string) []objects.FeedItem {
	if e.promos == nil {
		items, _ := Interleave(page.Predictions, nil, 0)
		return items
	}

	pool, err := e.promos.Load(ctx, category)
	if err != nil {
		logging.Ctx(ctx).Warn("Promotions unavailable", zap.String("category", category), zap.Error(err))
		pool = nil
	}

	items, shown := Interleave(page.Predictions, pool, e.cfg.PromoCadence)
	if len(shown) > 0 {
		e.promos.RecordImpressions(ctx, category, shown)
	}
	return items
}
