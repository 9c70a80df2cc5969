package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/cache"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/pkg/logging"
)

// PromoPool loads the active promotions for a category, through Redis when
// it is enabled, and records impressions.
type PromoPool struct {
	repo  *db.PromoRepository
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewPromoPool creates a new promo pool. c may be nil.
func NewPromoPool(repo *db.PromoRepository, c *cache.Cache, ttl time.Duration) *PromoPool {
	return &PromoPool{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		log:   logging.WithComponent("promos"),
	}
}

func poolKey(category string) string {
	return "promo:" + cache.HashKey("pool", category)
}

// Load returns active advertisements then active affiliates whose category
// is unset or equal to category.
func (p *PromoPool) Load(ctx context.Context, category string) ([]*objects.PromoView, error) {
	key := poolKey(category)
	if p.cache.Enabled() {
		var cached []*objects.PromoView
		err := p.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			p.log.Warn("Promo cache read failed", zap.String("category", category), zap.Error(err))
		}
	}

	ads, err := p.repo.ActiveAdvertisements(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load advertisements: %w", err)
	}
	affiliates, err := p.repo.ActiveAffiliates(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliates: %w", err)
	}

	pool := make([]*objects.PromoView, 0, len(ads)+len(affiliates))
	for _, ad := range ads {
		pool = append(pool, objects.MapAdvertisement(ad))
	}
	for _, a := range affiliates {
		pool = append(pool, objects.MapAffiliate(a))
	}

	if p.cache.Enabled() {
		if err := p.cache.SetJSON(ctx, key, pool, p.ttl); err != nil {
			p.log.Warn("Promo cache write failed", zap.String("category", category), zap.Error(err))
		}
	}
	return pool, nil
}

// RecordImpressions increments the view count of every placed promotion.
// A promotion deactivated since the pool was cached drops the cached pools
// for category. Failures are logged and never surface to the reader.
func (p *PromoPool) RecordImpressions(ctx context.Context, category string, shown []*objects.PromoView) {
	stale := false
	for _, promo := range shown {
		var (
			live bool
			err  error
		)
		switch promo.Type {
		case objects.PromoAdvertisement:
			live, err = p.repo.IncrementAdvertisementViews(ctx, promo.ID)
		case objects.PromoAffiliate:
			live, err = p.repo.IncrementAffiliateViews(ctx, promo.ID)
		}
		if err != nil {
			p.log.Warn("Failed to record impression",
				zap.String("type", promo.Type),
				zap.String("id", promo.ID),
				zap.Error(err))
			continue
		}
		if !live {
			stale = true
		}
	}

	if stale {
		if err := p.Invalidate(ctx, category); err != nil {
			p.log.Warn("Promo cache invalidation failed", zap.String("category", category), zap.Error(err))
		}
	}
}

// Invalidate drops the cached pool for each category along with the
// unfiltered pool. It is a no-op without Redis.
func (p *PromoPool) Invalidate(ctx context.Context, categories ...string) error {
	if !p.cache.Enabled() {
		return nil
	}
	keys := []string{poolKey("")}
	for _, category := range categories {
		if category != "" {
			keys = append(keys, poolKey(category))
		}
	}
	return p.cache.Delete(ctx, keys...)
}
