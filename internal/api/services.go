package api

import (
	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/cache"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/engagement"
	"github.com/calledit/calledit/internal/feed"
	"github.com/calledit/calledit/internal/friends"
	"github.com/calledit/calledit/internal/predictions"
	"github.com/calledit/calledit/internal/wagers"
	"github.com/calledit/calledit/pkg/config"
)

// Services bundles the domain services behind the HTTP surface
type Services struct {
	Feed        *feed.Engine
	Predictions *predictions.Service
	Friends     *friends.Service
	Wagers      *wagers.Service
	Engagement  *engagement.Service
	Profiles    *db.ProfileRepository
}

// NewServices wires repositories and services over one database. redisCache
// and classify may be nil.
func NewServices(database *db.DB, redisCache *cache.Cache, classify predictions.Classifier, cfg *config.Config) *Services {
	repo := db.NewRepository(database.DB)
	loader := objects.NewPredictionLoader(database.DB)

	predictionRepo := db.NewPredictionRepository(repo)
	profileRepo := db.NewProfileRepository(repo)

	promos := feed.NewPromoPool(db.NewPromoRepository(repo), redisCache, cfg.Redis.PromoTTL)

	return &Services{
		Feed:        feed.NewEngine(predictionRepo, loader, promos, cfg.Feed),
		Predictions: predictions.NewService(predictionRepo, loader, classify, cfg.Classifier.DefaultCategory),
		Friends:     friends.NewService(db.NewFriendshipRepository(repo), profileRepo),
		Wagers:      wagers.NewService(db.NewWagerRepository(repo), predictionRepo, profileRepo),
		Engagement:  engagement.NewService(db.NewEngagementRepository(repo), predictionRepo, loader),
		Profiles:    profileRepo,
	}
}
