package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/auth"
	"github.com/calledit/calledit/internal/cache"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

const healthTimeout = 2 * time.Second

// Router sets up API routes
type Router struct {
	services *Services
	authn    *auth.Authenticator
	db       *db.DB
	cache    *cache.Cache
	limiter  *RateLimiter
	cfg      *config.ServerConfig
	logger   *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.ServerConfig, database *db.DB, redisCache *cache.Cache, authn *auth.Authenticator, services *Services) *Router {
	return &Router{
		services: services,
		authn:    authn,
		db:       database,
		cache:    redisCache,
		limiter:  NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		cfg:      cfg,
		logger:   logging.WithComponent("api-router"),
	}
}

// Close stops background work owned by the router
func (r *Router) Close() {
	r.limiter.Stop()
}

// Engine returns a gin engine with middleware and all routes installed
func (r *Router) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(telemetry.GinMiddleware())
	engine.Use(cors.New(r.corsConfig()))
	r.SetupRoutes(engine)
	return engine
}

func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range r.cfg.AllowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(r.cfg.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = r.cfg.AllowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and metrics stay outside the rate limiter
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/")
	api.Use(r.limiter.Middleware())
	api.Use(r.authn.Authenticate())

	// Public reads; the caller is resolved when a session is present
	api.GET("/feed", handle("feed", r.getFeed))
	api.GET("/categories", handle("categories", r.getCategories))
	api.GET("/predictions/:id", handle("predictions.get", r.getPrediction))
	api.GET("/reactions", handle("reactions.summary", r.getReactions))
	api.GET("/profiles/:id", handle("profiles.get", r.getProfile))

	user := api.Group("/")
	user.Use(auth.RequireAuth())
	{
		user.GET("/dashboard", handle("dashboard", r.getDashboard))
		user.GET("/me", handle("me", r.getMe))

		user.POST("/predictions", handle("predictions.create", r.createPrediction))
		user.POST("/predictions/categorize", handle("predictions.categorize", r.categorizePrediction))
		user.PUT("/predictions", handle("predictions.update", r.updatePrediction))
		user.DELETE("/predictions", handle("predictions.delete", r.deletePrediction))

		user.GET("/friends", handle("friends.list", r.listFriends))
		user.POST("/friends", handle("friends.create", r.createFriend))
		user.PUT("/friends", handle("friends.respond", r.respondFriend))
		user.GET("/friends/check", handle("friends.check", r.checkFriend))

		user.POST("/wagers", handle("wagers.create", r.createWager))
		user.GET("/wagers", handle("wagers.list", r.listWagers))
		user.PUT("/wagers", handle("wagers.respond", r.respondWager))

		user.POST("/reactions", handle("reactions.toggle", r.toggleReaction))
		user.POST("/bookmarks", handle("bookmarks.toggle", r.toggleBookmark))
		user.GET("/bookmarks", handle("bookmarks.list", r.listBookmarks))
	}

	admin := api.Group("/admin")
	admin.Use(auth.RequireAdmin())
	{
		admin.POST("/promote", handle("admin.promote", r.promote))
		admin.POST("/wagers/:id/complete", handle("admin.wagers.complete", r.completeWager))
	}
}

// healthHandler reports database and Redis reachability
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":   "OK",
		"service":  "calledit-api",
		"database": "ok",
		"redis":    "disabled",
	}

	if err := r.db.Health(ctx); err != nil {
		r.logger.Warn("Database health check failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "DEGRADED"
		body["database"] = "unavailable"
	}
	if r.cache.Enabled() {
		body["redis"] = "ok"
		if err := r.cache.Health(ctx); err != nil {
			r.logger.Warn("Redis health check failed", zap.Error(err))
			body["redis"] = "unavailable"
		}
	}

	c.JSON(status, body)
}
