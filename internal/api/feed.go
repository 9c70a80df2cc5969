package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/auth"
	"github.com/calledit/calledit/pkg/config"
)

// FeedResponse is one page of the feed or the dashboard
type FeedResponse struct {
	Predictions []objects.FeedItem `json:"predictions"`
	NextCursor  string             `json:"nextCursor,omitempty"`
}

func (r *Router) getFeed(c *gin.Context) (int, interface{}, error) {
	engine := r.services.Feed
	q, err := engine.ParseQuery(c.Query("limit"), c.Query("cursor"), c.Query("category"))
	if err != nil {
		return 0, nil, err
	}

	page, err := engine.Feed(c.Request.Context(), q)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, FeedResponse{
		Predictions: engine.Present(c.Request.Context(), page, q.Category),
		NextCursor:  page.NextCursor,
	}, nil
}

func (r *Router) getDashboard(c *gin.Context) (int, interface{}, error) {
	engine := r.services.Feed
	q, err := engine.ParseQuery(c.Query("limit"), c.Query("cursor"), "")
	if err != nil {
		return 0, nil, err
	}

	page, err := engine.Dashboard(c.Request.Context(), auth.UserID(c), q)
	if err != nil {
		return 0, nil, err
	}

	return http.StatusOK, FeedResponse{
		Predictions: engine.Present(c.Request.Context(), page, ""),
		NextCursor:  page.NextCursor,
	}, nil
}

func (r *Router) getCategories(c *gin.Context) (int, interface{}, error) {
	return http.StatusOK, gin.H{"categories": config.Categories}, nil
}
