package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calledit/calledit/internal/auth"
)

type reactionRequest struct {
	PredictionID string `json:"predictionId" binding:"required"`
	ReactionType string `json:"reactionType" binding:"required,oneof=fire laugh doubt mind_blown"`
}

type bookmarkRequest struct {
	PredictionID string `json:"predictionId" binding:"required"`
}

func (r *Router) toggleReaction(c *gin.Context) (int, interface{}, error) {
	var req reactionRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	action, err := r.services.Engagement.ToggleReaction(c.Request.Context(), auth.UserID(c), req.PredictionID, req.ReactionType)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"action": action}, nil
}

func (r *Router) getReactions(c *gin.Context) (int, interface{}, error) {
	summary, err := r.services.Engagement.ReactionSummary(c.Request.Context(), auth.UserID(c), c.Query("predictionId"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, summary, nil
}

func (r *Router) toggleBookmark(c *gin.Context) (int, interface{}, error) {
	var req bookmarkRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	action, err := r.services.Engagement.ToggleBookmark(c.Request.Context(), auth.UserID(c), req.PredictionID)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"action": action}, nil
}

func (r *Router) listBookmarks(c *gin.Context) (int, interface{}, error) {
	views, err := r.services.Engagement.ListBookmarks(c.Request.Context(), auth.UserID(c))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"predictions": views}, nil
}
