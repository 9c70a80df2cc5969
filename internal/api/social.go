package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calledit/calledit/internal/auth"
)

type friendRequest struct {
	TargetEmail string `json:"targetEmail" binding:"required"`
}

type respondFriendRequest struct {
	FriendshipID string `json:"friendshipId" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=accepted blocked"`
}

type wagerRequest struct {
	PredictionID string `json:"predictionId" binding:"required"`
	FriendID     string `json:"friendId" binding:"required"`
	Terms        string `json:"terms" binding:"required"`
}

type respondWagerRequest struct {
	WagerID string `json:"wagerId" binding:"required"`
	Status  string `json:"status" binding:"required,oneof=accepted declined"`
}

func (r *Router) listFriends(c *gin.Context) (int, interface{}, error) {
	lists, err := r.services.Friends.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, lists, nil
}

func (r *Router) createFriend(c *gin.Context) (int, interface{}, error) {
	var req friendRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	if _, err := r.services.Friends.Create(c.Request.Context(), auth.UserID(c), req.TargetEmail); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}

func (r *Router) respondFriend(c *gin.Context) (int, interface{}, error) {
	var req respondFriendRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	if err := r.services.Friends.Respond(c.Request.Context(), auth.UserID(c), req.FriendshipID, req.Status); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}

func (r *Router) checkFriend(c *gin.Context) (int, interface{}, error) {
	following, err := r.services.Friends.IsFollowing(c.Request.Context(), auth.UserID(c), c.Query("targetUserId"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"isFollowing": following}, nil
}

func (r *Router) createWager(c *gin.Context) (int, interface{}, error) {
	var req wagerRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	wager, err := r.services.Wagers.Create(c.Request.Context(), auth.UserID(c), req.PredictionID, req.FriendID, req.Terms)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, gin.H{"wager": wager}, nil
}

func (r *Router) listWagers(c *gin.Context) (int, interface{}, error) {
	list, err := r.services.Wagers.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, gin.H{"wagers": list}, nil
}

func (r *Router) respondWager(c *gin.Context) (int, interface{}, error) {
	var req respondWagerRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}

	if err := r.services.Wagers.Respond(c.Request.Context(), auth.UserID(c), req.WagerID, req.Status); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}
