package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/auth"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/logging"
)

type promoteRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// getProfile shows email and role only to the profile's owner and admins
func (r *Router) getProfile(c *gin.Context) (int, interface{}, error) {
	ctx := c.Request.Context()
	id := c.Param("id")

	profile, err := r.services.Profiles.GetByID(ctx, id)
	if err != nil {
		return 0, nil, apperr.Upstream("failed to load profile", err)
	}
	if profile == nil {
		return 0, nil, apperr.NotFound("profile not found")
	}

	viewer := auth.Profile(c)
	private := viewer != nil && (viewer.ID == profile.ID || viewer.IsAdmin())
	return http.StatusOK, gin.H{"profile": objects.MapProfile(profile, private)}, nil
}

func (r *Router) getMe(c *gin.Context) (int, interface{}, error) {
	profile := auth.Profile(c)
	if profile == nil {
		return 0, nil, apperr.AuthenticationRequired("authentication required")
	}
	return http.StatusOK, gin.H{"profile": objects.MapProfile(profile, true)}, nil
}

func (r *Router) promote(c *gin.Context) (int, interface{}, error) {
	var req promoteRequest
	if err := bindJSON(c, &req); err != nil {
		return 0, nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return 0, nil, apperr.Validation("userId is required")
	}

	ctx := c.Request.Context()
	found, err := r.services.Profiles.SetRole(ctx, userID, models.RoleAdmin)
	if err != nil {
		return 0, nil, apperr.Upstream("failed to promote user", err)
	}
	if !found {
		return 0, nil, apperr.NotFound("profile not found")
	}

	logging.Ctx(ctx).Info("Promoted user to admin",
		zap.String("target_id", userID), zap.String("admin_id", auth.UserID(c)))
	return http.StatusOK, success, nil
}

func (r *Router) completeWager(c *gin.Context) (int, interface{}, error) {
	if err := r.services.Wagers.Complete(c.Request.Context(), c.Param("id")); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, success, nil
}
