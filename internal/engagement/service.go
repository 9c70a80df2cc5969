// Package engagement toggles reactions and bookmarks on predictions.
package engagement

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// Toggle results
const (
	Added   = "added"
	Removed = "removed"
)

// Summary is the reaction tally of a prediction plus the viewer's own
// reactions and bookmark
type Summary struct {
	Counts     map[string]int64 `json:"counts"`
	Mine       []string         `json:"mine"`
	Bookmarked bool             `json:"bookmarked"`
}

// Service implements reaction and bookmark toggles
type Service struct {
	engagement  *db.EngagementRepository
	predictions *db.PredictionRepository
	loader      *objects.PredictionLoader
}

// NewService creates a new engagement service
func NewService(engagement *db.EngagementRepository, predictions *db.PredictionRepository, loader *objects.PredictionLoader) *Service {
	return &Service{
		engagement:  engagement,
		predictions: predictions,
		loader:      loader,
	}
}

// ToggleReaction removes the reaction when present and adds it otherwise
func (s *Service) ToggleReaction(ctx context.Context, userID, predictionID, reactionType string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "engagement.ToggleReaction")
	defer span.End()

	if userID == "" {
		return "", apperr.AuthenticationRequired("authentication required")
	}
	predictionID = strings.TrimSpace(predictionID)
	if predictionID == "" {
		return "", apperr.Validation("predictionId is required")
	}
	if !models.IsReactionType(reactionType) {
		return "", apperr.Validation("reactionType must be one of %s", strings.Join(models.ReactionTypes, ", "))
	}
	if err := s.requirePrediction(ctx, userID, predictionID); err != nil {
		return "", err
	}

	reaction := &models.Reaction{UserID: userID, PredictionID: predictionID, ReactionType: reactionType}
	removed, err := s.engagement.DeleteReaction(ctx, reaction)
	if err != nil {
		return "", s.upstream(ctx, "failed to update reaction", err)
	}
	if removed > 0 {
		return Removed, nil
	}
	if err := s.engagement.InsertReaction(ctx, reaction); err != nil {
		return "", s.upstream(ctx, "failed to update reaction", err)
	}
	return Added, nil
}

// ToggleBookmark removes the bookmark when present and adds it otherwise
func (s *Service) ToggleBookmark(ctx context.Context, userID, predictionID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "engagement.ToggleBookmark")
	defer span.End()

	if userID == "" {
		return "", apperr.AuthenticationRequired("authentication required")
	}
	predictionID = strings.TrimSpace(predictionID)
	if predictionID == "" {
		return "", apperr.Validation("predictionId is required")
	}
	if err := s.requirePrediction(ctx, userID, predictionID); err != nil {
		return "", err
	}

	bookmark := &models.Bookmark{UserID: userID, PredictionID: predictionID}
	removed, err := s.engagement.DeleteBookmark(ctx, bookmark)
	if err != nil {
		return "", s.upstream(ctx, "failed to update bookmark", err)
	}
	if removed > 0 {
		return Removed, nil
	}
	if err := s.engagement.InsertBookmark(ctx, bookmark); err != nil {
		return "", s.upstream(ctx, "failed to update bookmark", err)
	}
	return Added, nil
}

// ReactionSummary counts reactions by type. Mine is empty and Bookmarked
// false for anonymous viewers. Private predictions are only summarized for
// their owner.
func (s *Service) ReactionSummary(ctx context.Context, viewerID, predictionID string) (*Summary, error) {
	predictionID = strings.TrimSpace(predictionID)
	if predictionID == "" {
		return nil, apperr.Validation("predictionId is required")
	}
	if err := s.requirePrediction(ctx, viewerID, predictionID); err != nil {
		return nil, err
	}

	counts, err := s.engagement.ReactionCounts(ctx, predictionID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load reactions", err)
	}
	for _, t := range models.ReactionTypes {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}

	summary := &Summary{Counts: counts, Mine: []string{}}
	if viewerID != "" {
		mine, err := s.engagement.UserReactions(ctx, viewerID, predictionID)
		if err != nil {
			return nil, s.upstream(ctx, "failed to load reactions", err)
		}
		summary.Mine = append(summary.Mine, mine...)

		summary.Bookmarked, err = s.engagement.HasBookmark(ctx, viewerID, predictionID)
		if err != nil {
			return nil, s.upstream(ctx, "failed to load bookmark", err)
		}
	}
	return summary, nil
}

// ListBookmarks returns userID's bookmarked predictions, newest bookmark
// first.
func (s *Service) ListBookmarks(ctx context.Context, userID string) ([]*objects.PredictionView, error) {
	records, err := s.engagement.BookmarkedPredictions(ctx, userID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load bookmarks", err)
	}

	visible := records[:0]
	for _, r := range records {
		if !r.IsPrivate || r.UserID == userID {
			visible = append(visible, r)
		}
	}
	views, err := s.loader.Load(ctx, visible)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load bookmarks", err)
	}
	return views, nil
}

// requirePrediction fails with NotFound unless viewerID can see the
// prediction. Someone else's private prediction reads as missing.
func (s *Service) requirePrediction(ctx context.Context, viewerID, predictionID string) error {
	prediction, err := s.predictions.GetVisible(ctx, predictionID, viewerID)
	if err != nil {
		return s.upstream(ctx, "failed to load prediction", err)
	}
	if prediction == nil {
		return apperr.NotFound("prediction not found")
	}
	return nil
}

func (s *Service) upstream(ctx context.Context, msg string, err error) error {
	logging.Ctx(ctx).Error(msg, zap.String("component", "engagement"), zap.Error(err))
	return apperr.Upstream(msg, err)
}
