// Package wagers attaches challenges to predictions. Only the recipient
// of a wager may accept or decline it, and only while it is pending.
package wagers

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// PredictionSummary is the part of a prediction shown next to a wager.
// Text is withheld from everyone but the owner of a private prediction.
type PredictionSummary struct {
	ID        string `json:"id"`
	Text      string `json:"text,omitempty"`
	Category  string `json:"category"`
	Outcome   string `json:"outcome"`
	IsPrivate bool   `json:"isPrivate,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// View is a wager enriched with both parties and its prediction
type View struct {
	ID           string               `json:"id"`
	PredictionID string               `json:"predictionId"`
	ChallengerID string               `json:"challengerId"`
	RecipientID  string               `json:"recipientId"`
	Terms        string               `json:"terms"`
	Status       string               `json:"status"`
	CreatedAt    string               `json:"createdAt"`
	Challenger   *objects.ProfileView `json:"challenger,omitempty"`
	Recipient    *objects.ProfileView `json:"recipient,omitempty"`
	Prediction   *PredictionSummary   `json:"prediction,omitempty"`
}

// Service implements the wager lifecycle
type Service struct {
	wagers      *db.WagerRepository
	predictions *db.PredictionRepository
	profiles    *db.ProfileRepository
}

// NewService creates a new wager service
func NewService(wagers *db.WagerRepository, predictions *db.PredictionRepository, profiles *db.ProfileRepository) *Service {
	return &Service{
		wagers:      wagers,
		predictions: predictions,
		profiles:    profiles,
	}
}

// Create issues a pending wager from challengerID to friendID on a live
// prediction the challenger can see.
func (s *Service) Create(ctx context.Context, challengerID, predictionID, friendID, terms string) (*View, error) {
	ctx, span := telemetry.StartSpan(ctx, "wagers.Create")
	defer span.End()

	predictionID = strings.TrimSpace(predictionID)
	friendID = strings.TrimSpace(friendID)
	terms = strings.TrimSpace(terms)
	switch {
	case predictionID == "":
		return nil, apperr.Validation("predictionId is required")
	case friendID == "":
		return nil, apperr.Validation("friendId is required")
	case terms == "":
		return nil, apperr.Validation("terms are required")
	case friendID == challengerID:
		return nil, apperr.Validation("cannot wager against yourself")
	}

	prediction, err := s.predictions.GetVisible(ctx, predictionID, challengerID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load prediction", err)
	}
	if prediction == nil {
		return nil, apperr.NotFound("prediction not found")
	}
	friend, err := s.profiles.GetByID(ctx, friendID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load friend", err)
	}
	if friend == nil {
		return nil, apperr.NotFound("friend not found")
	}

	wager := &models.Wager{
		PredictionID: predictionID,
		ChallengerID: challengerID,
		RecipientID:  friendID,
		Terms:        terms,
		Status:       models.WagerPending,
	}
	if err := s.wagers.Create(ctx, wager); err != nil {
		return nil, s.upstream(ctx, "failed to create wager", err)
	}

	logging.Ctx(ctx).Info("Wager created",
		zap.String("wager_id", wager.ID),
		zap.String("prediction_id", predictionID),
		zap.String("recipient_id", friendID))
	return mapWager(wager, nil, nil, prediction, challengerID), nil
}

// Respond accepts or declines a pending wager addressed to actorID
func (s *Service) Respond(ctx context.Context, actorID, wagerID, status string) error {
	ctx, span := telemetry.StartSpan(ctx, "wagers.Respond")
	defer span.End()

	if strings.TrimSpace(wagerID) == "" {
		return apperr.Validation("wagerId is required")
	}
	if status != models.WagerAccepted && status != models.WagerDeclined {
		return apperr.Validation("status must be accepted or declined")
	}

	rows, err := s.wagers.Transition(ctx, wagerID, actorID, models.WagerPending, status)
	if err != nil {
		return s.upstream(ctx, "failed to update wager", err)
	}
	if rows > 0 {
		return nil
	}
	return s.explain(ctx, wagerID, actorID, true)
}

// Complete resolves an accepted wager. It is reserved for administrators.
func (s *Service) Complete(ctx context.Context, wagerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "wagers.Complete")
	defer span.End()

	rows, err := s.wagers.Transition(ctx, wagerID, "", models.WagerAccepted, models.WagerCompleted)
	if err != nil {
		return s.upstream(ctx, "failed to complete wager", err)
	}
	if rows > 0 {
		return nil
	}
	return s.explain(ctx, wagerID, "", false)
}

func (s *Service) explain(ctx context.Context, wagerID, actorID string, recipientOnly bool) error {
	wager, err := s.wagers.GetByID(ctx, wagerID)
	if err != nil {
		return s.upstream(ctx, "failed to load wager", err)
	}
	switch {
	case wager == nil:
		return apperr.NotFound("wager not found")
	case recipientOnly && wager.RecipientID != actorID:
		return apperr.AuthorizationDenied("only the recipient can respond to a wager")
	default:
		return apperr.Conflict("wager is already %s", wager.Status)
	}
}

// List returns the wagers userID takes part in, newest first
func (s *Service) List(ctx context.Context, userID string) ([]*View, error) {
	ctx, span := telemetry.StartSpan(ctx, "wagers.List")
	defer span.End()

	wagers, err := s.wagers.ListForUser(ctx, userID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load wagers", err)
	}
	if len(wagers) == 0 {
		return []*View{}, nil
	}

	profileIDs := make([]string, 0, len(wagers)*2)
	predictionIDs := make([]string, 0, len(wagers))
	for _, w := range wagers {
		profileIDs = append(profileIDs, w.ChallengerID, w.RecipientID)
		predictionIDs = append(predictionIDs, w.PredictionID)
	}

	var (
		profiles    map[string]*models.Profile
		predictions map[string]*models.Prediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.GetByIDs(gctx, profileIDs)
		return err
	})
	g.Go(func() error {
		var err error
		predictions, err = s.predictions.GetByIDs(gctx, predictionIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.upstream(ctx, "failed to load wager details", err)
	}

	views := make([]*View, 0, len(wagers))
	for _, w := range wagers {
		views = append(views, mapWager(w, profiles[w.ChallengerID], profiles[w.RecipientID], predictions[w.PredictionID], userID))
	}
	return views, nil
}

func (s *Service) upstream(ctx context.Context, msg string, err error) error {
	logging.Ctx(ctx).Error(msg, zap.String("component", "wagers"), zap.Error(err))
	return apperr.Upstream(msg, err)
}

func mapWager(w *models.Wager, challenger, recipient *models.Profile, prediction *models.Prediction, viewerID string) *View {
	v := &View{
		ID:           w.ID,
		PredictionID: w.PredictionID,
		ChallengerID: w.ChallengerID,
		RecipientID:  w.RecipientID,
		Terms:        w.Terms,
		Status:       w.Status,
		CreatedAt:    w.CreatedAt.UTC().Format(time.RFC3339),
		Challenger:   objects.MapProfile(challenger, false),
		Recipient:    objects.MapProfile(recipient, false),
	}
	if prediction != nil {
		v.Prediction = &PredictionSummary{
			ID:        prediction.ID,
			Category:  prediction.Category,
			Outcome:   prediction.Outcome,
			IsPrivate: prediction.IsPrivate,
			Deleted:   prediction.DeletedAt != nil,
		}
		if !prediction.IsPrivate || prediction.UserID == viewerID {
			v.Prediction.Text = prediction.Text
		}
	}
	return v
}
