// Package predictions handles writes to predictions: creation with
// automatic categorization, owner updates and soft deletion.
package predictions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/classifier"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// MaxTextLength is the longest prediction statement in characters
const MaxTextLength = 280

// Classifier suggests a category and metadata for a statement
type Classifier interface {
	Classify(ctx context.Context, text string) (*classifier.Suggestion, error)
}

// CreateInput is the body of a create request
type CreateInput struct {
	Text       string                 `json:"text"`
	Category   string                 `json:"category"`
	TargetDate string                 `json:"targetDate"`
	Meta       *models.PredictionMeta `json:"meta"`
	IsPrivate  bool                   `json:"isPrivate"`
}

// UpdateInput is the body of an update request. Nil fields are unchanged.
type UpdateInput struct {
	ID               string  `json:"id"`
	Outcome          *string `json:"outcome"`
	EvidenceImageURL *string `json:"evidenceImageUrl"`
	DeletedAt        *string `json:"deletedAt"`
}

// Service implements prediction writes
type Service struct {
	predictions     *db.PredictionRepository
	loader          *objects.PredictionLoader
	classifier      Classifier
	defaultCategory string
}

// NewService creates a new prediction service. c may be nil.
func NewService(predictions *db.PredictionRepository, loader *objects.PredictionLoader, c Classifier, defaultCategory string) *Service {
	return &Service{
		predictions:     predictions,
		loader:          loader,
		classifier:      c,
		defaultCategory: defaultCategory,
	}
}

// Categorize asks the classifier about text. Any classifier failure yields
// the default category.
func (s *Service) Categorize(ctx context.Context, text string) (*classifier.Suggestion, error) {
	text = strings.TrimSpace(text)
	if err := validateText(text); err != nil {
		return nil, err
	}
	return s.suggest(ctx, text), nil
}

func (s *Service) suggest(ctx context.Context, text string) *classifier.Suggestion {
	fallback := &classifier.Suggestion{Category: s.defaultCategory}
	if s.classifier == nil {
		return fallback
	}

	suggestion, err := s.classifier.Classify(ctx, text)
	if err != nil {
		if !errors.Is(err, classifier.ErrDisabled) {
			logging.Ctx(ctx).Warn("Classification failed, using default category",
				zap.String("category", s.defaultCategory), zap.Error(err))
		}
		return fallback
	}
	if suggestion.Category == "" {
		suggestion.Category = s.defaultCategory
	}
	return suggestion
}

// Create stores a new prediction owned by userID
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*objects.PredictionView, error) {
	ctx, span := telemetry.StartSpan(ctx, "predictions.Create")
	defer span.End()

	text := strings.TrimSpace(in.Text)
	if err := validateText(text); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(in.Category)
	if category != "" && !config.IsCategory(category) {
		return nil, apperr.Validation("unknown category %q", category)
	}

	var targetDate *time.Time
	if in.TargetDate != "" {
		t, err := parseTimestamp(in.TargetDate)
		if err != nil {
			return nil, apperr.Validation("targetDate must be an ISO-8601 date")
		}
		targetDate = &t
	}
	meta := in.Meta

	if category == "" {
		suggestion := s.suggest(ctx, text)
		category = suggestion.Category
		if targetDate == nil {
			targetDate = suggestion.TargetDate
		}
		if meta == nil && !suggestion.Meta.IsZero() {
			m := suggestion.Meta
			meta = &m
		}
	}

	if meta != nil && meta.Confidence != nil && (*meta.Confidence < 0 || *meta.Confidence > 1) {
		return nil, apperr.Validation("meta.confidence must be between 0 and 1")
	}
	rawMeta := datatypes.JSON("{}")
	if meta != nil {
		encoded, err := json.Marshal(meta)
		if err != nil {
			return nil, apperr.Validation("invalid meta")
		}
		rawMeta = encoded
	}

	prediction := &models.Prediction{
		UserID:     userID,
		Category:   category,
		Text:       text,
		TargetDate: targetDate,
		Outcome:    models.OutcomePending,
		Meta:       rawMeta,
		IsPrivate:  in.IsPrivate,
	}
	if err := s.predictions.Create(ctx, prediction); err != nil {
		return nil, s.upstream(ctx, "failed to create prediction", err)
	}

	logging.Ctx(ctx).Info("Prediction created",
		zap.String("prediction_id", prediction.ID),
		zap.String("category", category),
		zap.Bool("private", in.IsPrivate))

	view, err := s.loader.LoadOne(ctx, prediction)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load prediction", err)
	}
	return view, nil
}

// Update changes outcome, evidence or deletion time of a prediction owned
// by userID.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) error {
	ctx, span := telemetry.StartSpan(ctx, "predictions.Update")
	defer span.End()

	if strings.TrimSpace(in.ID) == "" {
		return apperr.Validation("id is required")
	}

	fields := map[string]interface{}{}
	if in.Outcome != nil {
		if !models.IsOutcome(*in.Outcome) {
			return apperr.Validation("outcome must be pending, true or false")
		}
		fields["outcome"] = *in.Outcome
	}
	if in.EvidenceImageURL != nil {
		if url := strings.TrimSpace(*in.EvidenceImageURL); url == "" {
			fields["evidence_image_url"] = nil
		} else {
			fields["evidence_image_url"] = url
		}
	}
	if in.DeletedAt != nil {
		t, err := parseTimestamp(*in.DeletedAt)
		if err != nil {
			return apperr.Validation("deletedAt must be an ISO-8601 timestamp")
		}
		fields["deleted_at"] = t
	}
	if len(fields) == 0 {
		return apperr.Validation("nothing to update")
	}

	return s.applyOwned(ctx, userID, in.ID, fields)
}

// Delete soft-deletes a prediction owned by userID
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "predictions.Delete")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return apperr.Validation("id is required")
	}
	return s.applyOwned(ctx, userID, id, map[string]interface{}{"deleted_at": time.Now().UTC()})
}

func (s *Service) applyOwned(ctx context.Context, userID, id string, fields map[string]interface{}) error {
	rows, err := s.predictions.UpdateOwned(ctx, id, userID, fields)
	if err != nil {
		return s.upstream(ctx, "failed to update prediction", err)
	}
	if rows > 0 {
		return nil
	}

	existing, err := s.predictions.GetLive(ctx, id)
	if err != nil {
		return s.upstream(ctx, "failed to load prediction", err)
	}
	if existing == nil {
		return apperr.NotFound("prediction not found")
	}
	if existing.UserID != userID {
		return apperr.AuthorizationDenied("only the owner can change a prediction")
	}
	// Same values as stored.
	return nil
}

// Get returns one live prediction. Private predictions are only visible to
// their owner.
func (s *Service) Get(ctx context.Context, viewerID, id string) (*objects.PredictionView, error) {
	prediction, err := s.predictions.GetLive(ctx, id)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load prediction", err)
	}
	if prediction == nil || (prediction.IsPrivate && prediction.UserID != viewerID) {
		return nil, apperr.NotFound("prediction not found")
	}
	view, err := s.loader.LoadOne(ctx, prediction)
	if err != nil {
		return nil, s.upstream(ctx, "failed to load prediction", err)
	}
	return view, nil
}

func (s *Service) upstream(ctx context.Context, msg string, err error) error {
	logging.Ctx(ctx).Error(msg, zap.String("component", "predictions"), zap.Error(err))
	return apperr.Upstream(msg, err)
}

func validateText(text string) error {
	if text == "" {
		return apperr.Validation("text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return apperr.Validation("text must be at most %d characters", MaxTextLength)
	}
	return nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339, raw)
	return time.Time{}, err
}
