package objects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/calledit/calledit/internal/models"
)

// ErrIncompleteRecord is returned when a stored row lacks a required field
var ErrIncompleteRecord = errors.New("incomplete prediction record")

const anonymousName = "Authenticated"

// FeedItem is an entry of a feed page: a prediction or a promotion
type FeedItem interface {
	ItemType() string
}

// Author is the public identity attached to a prediction
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// PredictionView is the client representation of a prediction
type PredictionView struct {
	Type             string                 `json:"type"`
	ID               string                 `json:"id"`
	UserID           string                 `json:"userId"`
	Category         string                 `json:"category"`
	Text             string                 `json:"text"`
	CreatedAt        string                 `json:"createdAt"`
	TargetDate       string                 `json:"targetDate,omitempty"`
	Outcome          string                 `json:"outcome"`
	EvidenceImageURL string                 `json:"evidenceImageUrl,omitempty"`
	Meta             *models.PredictionMeta `json:"meta,omitempty"`
	IsPrivate        bool                   `json:"isPrivate"`
	Author           *Author                `json:"author,omitempty"`
}

// ItemType implements FeedItem
func (v *PredictionView) ItemType() string { return "prediction" }

// MapPrediction converts a stored prediction and its optional owner profile
// into a view. It fails only when id, owner, category or text is missing.
func MapPrediction(record *models.Prediction, profile *models.Profile) (*PredictionView, error) {
	if record == nil {
		return nil, ErrIncompleteRecord
	}
	switch {
	case record.ID == "":
		return nil, fmt.Errorf("%w: missing id", ErrIncompleteRecord)
	case record.UserID == "":
		return nil, fmt.Errorf("%w: missing owner for %s", ErrIncompleteRecord, record.ID)
	case record.Category == "":
		return nil, fmt.Errorf("%w: missing category for %s", ErrIncompleteRecord, record.ID)
	case record.Text == "":
		return nil, fmt.Errorf("%w: missing text for %s", ErrIncompleteRecord, record.ID)
	}

	view := &PredictionView{
		Type:      "prediction",
		ID:        record.ID,
		UserID:    record.UserID,
		Category:  record.Category,
		Text:      record.Text,
		CreatedAt: formatTime(record.CreatedAt),
		Outcome:   record.Outcome,
		IsPrivate: record.IsPrivate,
	}
	if view.Outcome == "" {
		view.Outcome = models.OutcomePending
	}
	if record.TargetDate != nil && !record.TargetDate.IsZero() {
		view.TargetDate = formatTime(*record.TargetDate)
	}
	if record.EvidenceImageURL.Valid {
		view.EvidenceImageURL = record.EvidenceImageURL.String
	}
	if meta := decodeMeta(record.Meta); meta != nil {
		view.Meta = meta
	}
	if profile != nil {
		view.Author = MapAuthor(profile)
	}
	return view, nil
}

// MapAuthor builds the public author block for a profile
func MapAuthor(profile *models.Profile) *Author {
	return &Author{
		ID:          profile.ID,
		DisplayName: DisplayName(profile),
		Handle:      profile.Handle.String,
		AvatarURL:   profile.AvatarURL.String,
	}
}

// DisplayName picks the first word of the full name, then the handle, then
// the local part of the email.
func DisplayName(profile *models.Profile) string {
	if profile == nil {
		return anonymousName
	}
	if fields := strings.Fields(profile.FullName.String); len(fields) > 0 {
		return fields[0]
	}
	if h := strings.TrimSpace(profile.Handle.String); h != "" {
		return h
	}
	if local, _, _ := strings.Cut(profile.Email, "@"); strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return anonymousName
}

func decodeMeta(raw []byte) *models.PredictionMeta {
	if len(raw) == 0 {
		return nil
	}
	var meta models.PredictionMeta
	if err := json.Unmarshal(raw, &meta); err != nil || meta.IsZero() {
		return nil
	}
	return &meta
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// PredictionLoader maps pages of predictions, loading their authors in one
// query.
type PredictionLoader struct {
	db *gorm.DB
}

// NewPredictionLoader creates a new prediction loader
func NewPredictionLoader(database *gorm.DB) *PredictionLoader {
	return &PredictionLoader{db: database}
}

// Load maps records in order. Records whose owner has no profile are
// mapped without an author.
func (l *PredictionLoader) Load(ctx context.Context, records []*models.Prediction) ([]*PredictionView, error) {
	if len(records) == 0 {
		return []*PredictionView{}, nil
	}

	seen := make(map[string]bool, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			ids = append(ids, r.UserID)
		}
	}

	var profiles []models.Profile
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	byID := make(map[string]*models.Profile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}

	views := make([]*PredictionView, 0, len(records))
	for _, r := range records {
		view, err := MapPrediction(r, byID[r.UserID])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// LoadOne maps a single record with its author
func (l *PredictionLoader) LoadOne(ctx context.Context, record *models.Prediction) (*PredictionView, error) {
	views, err := l.Load(ctx, []*models.Prediction{record})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
