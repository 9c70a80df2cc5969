package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/calledit/calledit/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Page selects one page of a newest-first listing. Before alone means
// strictly older than Before; with BeforeID, rows sharing the Before
// timestamp are continued by id.
type Page struct {
	Limit    int
	Before   *time.Time
	BeforeID string
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	if p.Before != nil {
		t := p.Before.UTC()
		if p.BeforeID != "" {
			q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", t, t, p.BeforeID)
		} else {
			q = q.Where("created_at < ?", t)
		}
	}
	q = q.Order("created_at DESC").Order("id DESC")
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}

// ProfileRepository provides profile-related database operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByEmail retrieves a profile by email, case-insensitively
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByIDs retrieves multiple profiles keyed by ID
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// Ensure inserts the profile unless one with the same ID exists, then
// returns the stored row.
func (r *ProfileRepository) Ensure(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile).Error
	if err != nil && !IsUniqueViolation(err) {
		return nil, err
	}
	return r.GetByID(ctx, profile.ID)
}

// SetRole updates a profile's role, reporting whether a row matched
func (r *ProfileRepository) SetRole(ctx context.Context, id, role string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("role", role)
	return res.RowsAffected > 0, res.Error
}

// PredictionRepository provides prediction-related database operations
type PredictionRepository struct {
	*Repository
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(repo *Repository) *PredictionRepository {
	return &PredictionRepository{Repository: repo}
}

// Create creates a new prediction
func (r *PredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	return r.db.WithContext(ctx).Create(prediction).Error
}

// GetLive retrieves a prediction that has not been soft-deleted
func (r *PredictionRepository) GetLive(ctx context.Context, id string) (*models.Prediction, error) {
	var prediction models.Prediction
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&prediction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prediction, nil
}

// ListPublic returns public, live predictions, optionally in one category
func (r *PredictionRepository) ListPublic(ctx context.Context, category string, page Page) ([]*models.Prediction, error) {
	q := r.db.WithContext(ctx).Model(&models.Prediction{}).
		Where("is_private = ?", false).
		Where("deleted_at IS NULL")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var predictions []*models.Prediction
	if err := page.apply(q).Find(&predictions).Error; err != nil {
		return nil, err
	}
	return predictions, nil
}

// ListByUser returns a user's live predictions, private ones included
func (r *PredictionRepository) ListByUser(ctx context.Context, userID string, page Page) ([]*models.Prediction, error) {
	q := r.db.WithContext(ctx).Model(&models.Prediction{}).
		Where("user_id = ?", userID).
		Where("deleted_at IS NULL")
	var predictions []*models.Prediction
	if err := page.apply(q).Find(&predictions).Error; err != nil {
		return nil, err
	}
	return predictions, nil
}

// UpdateOwned applies fields to a live prediction owned by userID and
// returns the number of rows changed.
func (r *PredictionRepository) UpdateOwned(ctx context.Context, id, userID string, fields map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Prediction{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id, userID).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// GetVisible retrieves a live prediction viewerID may see: any public one,
// and private ones viewerID owns. An empty viewerID sees public ones only.
func (r *PredictionRepository) GetVisible(ctx context.Context, id, viewerID string) (*models.Prediction, error) {
	var prediction models.Prediction
	q := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id)
	if viewerID == "" {
		q = q.Where("is_private = ?", false)
	} else {
		q = q.Where("(is_private = ? OR user_id = ?)", false, viewerID)
	}
	if err := q.First(&prediction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prediction, nil
}

// GetByIDs retrieves predictions keyed by ID, deleted ones included
func (r *PredictionRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Prediction, error) {
	out := make(map[string]*models.Prediction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var predictions []*models.Prediction
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&predictions).Error; err != nil {
		return nil, err
	}
	for _, p := range predictions {
		out[p.ID] = p
	}
	return out, nil
}

// FriendshipRepository provides friendship-related database operations
type FriendshipRepository struct {
	*Repository
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(repo *Repository) *FriendshipRepository {
	return &FriendshipRepository{Repository: repo}
}

// Create inserts a new edge. A second edge for the same pair fails with a
// unique violation.
func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

// GetByID retrieves an edge by ID
func (r *FriendshipRepository) GetByID(ctx context.Context, id string) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &friendship, nil
}

// GetByPair retrieves the edge between a and b in either direction
func (r *FriendshipRepository) GetByPair(ctx context.Context, a, b string) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).
		Where("pair_key = ?", models.PairKey(a, b)).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &friendship, nil
}

// RespondPending moves a pending edge addressed to recipientID to status.
// It returns the number of rows changed.
func (r *FriendshipRepository) RespondPending(ctx context.Context, id, recipientID, status string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("id = ? AND recipient_id = ? AND status = ?", id, recipientID, models.FriendshipPending).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// ListAccepted returns accepted edges touching userID with both profiles loaded
func (r *FriendshipRepository) ListAccepted(ctx context.Context, userID string) ([]*models.Friendship, error) {
	var edges []*models.Friendship
	err := r.db.WithContext(ctx).
		Preload("Requester").Preload("Recipient").
		Where("status = ? AND (requester_id = ? OR recipient_id = ?)", models.FriendshipAccepted, userID, userID).
		Order("updated_at DESC").
		Find(&edges).Error
	return edges, err
}

// ListPendingReceived returns pending edges addressed to userID
func (r *FriendshipRepository) ListPendingReceived(ctx context.Context, userID string) ([]*models.Friendship, error) {
	var edges []*models.Friendship
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("status = ? AND recipient_id = ?", models.FriendshipPending, userID).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

// ListPendingSent returns pending edges sent by userID
func (r *FriendshipRepository) ListPendingSent(ctx context.Context, userID string) ([]*models.Friendship, error) {
	var edges []*models.Friendship
	err := r.db.WithContext(ctx).
		Preload("Recipient").
		Where("status = ? AND requester_id = ?", models.FriendshipPending, userID).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

// WagerRepository provides wager-related database operations
type WagerRepository struct {
	*Repository
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(repo *Repository) *WagerRepository {
	return &WagerRepository{Repository: repo}
}

// Create creates a new wager
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	return r.db.WithContext(ctx).Create(wager).Error
}

// GetByID retrieves a wager by ID
func (r *WagerRepository) GetByID(ctx context.Context, id string) (*models.Wager, error) {
	var wager models.Wager
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wager).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wager, nil
}

// Transition moves a wager from one status to another. When recipientID is
// set the update is further scoped to that recipient.
func (r *WagerRepository) Transition(ctx context.Context, id, recipientID, from, to string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Wager{}).Where("id = ? AND status = ?", id, from)
	if recipientID != "" {
		q = q.Where("recipient_id = ?", recipientID)
	}
	res := q.Update("status", to)
	return res.RowsAffected, res.Error
}

// ListForUser returns wagers where userID is either party, newest first
func (r *WagerRepository) ListForUser(ctx context.Context, userID string) ([]*models.Wager, error) {
	var wagers []*models.Wager
	err := r.db.WithContext(ctx).
		Where("challenger_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").Order("id DESC").
		Find(&wagers).Error
	return wagers, err
}

// EngagementRepository stores reactions and bookmarks
type EngagementRepository struct {
	*Repository
}

// NewEngagementRepository creates a new engagement repository
func NewEngagementRepository(repo *Repository) *EngagementRepository {
	return &EngagementRepository{Repository: repo}
}

// DeleteReaction removes the tuple and returns the number of rows removed
func (r *EngagementRepository) DeleteReaction(ctx context.Context, reaction *models.Reaction) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND prediction_id = ? AND reaction_type = ?",
			reaction.UserID, reaction.PredictionID, reaction.ReactionType).
		Delete(&models.Reaction{})
	return res.RowsAffected, res.Error
}

// InsertReaction inserts the tuple, ignoring an existing one
func (r *EngagementRepository) InsertReaction(ctx context.Context, reaction *models.Reaction) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(reaction).Error
}

// HasReaction reports whether the tuple exists
func (r *EngagementRepository) HasReaction(ctx context.Context, userID, predictionID, reactionType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("user_id = ? AND prediction_id = ? AND reaction_type = ?", userID, predictionID, reactionType).
		Count(&count).Error
	return count > 0, err
}

type reactionCount struct {
	ReactionType string
	Total        int64
}

// ReactionCounts aggregates reactions on a prediction by type
func (r *EngagementRepository) ReactionCounts(ctx context.Context, predictionID string) (map[string]int64, error) {
	var rows []reactionCount
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("reaction_type, COUNT(*) AS total").
		Where("prediction_id = ?", predictionID).
		Group("reaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ReactionType] = row.Total
	}
	return counts, nil
}

// UserReactions lists the reaction types userID placed on a prediction
func (r *EngagementRepository) UserReactions(ctx context.Context, userID, predictionID string) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Where("user_id = ? AND prediction_id = ?", userID, predictionID).
		Order("reaction_type").
		Pluck("reaction_type", &types).Error
	return types, err
}

// DeleteBookmark removes the tuple and returns the number of rows removed
func (r *EngagementRepository) DeleteBookmark(ctx context.Context, bookmark *models.Bookmark) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND prediction_id = ?", bookmark.UserID, bookmark.PredictionID).
		Delete(&models.Bookmark{})
	return res.RowsAffected, res.Error
}

// InsertBookmark inserts the tuple, ignoring an existing one
func (r *EngagementRepository) InsertBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(bookmark).Error
}

// HasBookmark reports whether the tuple exists
func (r *EngagementRepository) HasBookmark(ctx context.Context, userID, predictionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bookmark{}).
		Where("user_id = ? AND prediction_id = ?", userID, predictionID).
		Count(&count).Error
	return count > 0, err
}

// BookmarkedPredictions returns the live predictions userID bookmarked,
// most recently bookmarked first.
func (r *EngagementRepository) BookmarkedPredictions(ctx context.Context, userID string) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	err := r.db.WithContext(ctx).
		Joins("JOIN bookmarks ON bookmarks.prediction_id = predictions.id").
		Where("bookmarks.user_id = ? AND predictions.deleted_at IS NULL", userID).
		Order("bookmarks.created_at DESC").Order("predictions.id DESC").
		Find(&predictions).Error
	return predictions, err
}

// PromoRepository reads promotional content
type PromoRepository struct {
	*Repository
}

// NewPromoRepository creates a new promo repository
func NewPromoRepository(repo *Repository) *PromoRepository {
	return &PromoRepository{Repository: repo}
}

func activeFor(q *gorm.DB, category string) *gorm.DB {
	q = q.Where("is_active = ?", true)
	if category != "" {
		q = q.Where("(category IS NULL OR category = ?)", category)
	}
	return q.Order("created_at ASC").Order("id ASC")
}

// ActiveAdvertisements returns active ads targeting category or untargeted.
// An empty category matches every active ad.
func (r *PromoRepository) ActiveAdvertisements(ctx context.Context, category string) ([]*models.Advertisement, error) {
	var ads []*models.Advertisement
	err := activeFor(r.db.WithContext(ctx), category).Find(&ads).Error
	return ads, err
}

// ActiveAffiliates returns active affiliates targeting category or untargeted
func (r *PromoRepository) ActiveAffiliates(ctx context.Context, category string) ([]*models.Affiliate, error) {
	var affiliates []*models.Affiliate
	err := activeFor(r.db.WithContext(ctx), category).Find(&affiliates).Error
	return affiliates, err
}

// IncrementAdvertisementViews bumps view_count of an active ad in a single
// statement. It reports false when the ad is gone or no longer active.
func (r *PromoRepository) IncrementAdvertisementViews(ctx context.Context, id string) (bool, error) {
	return incrementViews(r.db.WithContext(ctx).Model(&models.Advertisement{}), id)
}

// IncrementAffiliateViews is IncrementAdvertisementViews for affiliates
func (r *PromoRepository) IncrementAffiliateViews(ctx context.Context, id string) (bool, error) {
	return incrementViews(r.db.WithContext(ctx).Model(&models.Affiliate{}), id)
}

func incrementViews(q *gorm.DB, id string) (bool, error) {
	result := q.Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
