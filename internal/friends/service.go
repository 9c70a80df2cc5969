// Package friends maintains the friendship graph: directed requests that
// the recipient accepts or blocks, one edge per pair of identities.
package friends

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calledit/calledit/internal/api/objects"
	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// Friend is one entry of a friend list, normalized to the other party
type Friend struct {
	FriendshipID string               `json:"friendshipId"`
	Status       string               `json:"status"`
	Since        string               `json:"since"`
	Profile      *objects.ProfileView `json:"profile"`
}

// Lists holds the three views of a user's friendships
type Lists struct {
	Friends      []Friend `json:"friends"`
	Requests     []Friend `json:"requests"`
	SentRequests []Friend `json:"sentRequests"`
}

// Service implements friendship operations
type Service struct {
	friendships *db.FriendshipRepository
	profiles    *db.ProfileRepository
}

// NewService creates a new friendship service
func NewService(friendships *db.FriendshipRepository, profiles *db.ProfileRepository) *Service {
	return &Service{
		friendships: friendships,
		profiles:    profiles,
	}
}

// Create sends a pending request from requesterID to the profile with
// targetEmail.
func (s *Service) Create(ctx context.Context, requesterID, targetEmail string) (*models.Friendship, error) {
	ctx, span := telemetry.StartSpan(ctx, "friends.Create")
	defer span.End()

	targetEmail = strings.ToLower(strings.TrimSpace(targetEmail))
	if targetEmail == "" {
		return nil, apperr.Validation("targetEmail is required")
	}

	target, err := s.profiles.GetByEmail(ctx, targetEmail)
	if err != nil {
		return nil, s.upstream(ctx, "failed to look up user", err)
	}
	if target == nil {
		return nil, apperr.NotFound("user not found")
	}
	if target.ID == requesterID {
		return nil, apperr.Validation("cannot add yourself as a friend")
	}
	span.SetAttributes(attribute.String("recipient_id", target.ID))

	existing, err := s.friendships.GetByPair(ctx, requesterID, target.ID)
	if err != nil {
		return nil, s.upstream(ctx, "failed to check friendship", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("friendship already exists with status %s", existing.Status)
	}

	edge := &models.Friendship{
		RequesterID: requesterID,
		RecipientID: target.ID,
		Status:      models.FriendshipPending,
	}
	if err := s.friendships.Create(ctx, edge); err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a race with a concurrent request for the same pair.
			if existing, _ := s.friendships.GetByPair(ctx, requesterID, target.ID); existing != nil {
				return nil, apperr.Conflict("friendship already exists with status %s", existing.Status)
			}
			return nil, apperr.Conflict("friendship already exists")
		}
		return nil, s.upstream(ctx, "failed to create friend request", err)
	}

	logging.Ctx(ctx).Info("Friend request created",
		zap.String("friendship_id", edge.ID),
		zap.String("requester_id", requesterID),
		zap.String("recipient_id", target.ID))
	return edge, nil
}

// Respond moves a pending request addressed to actorID to accepted or
// blocked.
func (s *Service) Respond(ctx context.Context, actorID, friendshipID, status string) error {
	ctx, span := telemetry.StartSpan(ctx, "friends.Respond")
	defer span.End()

	if strings.TrimSpace(friendshipID) == "" {
		return apperr.Validation("friendshipId is required")
	}
	if status != models.FriendshipAccepted && status != models.FriendshipBlocked {
		return apperr.Validation("status must be accepted or blocked")
	}

	rows, err := s.friendships.RespondPending(ctx, friendshipID, actorID, status)
	if err != nil {
		return s.upstream(ctx, "failed to update friend request", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing matched: explain why.
	edge, err := s.friendships.GetByID(ctx, friendshipID)
	if err != nil {
		return s.upstream(ctx, "failed to load friend request", err)
	}
	switch {
	case edge == nil:
		return apperr.NotFound("friend request not found")
	case edge.RecipientID != actorID:
		return apperr.AuthorizationDenied("only the recipient can respond to a friend request")
	default:
		return apperr.Conflict("friend request already %s", edge.Status)
	}
}

// List returns accepted friends, received requests and sent requests
func (s *Service) List(ctx context.Context, userID string) (*Lists, error) {
	ctx, span := telemetry.StartSpan(ctx, "friends.List")
	defer span.End()

	var accepted, received, sent []*models.Friendship
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accepted, err = s.friendships.ListAccepted(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.friendships.ListPendingReceived(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		sent, err = s.friendships.ListPendingSent(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.upstream(ctx, "failed to load friends", err)
	}

	lists := &Lists{
		Friends:      make([]Friend, 0, len(accepted)),
		Requests:     make([]Friend, 0, len(received)),
		SentRequests: make([]Friend, 0, len(sent)),
	}
	for _, edge := range accepted {
		other := edge.Recipient
		if edge.RecipientID == userID {
			other = edge.Requester
		}
		lists.Friends = append(lists.Friends, friendOf(edge, other, edge.UpdatedAt))
	}
	for _, edge := range received {
		lists.Requests = append(lists.Requests, friendOf(edge, edge.Requester, edge.CreatedAt))
	}
	for _, edge := range sent {
		lists.SentRequests = append(lists.SentRequests, friendOf(edge, edge.Recipient, edge.CreatedAt))
	}
	return lists, nil
}

// IsFollowing reports whether userID and targetID are friends, or userID
// has a request pending with targetID.
func (s *Service) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	if strings.TrimSpace(targetID) == "" {
		return false, apperr.Validation("targetUserId is required")
	}
	if targetID == userID {
		return false, nil
	}

	edge, err := s.friendships.GetByPair(ctx, userID, targetID)
	if err != nil {
		return false, s.upstream(ctx, "failed to check friendship", err)
	}
	if edge == nil {
		return false, nil
	}
	switch edge.Status {
	case models.FriendshipAccepted:
		return true, nil
	case models.FriendshipPending:
		return edge.RequesterID == userID, nil
	default:
		return false, nil
	}
}

func (s *Service) upstream(ctx context.Context, msg string, err error) error {
	logging.Ctx(ctx).Error(msg, zap.String("component", "friends"), zap.Error(err))
	return apperr.Upstream(msg, err)
}

func friendOf(edge *models.Friendship, other *models.Profile, since time.Time) Friend {
	f := Friend{
		FriendshipID: edge.ID,
		Status:       edge.Status,
		Since:        since.UTC().Format(time.RFC3339),
	}
	if other != nil {
		f.Profile = objects.MapProfile(other, false)
	}
	return f
}
