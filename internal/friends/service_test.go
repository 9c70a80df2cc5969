package friends

import (
	"context"
	"sync"
	"testing"

	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/db/dbtest"
	"github.com/calledit/calledit/internal/models"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database := dbtest.New(t)
	repo := db.NewRepository(database.DB)
	for _, p := range []models.Profile{
		{ID: "alice", Email: "alice@example.com"},
		{ID: "bob", Email: "bob@example.com"},
		{ID: "carol", Email: "carol@example.com"},
	} {
		p := p
		if err := database.Create(&p).Error; err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	return NewService(db.NewFriendshipRepository(repo), db.NewProfileRepository(repo)), database
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		requester string
		email     string
		wantKind  apperr.Kind
		wantErr   bool
	}{
		{name: "empty email", requester: "alice", email: " ", wantKind: apperr.KindValidation, wantErr: true},
		{name: "unknown user", requester: "alice", email: "nobody@example.com", wantKind: apperr.KindNotFound, wantErr: true},
		{name: "self", requester: "alice", email: "Alice@Example.com", wantKind: apperr.KindValidation, wantErr: true},
		{name: "ok", requester: "alice", email: "bob@example.com"},
		{name: "duplicate same direction", requester: "alice", email: "bob@example.com", wantKind: apperr.KindConflict, wantErr: true},
		{name: "duplicate reverse direction", requester: "bob", email: "alice@example.com", wantKind: apperr.KindConflict, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, err := svc.Create(ctx, tt.requester, tt.email)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got := apperr.KindOf(err); got != tt.wantKind {
					t.Errorf("Create() error kind = %v, want %v", got, tt.wantKind)
				}
				return
			}
			if edge.Status != models.FriendshipPending || edge.RecipientID != "bob" {
				t.Errorf("Create() = %+v, want pending edge to bob", edge)
			}
		})
	}
}

func TestCreateSingleEdgePerPair(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = svc.Create(ctx, "alice", "carol@example.com") }()
	go func() { defer wg.Done(); _, errs[1] = svc.Create(ctx, "carol", "alice@example.com") }()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("Create() error = %v, want conflict", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d creates succeeded, want 1", succeeded)
	}

	var count int64
	database.Model(&models.Friendship{}).Where("pair_key = ?", models.PairKey("alice", "carol")).Count(&count)
	if count != 1 {
		t.Errorf("edges for pair = %d, want 1", count)
	}

	// The store rejects a second edge even without the existence check.
	repo := db.NewFriendshipRepository(db.NewRepository(database.DB))
	err := repo.Create(ctx, &models.Friendship{RequesterID: "carol", RecipientID: "alice", Status: models.FriendshipPending})
	if !db.IsUniqueViolation(err) {
		t.Errorf("repo.Create() error = %v, want unique violation", err)
	}
}

func TestRespond(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	edge, err := svc.Create(ctx, "alice", "bob@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name     string
		actor    string
		id       string
		status   string
		wantKind apperr.Kind
		wantErr  bool
	}{
		{name: "bad status", actor: "bob", id: edge.ID, status: "pending", wantKind: apperr.KindValidation, wantErr: true},
		{name: "missing edge", actor: "bob", id: "nope", status: "accepted", wantKind: apperr.KindNotFound, wantErr: true},
		{name: "requester cannot respond", actor: "alice", id: edge.ID, status: "accepted", wantKind: apperr.KindAuthorizationDenied, wantErr: true},
		{name: "stranger cannot respond", actor: "carol", id: edge.ID, status: "blocked", wantKind: apperr.KindAuthorizationDenied, wantErr: true},
		{name: "recipient accepts", actor: "bob", id: edge.ID, status: "accepted"},
		{name: "already accepted", actor: "bob", id: edge.ID, status: "blocked", wantKind: apperr.KindConflict, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Respond(ctx, tt.actor, tt.id, tt.status)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Respond() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got := apperr.KindOf(err); got != tt.wantKind {
					t.Errorf("Respond() error kind = %v, want %v", got, tt.wantKind)
				}
			}
		})
	}
}

func TestListAndIsFollowing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ab, err := svc.Create(ctx, "alice", "bob@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Respond(ctx, "bob", ab.ID, models.FriendshipAccepted); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := svc.Create(ctx, "carol", "alice@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "bob", "carol@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	lists, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(lists.Friends) != 1 || lists.Friends[0].Profile.ID != "bob" {
		t.Errorf("Friends = %+v, want [bob]", lists.Friends)
	}
	if len(lists.Requests) != 1 || lists.Requests[0].Profile.ID != "carol" {
		t.Errorf("Requests = %+v, want [carol]", lists.Requests)
	}
	if len(lists.SentRequests) != 0 {
		t.Errorf("SentRequests = %+v, want none", lists.SentRequests)
	}

	lists, err = svc.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(lists.Friends) != 1 || lists.Friends[0].Profile.ID != "alice" {
		t.Errorf("bob Friends = %+v, want [alice]", lists.Friends)
	}
	if len(lists.SentRequests) != 1 || lists.SentRequests[0].Profile.ID != "carol" {
		t.Errorf("bob SentRequests = %+v, want [carol]", lists.SentRequests)
	}

	tests := []struct {
		user, target string
		want         bool
	}{
		{"alice", "bob", true},
		{"bob", "alice", true},
		{"carol", "alice", true},
		{"alice", "carol", false},
		{"alice", "alice", false},
	}
	for _, tt := range tests {
		got, err := svc.IsFollowing(ctx, tt.user, tt.target)
		if err != nil {
			t.Fatalf("IsFollowing() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("IsFollowing(%s, %s) = %v, want %v", tt.user, tt.target, got, tt.want)
		}
	}
}
