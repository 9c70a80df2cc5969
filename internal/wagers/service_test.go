package wagers

import (
	"context"
	"testing"
	"time"

	"github.com/calledit/calledit/internal/apperr"
	"github.com/calledit/calledit/internal/db"
	"github.com/calledit/calledit/internal/db/dbtest"
	"github.com/calledit/calledit/internal/models"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database := dbtest.New(t)
	for _, p := range []models.Profile{
		{ID: "alice", Email: "alice@example.com"},
		{ID: "bob", Email: "bob@example.com"},
	} {
		p := p
		if err := database.Create(&p).Error; err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	deleted := time.Now().UTC()
	for _, p := range []models.Prediction{
		{ID: "p1", UserID: "alice", Category: "sports", Text: "Team X wins"},
		{ID: "secret", UserID: "alice", Category: "politics", Text: "Hidden", IsPrivate: true},
		{ID: "gone", UserID: "alice", Category: "sports", Text: "deleted", DeletedAt: &deleted},
	} {
		p := p
		if err := database.Create(&p).Error; err != nil {
			t.Fatalf("seed prediction: %v", err)
		}
	}
	repo := db.NewRepository(database.DB)
	return NewService(db.NewWagerRepository(repo), db.NewPredictionRepository(repo), db.NewProfileRepository(repo)), database
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		prediction string
		friend     string
		terms      string
		wantKind   apperr.Kind
		wantErr    bool
	}{
		{name: "missing prediction id", friend: "bob", terms: "coffee", wantKind: apperr.KindValidation, wantErr: true},
		{name: "blank terms", prediction: "p1", friend: "bob", terms: "  ", wantKind: apperr.KindValidation, wantErr: true},
		{name: "self wager", prediction: "p1", friend: "alice", terms: "coffee", wantKind: apperr.KindValidation, wantErr: true},
		{name: "unknown prediction", prediction: "nope", friend: "bob", terms: "coffee", wantKind: apperr.KindNotFound, wantErr: true},
		{name: "deleted prediction", prediction: "gone", friend: "bob", terms: "coffee", wantKind: apperr.KindNotFound, wantErr: true},
		{name: "unknown friend", prediction: "p1", friend: "zed", terms: "coffee", wantKind: apperr.KindNotFound, wantErr: true},
		{name: "ok", prediction: "p1", friend: "bob", terms: "coffee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.Create(ctx, "alice", tt.prediction, tt.friend, tt.terms)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got := apperr.KindOf(err); got != tt.wantKind {
					t.Errorf("Create() error kind = %v, want %v", got, tt.wantKind)
				}
				return
			}
			if view.Status != models.WagerPending || view.ChallengerID != "alice" || view.RecipientID != "bob" {
				t.Errorf("Create() = %+v, want pending alice -> bob", view)
			}
		})
	}
}

func TestRespondChallengerDenied(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, "alice", "p1", "bob", "loser buys lunch")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, status := range []string{models.WagerAccepted, models.WagerDeclined} {
		err := svc.Respond(ctx, "alice", view.ID, status)
		if !apperr.Is(err, apperr.KindAuthorizationDenied) {
			t.Errorf("Respond(challenger, %s) error = %v, want authorization denied", status, err)
		}
	}

	var stored models.Wager
	if err := database.First(&stored, "id = ?", view.ID).Error; err != nil {
		t.Fatalf("load wager: %v", err)
	}
	if stored.Status != models.WagerPending {
		t.Errorf("Status = %q, want %q", stored.Status, models.WagerPending)
	}
}

func TestRespondAndComplete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.Create(ctx, "alice", "p1", "bob", "loser buys lunch")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Complete(ctx, view.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Complete(pending) error = %v, want conflict", err)
	}
	if err := svc.Respond(ctx, "bob", view.ID, "completed"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Respond(completed) error = %v, want validation", err)
	}
	if err := svc.Respond(ctx, "bob", "missing", models.WagerAccepted); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Respond(missing) error = %v, want not found", err)
	}
	if err := svc.Respond(ctx, "bob", view.ID, models.WagerAccepted); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if err := svc.Respond(ctx, "bob", view.ID, models.WagerDeclined); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("Respond(accepted) error = %v, want conflict", err)
	}
	if err := svc.Complete(ctx, view.ID); err != nil {
		t.Errorf("Complete() error = %v", err)
	}
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", "p1", "bob", "first"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, "bob", "p1", "alice", "second"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, user := range []string{"alice", "bob"} {
		views, err := svc.List(ctx, user)
		if err != nil {
			t.Fatalf("List(%s) error = %v", user, err)
		}
		if len(views) != 2 {
			t.Fatalf("List(%s) = %d wagers, want 2", user, len(views))
		}
		for _, v := range views {
			if v.Challenger == nil || v.Recipient == nil || v.Prediction == nil {
				t.Errorf("List(%s) view %s not enriched: %+v", user, v.ID, v)
			}
		}
	}

	views, err := svc.List(ctx, "carol")
	if err != nil {
		t.Fatalf("List(carol) error = %v", err)
	}
	if len(views) != 0 {
		t.Errorf("List(carol) = %d wagers, want 0", len(views))
	}
}

func TestPrivatePrediction(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "bob", "secret", "alice", "coffee"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Create() on another user's private prediction error = %v, want not found", err)
	}
	if _, err := svc.Create(ctx, "alice", "secret", "bob", "coffee"); err != nil {
		t.Fatalf("Create() by owner error = %v", err)
	}

	tests := []struct {
		user     string
		wantText string
	}{
		{"alice", "Hidden"},
		{"bob", ""},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			views, err := svc.List(ctx, tt.user)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(views) != 1 || views[0].Prediction == nil {
				t.Fatalf("List() = %+v, want one enriched wager", views)
			}
			summary := views[0].Prediction
			if summary.Text != tt.wantText {
				t.Errorf("Prediction.Text = %q, want %q", summary.Text, tt.wantText)
			}
			if !summary.IsPrivate {
				t.Error("Prediction.IsPrivate = false, want true")
			}
		})
	}
}
