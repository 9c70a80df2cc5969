package objects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/calledit/calledit/internal/db/dbtest"
	"github.com/calledit/calledit/internal/models"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.Profile
		want    string
	}{
		{
			name:    "first token of full name",
			profile: &models.Profile{FullName: nullString("Ada  Lovelace"), Handle: nullString("ada"), Email: "ada@example.com"},
			want:    "Ada",
		},
		{
			name:    "handle when name blank",
			profile: &models.Profile{FullName: nullString("   "), Handle: nullString("countess"), Email: "ada@example.com"},
			want:    "countess",
		},
		{
			name:    "email local part",
			profile: &models.Profile{Email: "ada@example.com"},
			want:    "ada",
		},
		{
			name:    "fallback",
			profile: &models.Profile{},
			want:    "Authenticated",
		},
		{
			name:    "nil profile",
			profile: nil,
			want:    "Authenticated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.profile); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMapPredictionWithoutProfile(t *testing.T) {
	record := &models.Prediction{
		ID:        "p1",
		UserID:    "u1",
		Category:  "sports",
		Text:      "Team X wins",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	view, err := MapPrediction(record, nil)
	if err != nil {
		t.Fatalf("MapPrediction() error = %v", err)
	}
	if view.Author != nil {
		t.Errorf("Author = %+v, want nil", view.Author)
	}
	if view.Outcome != models.OutcomePending {
		t.Errorf("Outcome = %q, want %q", view.Outcome, models.OutcomePending)
	}
	if view.Meta != nil {
		t.Errorf("Meta = %+v, want nil", view.Meta)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, key := range []string{"author", "meta", "targetDate", "evidenceImageUrl"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("JSON should omit %q, got %s", key, raw)
		}
	}
	if decoded["createdAt"] != "2024-03-01T12:00:00Z" {
		t.Errorf("createdAt = %v, want 2024-03-01T12:00:00Z", decoded["createdAt"])
	}
}

func TestMapPredictionOptionalFields(t *testing.T) {
	target := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	record := &models.Prediction{
		ID:               "p1",
		UserID:           "u1",
		Category:         "technology",
		Text:             "Fusion by 2030",
		Outcome:          models.OutcomeTrue,
		TargetDate:       &target,
		EvidenceImageURL: nullString("https://img.example/e.png"),
		Meta:             datatypes.JSON(`{"tags":["energy"],"confidence":0.4}`),
	}
	profile := &models.Profile{ID: "u1", FullName: nullString("Grace Hopper"), Handle: nullString("grace")}

	view, err := MapPrediction(record, profile)
	if err != nil {
		t.Fatalf("MapPrediction() error = %v", err)
	}
	if view.Author == nil || view.Author.DisplayName != "Grace" || view.Author.Handle != "grace" {
		t.Errorf("Author = %+v, want Grace/grace", view.Author)
	}
	if view.TargetDate != "2025-01-01T00:00:00Z" {
		t.Errorf("TargetDate = %q, want 2025-01-01T00:00:00Z", view.TargetDate)
	}
	if view.Meta == nil || len(view.Meta.Tags) != 1 || *view.Meta.Confidence != 0.4 {
		t.Errorf("Meta = %+v, want tags [energy] confidence 0.4", view.Meta)
	}
	if view.Outcome != models.OutcomeTrue {
		t.Errorf("Outcome = %q, want %q", view.Outcome, models.OutcomeTrue)
	}
}

func TestMapPredictionRequiredFields(t *testing.T) {
	base := func() *models.Prediction {
		return &models.Prediction{ID: "p1", UserID: "u1", Category: "sports", Text: "x"}
	}
	tests := []struct {
		name   string
		mutate func(*models.Prediction)
	}{
		{name: "missing id", mutate: func(p *models.Prediction) { p.ID = "" }},
		{name: "missing owner", mutate: func(p *models.Prediction) { p.UserID = "" }},
		{name: "missing category", mutate: func(p *models.Prediction) { p.Category = "" }},
		{name: "missing text", mutate: func(p *models.Prediction) { p.Text = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			if _, err := MapPrediction(p, nil); !errors.Is(err, ErrIncompleteRecord) {
				t.Errorf("MapPrediction() error = %v, want %v", err, ErrIncompleteRecord)
			}
		})
	}

	if _, err := MapPrediction(&models.Prediction{ID: "p1", UserID: "u1", Category: "sports", Text: "x", Meta: datatypes.JSON("not json")}, nil); err != nil {
		t.Errorf("MapPrediction() with malformed meta error = %v, want nil", err)
	}
}

func TestPredictionLoaderLoad(t *testing.T) {
	database := dbtest.New(t)
	ctx := context.Background()

	if err := database.Create(&models.Profile{ID: "u1", Email: "ann@example.com"}).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	records := []*models.Prediction{
		{ID: "p2", UserID: "ghost", Category: "sports", Text: "no profile"},
		{ID: "p1", UserID: "u1", Category: "sports", Text: "with profile"},
	}

	views, err := NewPredictionLoader(database.DB).Load(ctx, records)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Load() returned %d views, want 2", len(views))
	}
	if views[0].ID != "p2" || views[0].Author != nil {
		t.Errorf("views[0] = %+v, want p2 without author", views[0])
	}
	if views[1].Author == nil || views[1].Author.DisplayName != "ann" {
		t.Errorf("views[1].Author = %+v, want display name ann", views[1].Author)
	}
}

func TestMapProfilePrivacy(t *testing.T) {
	p := &models.Profile{ID: "u1", Email: "ann@example.com", Role: models.RoleAdmin}

	public := MapProfile(p, false)
	if public.Email != "" || public.Role != "" {
		t.Errorf("MapProfile(public) = %+v, want no email/role", public)
	}
	private := MapProfile(p, true)
	if private.Email != "ann@example.com" || private.Role != models.RoleAdmin {
		t.Errorf("MapProfile(private) = %+v, want email and role", private)
	}
}
