package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calledit/calledit/pkg/config"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantCategory string
		wantDate     string
		wantTags     int
		wantErr      bool
	}{
		{
			name:         "plain",
			content:      `{"category":"sports","targetDate":"2025-02-09","tags":["nfl","NFL"," "],"entities":["Chiefs"],"subject":"Chiefs","action":"win","confidence":0.9}`,
			wantCategory: "sports",
			wantDate:     "2025-02-09",
			wantTags:     1,
		},
		{
			name:         "fenced with uppercase category",
			content:      "```json\n{\"category\":\" Technology \",\"targetDate\":null,\"tags\":[],\"entities\":[],\"subject\":\"\",\"action\":\"\",\"confidence\":3}\n```",
			wantCategory: "technology",
		},
		{
			name:    "unknown category dropped",
			content: `{"category":"health","targetDate":"soon","tags":[],"entities":[],"subject":"","action":"","confidence":0.2}`,
		},
		{
			name:    "not json",
			content: "I think this is about sports",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Sanitize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCategory)
			}
			gotDate := ""
			if got.TargetDate != nil {
				gotDate = got.TargetDate.Format("2006-01-02")
			}
			if gotDate != tt.wantDate {
				t.Errorf("TargetDate = %q, want %q", gotDate, tt.wantDate)
			}
			if len(got.Meta.Tags) != tt.wantTags {
				t.Errorf("Tags = %v, want %d tags", got.Meta.Tags, tt.wantTags)
			}
			if c := got.Meta.Confidence; c != nil && (*c < 0 || *c > 1) {
				t.Errorf("Confidence = %v, want within 0..1", *c)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Authorization = %q, want Bearer key", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"content": `{"category":"politics","targetDate":"2028-11-07","tags":["election"],"entities":[],"subject":"election","action":"win","confidence":0.7}`,
				}},
			},
		})
	}))
	defer srv.Close()

	c := New(&config.ClassifierConfig{URL: srv.URL, APIKey: "key", Model: "test-model", Timeout: time.Second})
	got, err := c.Classify(context.Background(), "Candidate Y wins in 2028")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Category != "politics" {
		t.Errorf("Category = %q, want politics", got.Category)
	}
	if gotReq.Model != "test-model" || gotReq.ResponseFormat.Type != "json_schema" {
		t.Errorf("request = %+v, want model test-model with json_schema format", gotReq)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "Candidate Y wins in 2028" {
		t.Errorf("messages = %+v, want system prompt and user text", gotReq.Messages)
	}
}

func TestClassifyFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(&config.ClassifierConfig{URL: srv.URL, Timeout: time.Second})
	if _, err := c.Classify(context.Background(), "x"); err == nil {
		t.Error("Classify() error = nil, want upstream failure")
	}
	if calls != 1 {
		t.Errorf("endpoint called %d times, want 1", calls)
	}

	disabled := New(&config.ClassifierConfig{})
	if _, err := disabled.Classify(context.Background(), "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Classify() error = %v, want %v", err, ErrDisabled)
	}
}
