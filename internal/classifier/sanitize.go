package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calledit/calledit/pkg/config"
)

type rawSuggestion struct {
	Category   string   `json:"category"`
	TargetDate *string  `json:"targetDate"`
	Tags       []string `json:"tags"`
	Entities   []string `json:"entities"`
	Subject    string   `json:"subject"`
	Action     string   `json:"action"`
	Confidence *float64 `json:"confidence"`
}

// Sanitize parses model output into a Suggestion. It tolerates code fences
// and drops values outside the accepted ranges.
func Sanitize(content string) (*Suggestion, error) {
	content = stripFences(content)
	if content == "" {
		return nil, fmt.Errorf("classifier returned empty content")
	}

	var raw rawSuggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode classifier content: %w", err)
	}

	s := &Suggestion{}
	if category := strings.ToLower(strings.TrimSpace(raw.Category)); config.IsCategory(category) {
		s.Category = category
	}
	if raw.TargetDate != nil {
		s.TargetDate = parseDate(*raw.TargetDate)
	}
	s.Meta.Tags = dedupe(raw.Tags, true)
	s.Meta.Entities = dedupe(raw.Entities, false)
	s.Meta.Subject = strings.TrimSpace(raw.Subject)
	s.Meta.Action = strings.TrimSpace(raw.Action)
	if raw.Confidence != nil {
		c := *raw.Confidence
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		s.Meta.Confidence = &c
	}
	return s, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag such as "json".
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func dedupe(values []string, lower bool) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
