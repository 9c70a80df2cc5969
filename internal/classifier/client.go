// Package classifier asks a chat-completions endpoint to categorize a
// prediction and extract its target date and metadata.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/calledit/calledit/internal/models"
	"github.com/calledit/calledit/pkg/config"
	"github.com/calledit/calledit/pkg/logging"
	"github.com/calledit/calledit/pkg/telemetry"
)

// ErrDisabled is returned when no classifier endpoint is configured
var ErrDisabled = errors.New("classifier disabled")

const maxResponseBytes = 1 << 20

// Suggestion is the sanitized classifier output. Category is empty when
// the model answered with something outside the known set.
type Suggestion struct {
	Category   string                `json:"category,omitempty"`
	TargetDate *time.Time            `json:"targetDate,omitempty"`
	Meta       models.PredictionMeta `json:"meta"`
}

// Client calls the classification endpoint
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// New creates a new classifier client
func New(cfg *config.ClassifierConfig) *Client {
	logger := logging.GetLogger().With(zap.String("component", "classifier"))
	if cfg.URL == "" {
		logger.Info("Classifier disabled")
	} else {
		logger.Info("Classifier initialized", zap.String("url", cfg.URL), zap.String("model", cfg.Model))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		logger:     logger,
	}
}

// Enabled reports whether an endpoint is configured
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaFormat `json:"json_schema"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify sends text to the endpoint once and sanitizes the answer
func (c *Client) Classify(ctx context.Context, text string) (*Suggestion, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	ctx, span := telemetry.StartSpan(ctx, "classifier.Classify")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	body, err := json.Marshal(c.buildRequest(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}
	c.logger.Debug("Classifier responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("classifier error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	return Sanitize(decoded.Choices[0].Message.Content)
}

func (c *Client) buildRequest(text string) chatRequest {
	return chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(c.now())},
			{Role: "user", Content: text},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaFormat{
				Name:   "prediction_classification",
				Strict: true,
				Schema: schema(),
			},
		},
	}
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You classify short predictions about the future.
Today is %s.
Pick the single best category. If the prediction names a date or a relative
time ("by next summer", "before 2030"), resolve it to a calendar date in
YYYY-MM-DD form, otherwise use null. List short lowercase topic tags, the
named entities involved, the main subject and the predicted action, and your
confidence between 0 and 1 that the category is right.`, now.UTC().Format("2006-01-02"))
}

func schema() map[string]interface{} {
	stringList := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category":   map[string]interface{}{"type": "string", "enum": config.Categories},
			"targetDate": map[string]interface{}{"type": []string{"string", "null"}},
			"tags":       stringList,
			"entities":   stringList,
			"subject":    map[string]interface{}{"type": "string"},
			"action":     map[string]interface{}{"type": "string"},
			"confidence": map[string]interface{}{"type": "number"},
		},
		"required":             []string{"category", "targetDate", "tags", "entities", "subject", "action", "confidence"},
		"additionalProperties": false,
	}
}
