// Package gemini backs the honeypot's classifier and generator capabilities
// with the Google Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"honeypot/internal/models"
	"honeypot/internal/persona"
)

// Config for the Gemini client.
type Config struct {
	APIKey     string
	ModelName  string // Default: "gemini-2.0-flash"
	MaxRetries int
	RetryDelay time.Duration
}

// Client wraps the Gemini API for scam classification and persona replies.
type Client struct {
	client       *genai.Client
	verdictModel *genai.GenerativeModel
	replyModel   *genai.GenerativeModel
	logger       *zap.Logger
	modelName    string
	maxRetries   int
	retryDelay   time.Duration
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	verdictModel := client.GenerativeModel(cfg.ModelName)
	verdictModel.ResponseMIMEType = "application/json"
	verdictModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2), // Low for consistent verdicts
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](200),
	}

	replyModel := client.GenerativeModel(cfg.ModelName)
	replyModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.9), // Higher so replies stay in character
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: genai.Ptr[int32](300),
	}

	logger.Info("Gemini client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:       client,
		verdictModel: verdictModel,
		replyModel:   replyModel,
		logger:       logger,
		modelName:    cfg.ModelName,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}, nil
}

// Close closes the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Classify returns a scam verdict for the latest message.
func (c *Client) Classify(ctx context.Context, text string, history []models.Turn) (models.Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return models.Verdict{ScamType: "empty message"}, nil
	}

	raw, err := c.generate(ctx, c.verdictModel, classifyPrompt(text, history))
	if err != nil {
		return models.Verdict{}, err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("unexpected verdict shape: %w", err)
	}
	return verdict, nil
}

// Reply generates the next persona-consistent message.
func (c *Client) Reply(ctx context.Context, p persona.Profile, history []models.Turn, latest string) (string, error) {
	text, err := c.generate(ctx, c.replyModel, replyPrompt(p, history, latest))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generate calls the model with retries and returns the first text part.
func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying Gemini request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = fmt.Errorf("gemini API error: %w", err)
			c.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from gemini")
			c.logger.Error("Empty response from Gemini", zap.Int("attempt", attempt+1))
			continue
		}

		textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from gemini")
			c.logger.Error("Unexpected response type", zap.Int("attempt", attempt+1))
			continue
		}

		return string(textPart), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// verdictPayload tolerates loosely typed model output; fields are coerced in
// normalizeVerdict.
type verdictPayload struct {
	IsScam     interface{} `json:"is_scam"`
	Confidence interface{} `json:"confidence"`
	ScamType   string      `json:"scam_type"`
	Reason     string      `json:"reason"`
}

// parseVerdict salvages a JSON verdict from raw model output. The model may
// wrap JSON in markdown fences or surround it with commentary.
func parseVerdict(raw string) (models.Verdict, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(clean), &payload); err == nil {
		return normalizeVerdict(payload), nil
	}

	// Last resort: anything between the first { and the last }.
	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first != -1 && last > first {
		if err := json.Unmarshal([]byte(clean[first:last+1]), &payload); err == nil {
			return normalizeVerdict(payload), nil
		}
	}

	return models.Verdict{}, fmt.Errorf("no valid JSON object in model output")
}

func normalizeVerdict(p verdictPayload) models.Verdict {
	var isScam bool
	switch v := p.IsScam.(type) {
	case bool:
		isScam = v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		isScam = s == "true" || s == "yes" || s == "1"
	case float64:
		isScam = v != 0
	}

	var confidence int
	switch v := p.Confidence.(type) {
	case float64:
		confidence = int(v)
	case string:
		confidence, _ = strconv.Atoi(strings.TrimSpace(v))
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	scamType := strings.TrimSpace(p.ScamType)
	if scamType == "" {
		scamType = strings.TrimSpace(p.Reason)
	}
	if scamType == "" {
		scamType = "unknown"
	}

	return models.Verdict{
		IsScam:     isScam,
		Confidence: confidence,
		ScamType:   scamType,
	}
}
