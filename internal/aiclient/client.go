// Package aiclient calls a generative collaborator to infer a source
// configuration when structural analysis is unavailable or has failed.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/newsloom/source-manager/internal/config"
	"github.com/newsloom/source-manager/internal/httpx"
	"github.com/newsloom/source-manager/internal/logger"
	"github.com/newsloom/source-manager/internal/models"
)

// GenerationError covers empty responses, transport failures, and non-JSON
// output from the generative collaborator. Terminal for the identifier.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ai generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ValidationError means the collaborator returned parseable JSON that lacks
// the required structure. Terminal for the identifier.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated config invalid: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// generateRequest is the wire shape of the collaborator's generate endpoint.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature   float64 `json:"temperature"`
	NumPredict    int     `json:"num_predict"`
	NumCtx        int     `json:"num_ctx"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Client is an HTTP client for the generative collaborator. Sampling
// parameters come from configuration, not per call.
type Client struct {
	cfg    config.AIConfig
	client *http.Client
	logger logger.Logger
}

// NewClient creates a generative fallback client.
func NewClient(cfg config.AIConfig, log logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		client: httpx.NewClient(cfg.Timeout),
		logger: log,
	}
}

// Generate asks the collaborator for a source config for the identifier and
// validates the result. A single failed attempt is a single failure; there
// are no retries here.
func (c *Client) Generate(ctx context.Context, identifier string) (*models.SourceConfig, error) {
	reqBody := generateRequest{
		Model:  c.cfg.Model,
		Prompt: buildPrompt(identifier),
		Stream: false,
		Format: "json",
		Options: generateOptions{
			Temperature:   c.cfg.Temperature,
			NumPredict:    c.cfg.MaxTokens,
			NumCtx:        c.cfg.ContextWindow,
			TopP:          c.cfg.TopP,
			RepeatPenalty: c.cfg.RepeatPenalty,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &GenerationError{Reason: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Reason: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	c.logger.Debug("Requesting generative config",
		logger.String("identifier", identifier),
		logger.String("model", c.cfg.Model),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &GenerationError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GenerationError{Reason: fmt.Sprintf("unexpected status code: %d", resp.StatusCode)}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, &GenerationError{Reason: "decode response", Err: err}
	}

	if strings.TrimSpace(genResp.Response) == "" {
		return nil, &GenerationError{Reason: "empty response"}
	}

	cleaned := ExtractJSON(genResp.Response)

	var sourceConfig models.SourceConfig
	if err := json.Unmarshal([]byte(cleaned), &sourceConfig); err != nil {
		// Keep the raw text for diagnostics; it is never returned to the
		// caller.
		c.logger.Debug("Generative response was not valid JSON",
			logger.String("identifier", identifier),
			logger.String("raw_response", genResp.Response),
		)
		return nil, &GenerationError{Reason: "invalid JSON", Err: err}
	}

	if err := sourceConfig.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	c.logger.Info("Generative config produced",
		logger.String("identifier", identifier),
		logger.String("platform", string(sourceConfig.Platform)),
	)

	return &sourceConfig, nil
}

// buildPrompt asks for exactly one JSON object and spells out the platform
// detection rules so the collaborator does not have to guess them.
func buildPrompt(identifier string) string {
	return fmt.Sprintf(`You are configuring a content ingestion system.

Source identifier: %q

Determine the platform first:
- If the identifier contains "t.me/" or starts with "@", it is a Telegram channel.
- If it is a URL or a bare domain, it is a website.

Respond with exactly one JSON object and nothing else, no explanations.
The object must have a "platform" field ("telegram" or "website") and a
"common" field with ingestion settings: fetch_limit, deduplication_strategy
("message_id" for telegram, "url" for websites), media settings
(include, download, max_per_item, allowed_types) and content settings
(strip_urls, strip_emojis, skip_patterns, min_text_length,
use_caption_if_media).

For telegram, add a "telegram" object: {"type": "channel", "username": <the
channel username without the t.me/ or @ prefix>, "access_method": "user"}.
For websites, add a "website" object: {"detected_framework": <your best
guess or "unknown">, "article_link_selectors": <likely CSS selectors for
article links>, "rss_feeds": <likely feed URLs, or []>}.`, identifier)
}
