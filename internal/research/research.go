// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research gathers background material for a topic from a
// web-grounded answer API before drafting begins.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/content-pipeline/internal/httputil"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// perplexityAPIBase is the Perplexity chat completions endpoint. Declared
// as a var so tests can substitute an httptest server.
var perplexityAPIBase = "https://api.perplexity.ai/chat/completions"

const researchSystem = "You are a research assistant. Summarize the current state of the " +
	"topic with concrete facts, figures, and recent developments, suitable as source " +
	"material for an article."

// Client queries the Perplexity API for topic research.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	UserAgent  string
	MaxRetries int

	baseURL string
}

// New builds a research client from config. The endpoint is captured
// per client so two clients with different base URLs do not interfere.
func New(cfg types.ResearchConfig) *Client {
	base := perplexityAPIBase
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		baseURL:    base,
	}
}

// Perplexity API JSON structures.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Research asks the given model about the topic and returns the summary
// plus the cited source URLs. An empty summary is an error: drafting on
// missing research would silently produce an ungrounded article.
func (c *Client) Research(ctx context.Context, topic string, model types.ResearchModel) (types.ResearchResult, error) {
	if !model.Valid() {
		return types.ResearchResult{}, fmt.Errorf("unknown research model %q", model)
	}

	body, err := json.Marshal(chatRequest{
		Model: string(model),
		Messages: []chatMessage{
			{Role: "system", Content: researchSystem},
			{Role: "user", Content: fmt.Sprintf("Research this topic for an article: %s", topic)},
		},
	})
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("encoding research request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("research API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.ResearchResult{}, fmt.Errorf("research API returned HTTP %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return types.ResearchResult{}, fmt.Errorf("parsing research response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return types.ResearchResult{}, fmt.Errorf("research API returned no choices")
	}

	summary := strings.TrimSpace(cr.Choices[0].Message.Content)
	if summary == "" {
		return types.ResearchResult{}, fmt.Errorf("research API returned an empty summary for %q", topic)
	}

	return types.ResearchResult{
		Summary:    summary,
		SourceURLs: cr.Citations,
	}, nil
}
