// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/content-pipeline/internal/httputil"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// linkedinAPIBase is the LinkedIn UGC posts endpoint. Declared as a var
// so tests can substitute an httptest server.
var linkedinAPIBase = "https://api.linkedin.com/v2/ugcPosts"

// LinkedInClient shares published articles as UGC posts.
type LinkedInClient struct {
	HTTPClient  *http.Client
	AccessToken string
	AuthorURN   string
	UserAgent   string
	MaxRetries  int
}

// NewLinkedInClient builds a social client from config.
func NewLinkedInClient(cfg types.PublishConfig) (*LinkedInClient, error) {
	if cfg.SocialAccessToken == "" {
		return nil, fmt.Errorf("social access token is required")
	}
	if cfg.SocialAuthorURN == "" {
		return nil, fmt.Errorf("social author URN is required")
	}
	return &LinkedInClient{
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		AccessToken: cfg.SocialAccessToken,
		AuthorURN:   cfg.SocialAuthorURN,
		UserAgent:   cfg.UserAgent,
		MaxRetries:  cfg.MaxRetries,
	}, nil
}

// LinkedIn UGC API JSON structures.
type ugcPostRequest struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

type ugcPostResponse struct {
	ID string `json:"id"`
}

// PublishSocial shares the article link with the announcement text and
// returns the created post id.
func (c *LinkedInClient) PublishSocial(ctx context.Context, text, articleURL string) (string, error) {
	body, err := json.Marshal(ugcPostRequest{
		Author:         c.AuthorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": text},
				"shareMediaCategory": "ARTICLE",
				"media": []map[string]any{
					{"status": "READY", "originalUrl": articleURL},
				},
			},
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding share: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinAPIBase, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("social API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("social API returned HTTP %d", resp.StatusCode)
	}

	var pr ugcPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("parsing social response: %w", err)
	}
	if pr.ID == "" {
		return "", fmt.Errorf("social API returned no post id")
	}
	return pr.ID, nil
}
