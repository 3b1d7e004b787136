// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

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

const wpPostsPath = "/wp-json/wp/v2/posts"

// BlogPost is what the blog needs to create one post.
type BlogPost struct {
	Title           string
	Markdown        string
	MetaDescription string
	Status          types.BlogStatus
}

// WordPressClient creates posts through the WordPress REST API using an
// application password.
type WordPressClient struct {
	HTTPClient  *http.Client
	BaseURL     string
	User        string
	AppPassword string
	UserAgent   string
	MaxRetries  int
}

// NewWordPressClient builds a blog client from config.
func NewWordPressClient(cfg types.PublishConfig) (*WordPressClient, error) {
	if cfg.BlogBaseURL == "" {
		return nil, fmt.Errorf("blog base URL is required")
	}
	if cfg.BlogUser == "" || cfg.BlogAppPassword == "" {
		return nil, fmt.Errorf("blog user and application password are required")
	}
	return &WordPressClient{
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		BaseURL:     strings.TrimRight(cfg.BlogBaseURL, "/"),
		User:        cfg.BlogUser,
		AppPassword: cfg.BlogAppPassword,
		UserAgent:   cfg.UserAgent,
		MaxRetries:  cfg.MaxRetries,
	}, nil
}

// WordPress API JSON structures.
type wpPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
	Excerpt string `json:"excerpt,omitempty"`
}

type wpPostResponse struct {
	ID   int    `json:"id"`
	Link string `json:"link"`
}

// PublishBlog renders the Markdown to HTML and creates the post,
// returning its public URL.
func (c *WordPressClient) PublishBlog(ctx context.Context, post BlogPost) (string, error) {
	if !post.Status.Valid() {
		return "", fmt.Errorf("unknown blog status %q", post.Status)
	}

	html, err := markdownToHTML(post.Markdown)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(wpPostRequest{
		Title:   post.Title,
		Content: html,
		Status:  string(post.Status),
		Excerpt: post.MetaDescription,
	})
	if err != nil {
		return "", fmt.Errorf("encoding post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+wpPostsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.User, c.AppPassword)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("blog API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blog API returned HTTP %d", resp.StatusCode)
	}

	var pr wpPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("parsing blog response: %w", err)
	}
	if pr.Link == "" {
		return "", fmt.Errorf("blog API returned no post link")
	}
	return pr.Link, nil
}
