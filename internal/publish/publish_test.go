// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/content-pipeline/internal/httputil"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestMarkdownToHTML(t *testing.T) {
	html, err := markdownToHTML("## Heading\n\nA paragraph with **bold** text.")
	if err != nil {
		t.Fatalf("markdownToHTML: %v", err)
	}
	if !strings.Contains(html, "<h2>Heading</h2>") {
		t.Errorf("missing heading in %q", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("missing bold in %q", html)
	}
}

func TestPublishBlog(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody wpPostRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(wpPostResponse{ID: 42, Link: "http://" + r.Host + "/p/42"})
	}))
	defer server.Close()

	client := &WordPressClient{
		HTTPClient:  server.Client(),
		BaseURL:     server.URL,
		User:        "writer",
		AppPassword: "app-pass",
	}

	url, err := client.PublishBlog(context.Background(), BlogPost{
		Title:           "Zero Trust in Practice",
		Markdown:        "## Introduction\n\nBody.",
		MetaDescription: "A practical look at zero trust.",
		Status:          types.BlogStatusPublish,
	})
	if err != nil {
		t.Fatalf("PublishBlog: %v", err)
	}
	if gotPath != "/wp-json/wp/v2/posts" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "writer" || gotPass != "app-pass" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if gotBody.Status != "publish" {
		t.Errorf("status = %q, want publish", gotBody.Status)
	}
	if !strings.Contains(gotBody.Content, "<h2>Introduction</h2>") {
		t.Errorf("content not rendered to HTML: %q", gotBody.Content)
	}
	if gotBody.Excerpt != "A practical look at zero trust." {
		t.Errorf("excerpt = %q", gotBody.Excerpt)
	}
	if !strings.HasSuffix(url, "/p/42") {
		t.Errorf("url = %q, want post link", url)
	}
}

func TestPublishBlogInvalidStatus(t *testing.T) {
	client := &WordPressClient{BaseURL: "http://unused.invalid", HTTPClient: http.DefaultClient}

	_, err := client.PublishBlog(context.Background(), BlogPost{
		Title: "T", Markdown: "body", Status: "scheduled",
	})
	if err == nil {
		t.Error("PublishBlog accepted an unknown status")
	}
}

func TestPublishBlogRetriesServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// The retried request must carry the body again.
		var body wpPostRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
			t.Errorf("attempt %d: bad body (%v)", calls, err)
		}
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(wpPostResponse{ID: 1, Link: "http://x/p/1"})
	}))
	defer server.Close()

	client := &WordPressClient{
		HTTPClient: server.Client(), BaseURL: server.URL,
		User: "u", AppPassword: "p",
	}
	_, err := client.PublishBlog(context.Background(), BlogPost{
		Title: "T", Markdown: "body", Status: types.BlogStatusDraft,
	})
	if err != nil {
		t.Fatalf("PublishBlog: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestNewWordPressClientValidation(t *testing.T) {
	if _, err := NewWordPressClient(types.PublishConfig{BlogUser: "u", BlogAppPassword: "p"}); err == nil {
		t.Error("accepted missing base URL")
	}
	if _, err := NewWordPressClient(types.PublishConfig{BlogBaseURL: "http://x"}); err == nil {
		t.Error("accepted missing credentials")
	}
}

func TestPublishSocial(t *testing.T) {
	var gotAuth string
	var gotBody ugcPostRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ugcPostResponse{ID: "urn:li:share:123"})
	}))
	defer server.Close()

	orig := linkedinAPIBase
	linkedinAPIBase = server.URL
	defer func() { linkedinAPIBase = orig }()

	client := &LinkedInClient{
		HTTPClient:  server.Client(),
		AccessToken: "token",
		AuthorURN:   "urn:li:person:abc",
	}

	id, err := client.PublishSocial(context.Background(), "New article out now.", "http://blog/p/42")
	if err != nil {
		t.Fatalf("PublishSocial: %v", err)
	}
	if id != "urn:li:share:123" {
		t.Errorf("id = %q", id)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Author != "urn:li:person:abc" {
		t.Errorf("author = %q", gotBody.Author)
	}
}

func TestPublishSocialHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired token", http.StatusUnauthorized)
	}))
	defer server.Close()

	orig := linkedinAPIBase
	linkedinAPIBase = server.URL
	defer func() { linkedinAPIBase = orig }()

	client := &LinkedInClient{HTTPClient: server.Client(), AccessToken: "t", AuthorURN: "urn"}
	if _, err := client.PublishSocial(context.Background(), "text", "http://x"); err == nil {
		t.Error("PublishSocial ignored HTTP 401")
	}
}
