// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/content-pipeline/internal/httputil"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(types.ResearchConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "content-pipeline-test/0.1"},
		APIKey:     "test-key",
		BaseURL:    server.URL,
	})
}

func researchAnswer(content string, citations []string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"citations": citations,
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestResearch(t *testing.T) {
	var gotAuth, gotModel string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotModel = req.Model
		w.Write([]byte(researchAnswer("Zero trust replaces perimeter security.",
			[]string{"https://example.com/a", "https://example.com/b"})))
	})

	result, err := client.Research(context.Background(), "Zero Trust Architecture", types.ResearchSonarPro)
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotModel != "sonar-pro" {
		t.Errorf("model = %q, want sonar-pro", gotModel)
	}
	if result.Summary != "Zero trust replaces perimeter security." {
		t.Errorf("Summary = %q", result.Summary)
	}
	if len(result.SourceURLs) != 2 {
		t.Errorf("SourceURLs = %v, want 2 citations", result.SourceURLs)
	}
}

func TestResearchInvalidModel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request made despite invalid model")
	})

	if _, err := client.Research(context.Background(), "Topic", "sonar-ultra"); err == nil {
		t.Error("Research accepted an unknown model")
	}
}

func TestResearchEmptySummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(researchAnswer("   ", nil)))
	})

	if _, err := client.Research(context.Background(), "Topic", types.ResearchSonar); err == nil {
		t.Error("Research accepted an empty summary")
	}
}

func TestResearchHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := client.Research(context.Background(), "Topic", types.ResearchSonar); err == nil {
		t.Error("Research ignored HTTP 400")
	}
}

func TestResearchClientsKeepOwnBaseURL(t *testing.T) {
	var aCalls, bCalls int
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		aCalls++
		w.Write([]byte(researchAnswer("From A.", nil)))
	})
	b := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		bCalls++
		w.Write([]byte(researchAnswer("From B.", nil)))
	})

	if _, err := a.Research(context.Background(), "Topic", types.ResearchSonar); err != nil {
		t.Fatalf("Research via a: %v", err)
	}
	if _, err := b.Research(context.Background(), "Topic", types.ResearchSonar); err != nil {
		t.Fatalf("Research via b: %v", err)
	}
	if aCalls != 1 || bCalls != 1 {
		t.Errorf("calls = %d/%d, want each client hitting its own endpoint", aCalls, bCalls)
	}
	if perplexityAPIBase != "https://api.perplexity.ai/chat/completions" {
		t.Errorf("package default mutated to %q", perplexityAPIBase)
	}
}

func TestResearchRetriesServerError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream overloaded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(researchAnswer("Recovered summary.", nil)))
	})

	result, err := client.Research(context.Background(), "Topic", types.ResearchSonarReasoning)
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if result.Summary != "Recovered summary." {
		t.Errorf("Summary = %q", result.Summary)
	}
}
