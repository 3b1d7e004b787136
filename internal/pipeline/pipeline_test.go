// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/publish"
	"github.com/pdiddy/content-pipeline/internal/quality"
	"github.com/pdiddy/content-pipeline/internal/router"
	"github.com/pdiddy/content-pipeline/internal/store"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// testArticle produces a rubric-complete Markdown draft of roughly
// wordCount words. Small counts fail the quality word band, which is
// how tests drive the revision loop.
func testArticle(wordCount int) string {
	sentence := "The security team reviews each control and records the outcome in the audit log. "
	sentenceWords := len(strings.Fields(sentence))

	var b strings.Builder
	sections := []string{
		"",
		"## Understanding the Landscape",
		"## Core Principles",
		"## Implementation Steps",
		"## Common Pitfalls",
		"## Conclusion",
	}
	perSection := wordCount / len(sections)

	for _, heading := range sections {
		if heading != "" {
			b.WriteString(heading + "\n\n")
		}
		for written := 0; written < perSection; written += sentenceWords {
			b.WriteString(sentence)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

type stubResearcher struct {
	result types.ResearchResult
	err    error
	calls  int
}

func (s *stubResearcher) Research(_ context.Context, _ string, _ types.ResearchModel) (types.ResearchResult, error) {
	s.calls++
	if s.err != nil {
		return types.ResearchResult{}, s.err
	}
	return s.result, nil
}

// stubGenerator replays queued drafts: the first queue entry answers
// Draft, later entries answer successive Revise calls.
type stubGenerator struct {
	queue       []string
	draftCalls  int
	reviseCalls int
	titleCalls  int
	lastIssues  []string
	draftErr    error
	titleErr    error
}

func (s *stubGenerator) next() string {
	if len(s.queue) == 0 {
		return ""
	}
	text := s.queue[0]
	if len(s.queue) > 1 {
		s.queue = s.queue[1:]
	}
	return text
}

func (s *stubGenerator) Draft(_ context.Context, _, _, _ string) (generate.Completion, error) {
	s.draftCalls++
	if s.draftErr != nil {
		return generate.Completion{}, s.draftErr
	}
	return generate.Completion{Text: s.next(), TotalTokens: 2000}, nil
}

func (s *stubGenerator) Revise(_ context.Context, _, _, _ string, issues []string) (generate.Completion, error) {
	s.reviseCalls++
	s.lastIssues = issues
	return generate.Completion{Text: s.next(), TotalTokens: 2000}, nil
}

func (s *stubGenerator) Title(_ context.Context, _, _ string) (generate.Completion, error) {
	s.titleCalls++
	if s.titleErr != nil {
		return generate.Completion{}, s.titleErr
	}
	return generate.Completion{Text: "A Generated Title", TotalTokens: 50}, nil
}

func (s *stubGenerator) MetaDescription(_ context.Context, _, _, _ string) (generate.Completion, error) {
	return generate.Completion{Text: "A short description.", TotalTokens: 60}, nil
}

func (s *stubGenerator) SocialPost(_ context.Context, _, _, _ string) (generate.Completion, error) {
	return generate.Completion{Text: "New article out now.", TotalTokens: 40}, nil
}

type stubBlog struct {
	url   string
	err   error
	calls int
	last  publish.BlogPost
}

func (s *stubBlog) PublishBlog(_ context.Context, post publish.BlogPost) (string, error) {
	s.calls++
	s.last = post
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type stubSocial struct {
	id    string
	err   error
	calls int
}

func (s *stubSocial) PublishSocial(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

type fixture struct {
	orch     *Orchestrator
	store    *store.Store
	research *stubResearcher
	gen      *stubGenerator
	blog     *stubBlog
	social   *stubSocial
}

func newFixture(t *testing.T, drafts ...string) *fixture {
	t.Helper()
	st, err := store.New(types.StoreConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store: st,
		research: &stubResearcher{result: types.ResearchResult{
			Summary:    "Zero trust replaces perimeter security.",
			SourceURLs: []string{"https://example.com/a"},
		}},
		gen:    &stubGenerator{queue: drafts},
		blog:   &stubBlog{url: "https://blog.example.com/p/42"},
		social: &stubSocial{id: "urn:li:share:123"},
	}
	f.orch = New(st, f.research, f.gen, quality.NewController(types.QualityConfig{}),
		router.New(types.RouterConfig{}, nil), f.blog, f.social,
		types.PipelineDefaults{
			MaxRevisionCycles: 2,
			EnableWebResearch: true,
			ResearchModel:     types.ResearchSonar,
			BlogStatus:        types.BlogStatusPublish,
			PostToSocial:      true,
		})
	return f
}

func TestStartParksAtReviewGate(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if item.Stage != types.StageAwaitingReview {
		t.Fatalf("Stage = %q, want %q", item.Stage, types.StageAwaitingReview)
	}
	if f.research.calls != 1 {
		t.Errorf("research calls = %d, want 1", f.research.calls)
	}
	if item.ResearchSummary == "" || len(item.SourceURLs) != 1 {
		t.Errorf("research not recorded: %q, %v", item.ResearchSummary, item.SourceURLs)
	}
	if item.Title != "A Generated Title" {
		t.Errorf("Title = %q", item.Title)
	}
	if item.MetaDescription == "" {
		t.Error("MetaDescription not set")
	}
	if item.RevisionCount != 0 {
		t.Errorf("RevisionCount = %d, want 0", item.RevisionCount)
	}
	if item.QualityIncomplete {
		t.Error("QualityIncomplete set on a passing draft")
	}
	if item.CostAccumulated <= 0 {
		t.Errorf("CostAccumulated = %v, want > 0", item.CostAccumulated)
	}
	if f.blog.calls != 0 {
		t.Error("published without approval")
	}

	trail, err := f.orch.AuditTrail(ctx, item.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) < 5 {
		t.Errorf("len(trail) = %d, want creation, transitions, and model calls", len(trail))
	}
}

func TestStartDuplicateTopic(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	first, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	// Equivalent topic: case, spacing, and punctuation differences only.
	_, err = f.orch.Start(ctx, "ZERO  trust architecture!", StartOptions{})
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("second Start error = %v, want DuplicateError", err)
	}
	if dup.Existing.ID != first.ID {
		t.Errorf("Existing.ID = %q, want %q", dup.Existing.ID, first.ID)
	}
	if dup.Existing.Stage != types.StageAwaitingReview {
		t.Errorf("Existing.Stage = %q", dup.Existing.Stage)
	}
}

func TestStartAllowedAfterTerminal(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	first, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.Abort(ctx, first.ID, "ops"); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	second, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start after abort: %v", err)
	}
	if second.ID == first.ID {
		t.Error("second start reused the aborted item")
	}
}

func TestRevisionLoopThenPass(t *testing.T) {
	// First draft fails the word band, the revision passes.
	f := newFixture(t, testArticle(600), testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if item.Stage != types.StageAwaitingReview {
		t.Fatalf("Stage = %q, want awaiting review", item.Stage)
	}
	if f.gen.draftCalls != 1 || f.gen.reviseCalls != 1 {
		t.Errorf("draft/revise calls = %d/%d, want 1/1", f.gen.draftCalls, f.gen.reviseCalls)
	}
	if item.RevisionCount != 1 {
		t.Errorf("RevisionCount = %d, want 1", item.RevisionCount)
	}
	if item.QualityIncomplete {
		t.Error("QualityIncomplete set after a passing revision")
	}
	if len(f.gen.lastIssues) == 0 {
		t.Error("revision prompt received no issues")
	}
}

func TestRevisionBudgetExhausted(t *testing.T) {
	// Every draft fails; the queue's last entry repeats.
	f := newFixture(t, testArticle(600))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if item.Stage != types.StageAwaitingReview {
		t.Fatalf("Stage = %q, want awaiting review despite failing quality", item.Stage)
	}
	if !item.QualityIncomplete {
		t.Error("QualityIncomplete not set")
	}
	if item.RevisionCount != 2 {
		t.Errorf("RevisionCount = %d, want the budget of 2", item.RevisionCount)
	}
	if f.gen.reviseCalls != 2 {
		t.Errorf("reviseCalls = %d, want 2", f.gen.reviseCalls)
	}
	if len(item.Issues) == 0 {
		t.Error("Issues empty; reviewer cannot see what is wrong")
	}
}

func TestApprovePublishes(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	published, err := f.orch.Approve(ctx, item.ID, "reviewer")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if published.Stage != types.StagePublished {
		t.Fatalf("Stage = %q, want published", published.Stage)
	}
	if published.PostURL != "https://blog.example.com/p/42" {
		t.Errorf("PostURL = %q", published.PostURL)
	}
	if published.SocialPostID != "urn:li:share:123" {
		t.Errorf("SocialPostID = %q", published.SocialPostID)
	}
	if f.blog.calls != 1 || f.social.calls != 1 {
		t.Errorf("blog/social calls = %d/%d, want 1/1", f.blog.calls, f.social.calls)
	}

	// The gate only opens once.
	if _, err := f.orch.Approve(ctx, item.ID, "reviewer"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Approve error = %v, want ErrInvalidState", err)
	}
}

func TestApproveUnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Approve(context.Background(), uuid.NewString(), "reviewer")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Approve error = %v, want ErrNotFound", err)
	}
}

func TestRejectFailsItemWithReason(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	rejected, err := f.orch.Reject(ctx, item.ID, "reviewer", "tone is too casual")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Stage != types.StageFailed {
		t.Fatalf("Stage = %q, want failed", rejected.Stage)
	}
	if !strings.Contains(rejected.FailReason, "tone is too casual") {
		t.Errorf("FailReason = %q, want the reviewer reason", rejected.FailReason)
	}
	if f.gen.reviseCalls != 0 || f.blog.calls != 0 {
		t.Errorf("revise/blog calls = %d/%d after rejection, want 0/0",
			f.gen.reviseCalls, f.blog.calls)
	}

	trail, err := f.orch.AuditTrail(ctx, item.ID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	last := trail[len(trail)-1]
	if last.Actor != "reviewer" || !strings.Contains(last.Note, "tone is too casual") {
		t.Errorf("last audit entry = %+v, want the rejection recorded", last)
	}

	// The rejected item is terminal; the topic is free again.
	if _, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{}); err != nil {
		t.Errorf("Start after rejection: %v", err)
	}
	if _, err := f.orch.Reject(ctx, item.ID, "reviewer", "again"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Reject error = %v, want ErrInvalidState", err)
	}
}

func TestStartConcurrentSameTopic(t *testing.T) {
	f := newFixture(t, testArticle(2100))

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.Start(context.Background(), "Zero Trust Architecture", StartOptions{})
		}(i)
	}
	wg.Wait()

	var ok, dups int
	for _, err := range errs {
		var dup *DuplicateError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &dup):
			dups++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dups != 1 {
		t.Errorf("results = %d started, %d duplicates, want exactly one of each", ok, dups)
	}
}

func TestStartOptionsGovernPublish(t *testing.T) {
	// Defaults say publish live and share socially; the run asks for a
	// platform draft and no share. The persisted options must win even
	// though publishing happens later, on the approve path.
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{
		BlogStatus: types.BlogStatusDraft,
		SkipSocial: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	published, err := f.orch.Approve(ctx, item.ID, "reviewer")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if published.Stage != types.StagePublished {
		t.Fatalf("Stage = %q, want published", published.Stage)
	}
	if f.blog.last.Status != types.BlogStatusDraft {
		t.Errorf("blog status = %q, want the start option %q", f.blog.last.Status, types.BlogStatusDraft)
	}
	if f.social.calls != 0 {
		t.Errorf("social calls = %d, want 0 with the share skipped", f.social.calls)
	}
}

func TestResearchFailureFailsItem(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	f.research.err = errors.New("provider is down")
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if item.Stage != types.StageFailed {
		t.Fatalf("Stage = %q, want failed", item.Stage)
	}
	if !strings.Contains(item.FailReason, "research") {
		t.Errorf("FailReason = %q, want research cause", item.FailReason)
	}
	if f.gen.draftCalls != 0 {
		t.Error("drafted despite failed research")
	}
}

func TestSkipResearch(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{SkipResearch: true})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.research.calls != 0 {
		t.Errorf("research calls = %d, want 0", f.research.calls)
	}
	if item.Stage != types.StageAwaitingReview {
		t.Errorf("Stage = %q, want awaiting review", item.Stage)
	}
}

func TestBlogFailureFailsItem(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	f.blog.err = errors.New("bad credentials")
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	failed, err := f.orch.Approve(ctx, item.ID, "reviewer")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if failed.Stage != types.StageFailed {
		t.Fatalf("Stage = %q, want failed", failed.Stage)
	}
	if !strings.Contains(failed.FailReason, "blog publish") {
		t.Errorf("FailReason = %q", failed.FailReason)
	}
	if f.social.calls != 0 {
		t.Error("shared socially despite failed blog publish")
	}
}

func TestAbort(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.Abort(ctx, item.ID, "ops"); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	got, err := f.orch.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != types.StageFailed {
		t.Errorf("Stage = %q, want failed", got.Stage)
	}

	if err := f.orch.Abort(ctx, item.ID, "ops"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Abort error = %v, want ErrInvalidState", err)
	}
}

func TestListPending(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	pending, err := f.orch.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != item.ID {
		t.Errorf("pending = %v, want the parked item", pending)
	}
}

func TestResumeInterruptedItem(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	// Simulate a crash after the drafting commit: the item sits in
	// QualityCheck with its content written and the claim still held.
	now := time.Now().UTC()
	item := &types.ContentItem{
		ID:          uuid.NewString(),
		Topic:       "Zero Trust Architecture",
		Fingerprint: "zero trust architecture",
		Stage:       types.StageQualityCheck,
		Content:     testArticle(2100),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.store.Create(ctx, item); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := f.store.Claim(ctx, item.ID); err != nil || !ok {
		t.Fatalf("Claim = %v, %v", ok, err)
	}

	if err := f.orch.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	got, err := f.orch.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != types.StageAwaitingReview {
		t.Errorf("Stage = %q, want awaiting review after resume", got.Stage)
	}
	if got.Title == "" {
		t.Error("Title not generated on the resumed path")
	}
}

func TestResumeLeavesGateParked(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	item, err := f.orch.Start(ctx, "Zero Trust Architecture", StartOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := f.orch.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	got, err := f.orch.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != types.StageAwaitingReview {
		t.Errorf("Stage = %q, resume must not cross the review gate", got.Stage)
	}
	if f.blog.calls != 0 {
		t.Error("resume published without approval")
	}
}

func TestStartOptionsValidation(t *testing.T) {
	f := newFixture(t, testArticle(2100))
	ctx := context.Background()

	if _, err := f.orch.Start(ctx, "Topic A", StartOptions{MaxRevisionCycles: 5}); err == nil {
		t.Error("accepted out-of-range revision cycles")
	}
	if _, err := f.orch.Start(ctx, "Topic B", StartOptions{ResearchModel: "sonar-ultra"}); err == nil {
		t.Error("accepted unknown research model")
	}
	if _, err := f.orch.Start(ctx, "Topic C", StartOptions{BlogStatus: "scheduled"}); err == nil {
		t.Error("accepted unknown blog status")
	}
}
