// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives content items through the generation stages:
// research, drafting, quality checks, the human review gate, and
// publishing. Every stage boundary is committed to the store before the
// next stage runs, and every transition is recorded in the audit trail.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/content-pipeline/internal/dedupe"
	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/publish"
	"github.com/pdiddy/content-pipeline/internal/quality"
	"github.com/pdiddy/content-pipeline/internal/router"
	"github.com/pdiddy/content-pipeline/internal/store"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

// researchCallCost is the flat per-call estimate charged for one web
// research request. The research API does not report token usage the
// way chat completions do.
const researchCallCost = 0.005

// resumeConcurrency bounds how many interrupted items a restart
// re-advances in parallel.
const resumeConcurrency = 4

const systemActor = "system"

// Researcher gathers background material for a topic.
type Researcher interface {
	Research(ctx context.Context, topic string, model types.ResearchModel) (types.ResearchResult, error)
}

// Generator produces drafts and the shorter editorial texts.
type Generator interface {
	Draft(ctx context.Context, model, topic, research string) (generate.Completion, error)
	Revise(ctx context.Context, model, topic, previous string, issues []string) (generate.Completion, error)
	Title(ctx context.Context, model, content string) (generate.Completion, error)
	MetaDescription(ctx context.Context, model, title, content string) (generate.Completion, error)
	SocialPost(ctx context.Context, model, title, url string) (generate.Completion, error)
}

// BlogPublisher creates the article on the blog platform.
type BlogPublisher interface {
	PublishBlog(ctx context.Context, post publish.BlogPost) (string, error)
}

// SocialPublisher shares the published article.
type SocialPublisher interface {
	PublishSocial(ctx context.Context, text, articleURL string) (string, error)
}

// Orchestrator owns the stage machine. All stage work goes through
// Advance, which holds the item's advancement claim so concurrent
// callers cannot double-run a stage.
type Orchestrator struct {
	store     *store.Store
	checker   *dedupe.Checker
	research  Researcher
	generator Generator
	quality   *quality.Controller
	router    *router.Router
	blog      BlogPublisher
	social    SocialPublisher
	defaults  types.PipelineDefaults

	// Progress receives human-readable stage updates.
	Progress io.Writer
}

// New builds an Orchestrator. research, blog, and social may be nil
// when the corresponding features are disabled by configuration; the
// stage machine fails an item that reaches a stage whose collaborator
// is missing.
func New(st *store.Store, research Researcher, gen Generator, qc *quality.Controller,
	rt *router.Router, blog BlogPublisher, social SocialPublisher,
	defaults types.PipelineDefaults) *Orchestrator {
	return &Orchestrator{
		store:     st,
		checker:   dedupe.NewChecker(st),
		research:  research,
		generator: gen,
		quality:   qc,
		router:    rt,
		blog:      blog,
		social:    social,
		defaults:  defaults,
		Progress:  io.Discard,
	}
}

// Start creates a new content item for the topic and advances it until
// it reaches the review gate or a terminal stage. A topic whose
// fingerprint matches an active item is rejected with DuplicateError.
func (o *Orchestrator) Start(ctx context.Context, topic string, opts StartOptions) (*types.ContentItem, error) {
	opts, err := normalizeOptions(opts, o.defaults)
	if err != nil {
		return nil, err
	}

	ref, err := o.checker.Check(ctx, topic)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return nil, &DuplicateError{Existing: *ref}
	}

	now := time.Now().UTC()
	item := &types.ContentItem{
		ID:          uuid.NewString(),
		Topic:       topic,
		Fingerprint: dedupe.Fingerprint(topic),
		Stage:       types.StageIdea,
		Options:     opts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.store.Create(ctx, item); err != nil {
		// A concurrent start for the same fingerprint can slip past the
		// checker; the store's unique index catches it.
		if errors.Is(err, store.ErrDuplicateFingerprint) {
			if existing, ferr := o.store.FindActiveByFingerprint(ctx, item.Fingerprint); ferr == nil && existing != nil {
				return nil, &DuplicateError{Existing: types.ItemRef{
					ID:    existing.ID,
					Stage: existing.Stage,
					Title: existing.Title,
				}}
			}
		}
		return nil, fmt.Errorf("creating item: %w", err)
	}
	fmt.Fprintf(o.Progress, "Created item %s for topic %q\n", item.ID, topic)

	if err := o.Advance(ctx, item.ID); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, item.ID)
}

// Advance runs the item's stage machine until it parks at the review
// gate or reaches a terminal stage, reading the run options persisted
// on the item. It is safe to call concurrently: only one caller holds
// the advancement claim, the rest return immediately.
func (o *Orchestrator) Advance(ctx context.Context, id string) error {
	claimed, err := o.store.Claim(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		fmt.Fprintf(o.Progress, "Item %s is already being advanced\n", id)
		return nil
	}
	defer o.store.Release(context.WithoutCancel(ctx), id)

	for {
		item, err := o.store.Get(ctx, id)
		if err != nil {
			return err
		}
		// Items created before options were captured carry a zero
		// struct; normalizing fills it from the configured defaults.
		opts, err := normalizeOptions(item.Options, o.defaults)
		if err != nil {
			return err
		}

		switch item.Stage {
		case types.StageIdea:
			err = o.transition(ctx, id, types.StageIdea, types.StageResearching, "")
		case types.StageResearching:
			err = o.runResearch(ctx, item, opts)
		case types.StageDrafting:
			err = o.runDraft(ctx, item)
		case types.StageQualityCheck:
			err = o.runQualityCheck(ctx, item, opts)
		case types.StageAwaitingReview:
			fmt.Fprintf(o.Progress, "Item %s is awaiting review\n", id)
			return nil
		case types.StageApproved:
			err = o.transition(ctx, id, types.StageApproved, types.StagePublishing, "")
		case types.StagePublishing:
			err = o.runPublish(ctx, item, opts)
		case types.StagePublished, types.StageFailed:
			return nil
		default:
			return fmt.Errorf("item %s has unknown stage %q", id, item.Stage)
		}

		if errors.Is(err, store.ErrStageConflict) {
			// Someone else moved the item; this work is superseded.
			fmt.Fprintf(o.Progress, "Item %s changed stage concurrently, stopping\n", id)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (o *Orchestrator) runResearch(ctx context.Context, item *types.ContentItem, opts StartOptions) error {
	if opts.SkipResearch || o.research == nil {
		fmt.Fprintf(o.Progress, "Skipping research for item %s\n", item.ID)
		return o.transition(ctx, item.ID, types.StageResearching, types.StageDrafting, "research skipped")
	}

	fmt.Fprintf(o.Progress, "Researching %q with %s\n", item.Topic, opts.ResearchModel)
	result, err := o.research.Research(ctx, item.Topic, opts.ResearchModel)
	if err != nil {
		return o.fail(ctx, item, fmt.Errorf("research: %w", err))
	}

	item.ResearchSummary = result.Summary
	item.SourceURLs = result.SourceURLs
	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	if err := o.recordModelCall(ctx, item.ID, researchCallCost,
		fmt.Sprintf("web research, %s, %d sources", opts.ResearchModel, len(result.SourceURLs))); err != nil {
		return err
	}
	return o.transition(ctx, item.ID, types.StageResearching, types.StageDrafting, "research complete")
}

func (o *Orchestrator) runDraft(ctx context.Context, item *types.ContentItem) error {
	task := fmt.Sprintf("Write article about %s", item.Topic)
	decision := o.router.Route(ctx, task, 3000)

	var (
		c    generate.Completion
		err  error
		note string
	)
	if len(item.Issues) == 0 || item.Content == "" {
		fmt.Fprintf(o.Progress, "Drafting item %s with %s (%s tier)\n", item.ID, decision.Backend, decision.Tier)
		c, err = o.generator.Draft(ctx, decision.Backend, item.Topic, item.ResearchSummary)
		note = fmt.Sprintf("draft generation, %s", decision.Backend)
	} else {
		fmt.Fprintf(o.Progress, "Revising item %s (cycle %d) with %s\n", item.ID, item.RevisionCount, decision.Backend)
		c, err = o.generator.Revise(ctx, decision.Backend, item.Topic, item.Content, item.Issues)
		note = fmt.Sprintf("revision %d, %s", item.RevisionCount, decision.Backend)
	}
	if err != nil {
		return o.fail(ctx, item, fmt.Errorf("drafting: %w", err))
	}

	item.Content = c.Text
	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	cost := o.router.EstimateCost(decision.Tier, c.TotalTokens)
	if err := o.recordModelCall(ctx, item.ID, cost, note); err != nil {
		return err
	}
	return o.transition(ctx, item.ID, types.StageDrafting, types.StageQualityCheck, "")
}

func (o *Orchestrator) runQualityCheck(ctx context.Context, item *types.ContentItem, opts StartOptions) error {
	metrics, passed, issues := o.quality.Evaluate(item.Content)
	item.Metrics = &metrics
	item.Issues = issues

	if !passed && item.RevisionCount < opts.MaxRevisionCycles {
		item.RevisionCount++
		if err := o.store.Update(ctx, item); err != nil {
			return err
		}
		fmt.Fprintf(o.Progress, "Quality check failed for item %s (%d issues), revising\n", item.ID, len(issues))
		return o.transition(ctx, item.ID, types.StageQualityCheck, types.StageDrafting,
			fmt.Sprintf("quality check failed, revision %d of %d", item.RevisionCount, opts.MaxRevisionCycles))
	}

	note := "quality check passed"
	if !passed {
		// Revision budget exhausted: forward to review flagged rather
		// than discarding the spend on a near-miss draft.
		item.QualityIncomplete = true
		note = fmt.Sprintf("quality incomplete after %d revisions", item.RevisionCount)
		fmt.Fprintf(o.Progress, "Item %s still has %d issues after %d revisions, forwarding flagged\n",
			item.ID, len(issues), item.RevisionCount)
	}
	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	if err := o.finalize(ctx, item); err != nil {
		return err
	}
	return o.transition(ctx, item.ID, types.StageQualityCheck, types.StageAwaitingReview, note)
}

// finalize generates the title and meta description from the settled
// content. The title check makes this idempotent across crashes.
func (o *Orchestrator) finalize(ctx context.Context, item *types.ContentItem) error {
	if item.Title != "" {
		return nil
	}

	titleDecision := o.router.Route(ctx, "Generate a title for this article", 200)
	c, err := o.generator.Title(ctx, titleDecision.Backend, item.Content)
	if err != nil {
		return o.fail(ctx, item, fmt.Errorf("title generation: %w", err))
	}
	item.Title = c.Text
	titleCost := o.router.EstimateCost(titleDecision.Tier, c.TotalTokens)

	metaDecision := o.router.Route(ctx, "Write the meta description for this article", 200)
	mc, err := o.generator.MetaDescription(ctx, metaDecision.Backend, item.Title, item.Content)
	if err != nil {
		return o.fail(ctx, item, fmt.Errorf("meta description: %w", err))
	}
	item.MetaDescription = mc.Text
	metaCost := o.router.EstimateCost(metaDecision.Tier, mc.TotalTokens)

	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	if err := o.recordModelCall(ctx, item.ID, titleCost,
		fmt.Sprintf("title generation, %s", titleDecision.Backend)); err != nil {
		return err
	}
	return o.recordModelCall(ctx, item.ID, metaCost,
		fmt.Sprintf("meta description, %s", metaDecision.Backend))
}

func (o *Orchestrator) runPublish(ctx context.Context, item *types.ContentItem, opts StartOptions) error {
	if o.blog == nil {
		return o.fail(ctx, item, errors.New("publishing: no blog client configured"))
	}

	// A crash between the blog call and the commit leaves PostURL set;
	// skip the call rather than creating a second post.
	if item.PostURL == "" {
		fmt.Fprintf(o.Progress, "Publishing item %s to the blog (%s)\n", item.ID, opts.BlogStatus)
		url, err := o.blog.PublishBlog(ctx, publish.BlogPost{
			Title:           item.Title,
			Markdown:        item.Content,
			MetaDescription: item.MetaDescription,
			Status:          opts.BlogStatus,
		})
		if err != nil {
			return o.fail(ctx, item, fmt.Errorf("blog publish: %w", err))
		}
		item.PostURL = url
		if err := o.store.Update(ctx, item); err != nil {
			return err
		}
	}

	if !opts.SkipSocial && o.social != nil && item.SocialPostID == "" {
		decision := o.router.Route(ctx, "Write the social post announcing the article", 150)
		c, err := o.generator.SocialPost(ctx, decision.Backend, item.Title, item.PostURL)
		if err != nil {
			return o.fail(ctx, item, fmt.Errorf("social post generation: %w", err))
		}
		postID, err := o.social.PublishSocial(ctx, c.Text, item.PostURL)
		if err != nil {
			return o.fail(ctx, item, fmt.Errorf("social publish: %w", err))
		}
		item.SocialPostID = postID
		if err := o.store.Update(ctx, item); err != nil {
			return err
		}
		cost := o.router.EstimateCost(decision.Tier, c.TotalTokens)
		if err := o.recordModelCall(ctx, item.ID, cost,
			fmt.Sprintf("social post, %s", decision.Backend)); err != nil {
			return err
		}
		fmt.Fprintf(o.Progress, "Shared item %s as %s\n", item.ID, postID)
	}

	return o.transition(ctx, item.ID, types.StagePublishing, types.StagePublished, item.PostURL)
}

// Approve moves an item past the review gate and publishes it. This is
// the only path to Published.
func (o *Orchestrator) Approve(ctx context.Context, id, actor string) (*types.ContentItem, error) {
	err := o.store.Transition(ctx, id, types.StageAwaitingReview, types.StageApproved,
		types.AuditEntry{Actor: actor, Note: "approved"})
	if err != nil {
		return nil, o.mapGateError(ctx, id, err, "approve")
	}
	fmt.Fprintf(o.Progress, "Item %s approved by %s\n", id, actor)

	if err := o.Advance(ctx, id); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, id)
}

// Reject closes a reviewed item as Failed with the reviewer's reason.
// The item is kept for the record; a fresh start for the same topic is
// allowed once the rejection lands.
func (o *Orchestrator) Reject(ctx context.Context, id, actor, reason string) (*types.ContentItem, error) {
	item, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Stage != types.StageAwaitingReview {
		return nil, invalidState(id, item.Stage, "reject")
	}

	item.FailReason = fmt.Sprintf("rejected: %s", reason)
	if err := o.store.Update(ctx, item); err != nil {
		return nil, err
	}

	err = o.store.Transition(ctx, id, types.StageAwaitingReview, types.StageFailed,
		types.AuditEntry{Actor: actor, Note: fmt.Sprintf("rejected: %s", reason)})
	if err != nil {
		return nil, o.mapGateError(ctx, id, err, "reject")
	}
	fmt.Fprintf(o.Progress, "Item %s rejected by %s\n", id, actor)

	return o.store.Get(ctx, id)
}

// Abort moves a non-terminal item to Failed.
func (o *Orchestrator) Abort(ctx context.Context, id, actor string) error {
	item, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Stage.IsTerminal() {
		return invalidState(id, item.Stage, "abort")
	}

	item.FailReason = "aborted by operator"
	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	err = o.store.Transition(ctx, id, item.Stage, types.StageFailed,
		types.AuditEntry{Actor: actor, Note: "aborted"})
	if err != nil {
		return o.mapGateError(ctx, id, err, "abort")
	}
	fmt.Fprintf(o.Progress, "Item %s aborted by %s\n", id, actor)
	return nil
}

// ListPending returns the items parked at the review gate.
func (o *Orchestrator) ListPending(ctx context.Context) ([]*types.ContentItem, error) {
	return o.store.ListByStage(ctx, types.StageAwaitingReview)
}

// Get returns one item.
func (o *Orchestrator) Get(ctx context.Context, id string) (*types.ContentItem, error) {
	return o.store.Get(ctx, id)
}

// AuditTrail returns the item's audit records.
func (o *Orchestrator) AuditTrail(ctx context.Context, id string) ([]types.AuditEntry, error) {
	return o.store.AuditTrail(ctx, id)
}

// Resume re-advances items interrupted mid-stage by a previous process,
// a bounded number at a time. Items at the review gate stay parked.
func (o *Orchestrator) Resume(ctx context.Context) error {
	if err := o.store.ReleaseStale(ctx); err != nil {
		return err
	}
	items, err := o.store.ListResumable(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	fmt.Fprintf(o.Progress, "Resuming %d interrupted item(s)\n", len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resumeConcurrency)
	for _, item := range items {
		id := item.ID
		g.Go(func() error {
			return o.Advance(gctx, id)
		})
	}
	return g.Wait()
}

// fail commits the item to Failed with the cause. The returned error is
// nil because the failure was handled: the stage loop reads the new
// stage and stops.
func (o *Orchestrator) fail(ctx context.Context, item *types.ContentItem, cause error) error {
	fmt.Fprintf(o.Progress, "Item %s failed: %v\n", item.ID, cause)
	item.FailReason = cause.Error()
	if err := o.store.Update(ctx, item); err != nil {
		return err
	}
	return o.store.Transition(ctx, item.ID, item.Stage, types.StageFailed,
		types.AuditEntry{Actor: systemActor, Note: cause.Error()})
}

func (o *Orchestrator) transition(ctx context.Context, id string, from, to types.Stage, note string) error {
	return o.store.Transition(ctx, id, from, to,
		types.AuditEntry{Actor: systemActor, Note: note})
}

func (o *Orchestrator) recordModelCall(ctx context.Context, id string, cost float64, note string) error {
	return o.store.AppendAudit(ctx, id, types.AuditEntry{
		Actor:     systemActor,
		CostDelta: cost,
		Note:      note,
	})
}

// mapGateError turns a stage conflict on a reviewer action into
// ErrInvalidState with the item's actual stage, which is more useful to
// an operator than "conflict".
func (o *Orchestrator) mapGateError(ctx context.Context, id string, err error, action string) error {
	if !errors.Is(err, store.ErrStageConflict) {
		return err
	}
	item, getErr := o.store.Get(ctx, id)
	if getErr != nil {
		return getErr
	}
	return invalidState(id, item.Stage, action)
}
