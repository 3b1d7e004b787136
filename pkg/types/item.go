// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data model and configuration structs
// used across the content pipeline stages.
package types

import "time"

// Stage is a named position in a content item's lifecycle state machine.
type Stage string

const (
	StageIdea           Stage = "idea"
	StageResearching    Stage = "researching"
	StageDrafting       Stage = "drafting"
	StageQualityCheck   Stage = "quality_check"
	StageAwaitingReview Stage = "awaiting_review"
	StageApproved       Stage = "approved"
	StagePublishing     Stage = "publishing"
	StagePublished      Stage = "published"
	StageFailed         Stage = "failed"
)

// IsTerminal reports whether the stage ends the item's lifecycle.
// Terminal items are immutable and do not block new pipelines for the
// same topic fingerprint.
func (s Stage) IsTerminal() bool {
	return s == StagePublished || s == StageFailed
}

// Valid reports whether s is a recognized stage name.
func (s Stage) Valid() bool {
	switch s {
	case StageIdea, StageResearching, StageDrafting, StageQualityCheck,
		StageAwaitingReview, StageApproved, StagePublishing,
		StagePublished, StageFailed:
		return true
	}
	return false
}

// QualityMetrics is the snapshot computed on every quality-check pass.
// Each pass overwrites the previous snapshot on the item; the audit
// trail keeps the history.
type QualityMetrics struct {
	// WordCount is the number of whitespace-separated words in the content.
	WordCount int `json:"word_count" yaml:"word_count"`

	// ReadingTimeMinutes estimates reading time at 200 words per minute.
	ReadingTimeMinutes int `json:"reading_time_minutes" yaml:"reading_time_minutes"`

	// FleschScore is the Flesch Reading Ease score, clamped to [0, 100].
	FleschScore float64 `json:"flesch_score" yaml:"flesch_score"`

	// GradeLevel is the reading level derived from the Flesch score
	// (e.g. "8th-9th grade", "College level").
	GradeLevel string `json:"grade_level" yaml:"grade_level"`

	// CompletenessScore rates rubric coverage on a 0-10 scale.
	CompletenessScore int `json:"completeness_score" yaml:"completeness_score"`

	// SentenceCount is the number of sentences detected in the content.
	SentenceCount int `json:"sentence_count" yaml:"sentence_count"`
}

// AuditEntry is one record in an item's append-only audit trail. Entries
// are written for every stage transition and every model call, and are
// never mutated once persisted.
type AuditEntry struct {
	// At is the UTC timestamp of the transition.
	At time.Time `json:"at" yaml:"at"`

	// From is the stage the item left. Empty for the creation record.
	From Stage `json:"from" yaml:"from"`

	// To is the stage the item entered.
	To Stage `json:"to" yaml:"to"`

	// Actor identifies who or what drove the transition: a model
	// identifier, "system", or "reviewer".
	Actor string `json:"actor" yaml:"actor"`

	// CostDelta is the estimated cost in USD of model calls made
	// during this transition.
	CostDelta float64 `json:"cost_delta" yaml:"cost_delta"`

	// Note carries human-readable context (e.g. a rejection reason or
	// the quality issues that triggered a revision).
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// ContentItem is the unit of work driven through the pipeline.
//
// Title and Content are independent fields: content is never derived
// from the title, and the title is derived from the final content
// exactly once, after the quality loop exits.
type ContentItem struct {
	// ID is the stable identifier generated at creation.
	ID string `json:"id" yaml:"id"`

	// Topic is the raw topic string the pipeline was started with.
	Topic string `json:"topic" yaml:"topic"`

	// Fingerprint is the normalized topic representation used for
	// duplicate detection. Unique among non-terminal items.
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Stage is the item's current position in the state machine.
	Stage Stage `json:"stage" yaml:"stage"`

	// Title is the article headline. Set once after the quality loop.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Content is the article body in Markdown.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// MetaDescription is a short summary used as the blog excerpt.
	MetaDescription string `json:"meta_description,omitempty" yaml:"meta_description,omitempty"`

	// ResearchSummary is the persisted research context so a restart
	// resumes drafting without repeating the research call.
	ResearchSummary string `json:"research_summary,omitempty" yaml:"research_summary,omitempty"`

	// SourceURLs lists the research sources behind the summary.
	SourceURLs []string `json:"source_urls,omitempty" yaml:"source_urls,omitempty"`

	// RevisionCount is incremented once per failed quality check,
	// bounded by the configured maximum revision cycles.
	RevisionCount int `json:"revision_count" yaml:"revision_count"`

	// Issues holds the targeted issue list from the last failed
	// quality check, injected as revision guidance on the next draft.
	Issues []string `json:"issues,omitempty" yaml:"issues,omitempty"`

	// QualityIncomplete flags items that reached the review gate with
	// the revision budget exhausted, so the reviewer is warned.
	QualityIncomplete bool `json:"quality_incomplete" yaml:"quality_incomplete"`

	// Metrics is the latest quality snapshot. Nil before the first check.
	Metrics *QualityMetrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// CostAccumulated is the running sum of estimated model-call cost
	// in USD across the item's lifetime.
	CostAccumulated float64 `json:"cost_accumulated" yaml:"cost_accumulated"`

	// PostURL is the blog URL once the item has been published.
	PostURL string `json:"post_url,omitempty" yaml:"post_url,omitempty"`

	// SocialPostID is the social platform post id, if shared.
	SocialPostID string `json:"social_post_id,omitempty" yaml:"social_post_id,omitempty"`

	// FailReason records why a Failed item failed.
	FailReason string `json:"fail_reason,omitempty" yaml:"fail_reason,omitempty"`

	// Options are the normalized per-run settings captured at start.
	Options StartOptions `json:"options" yaml:"options"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ResearchResult is the output of the research provider for one topic.
type ResearchResult struct {
	// Summary is the synthesized research text. Never empty on success.
	Summary string `json:"summary" yaml:"summary"`

	// SourceURLs lists the URLs the summary draws on.
	SourceURLs []string `json:"source_urls" yaml:"source_urls"`
}

// ItemRef is a lightweight reference to an existing item, returned when
// a duplicate pipeline start is rejected.
type ItemRef struct {
	ID    string `json:"id" yaml:"id"`
	Stage Stage  `json:"stage" yaml:"stage"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}
