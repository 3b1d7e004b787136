// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "content-pipeline/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Empty uses the provider default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StoreConfig holds settings for the state store.
type StoreConfig struct {
	// DataDir is the base directory for the pipeline database (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ResearchModel selects the research provider model variant.
type ResearchModel string

const (
	ResearchSonar          ResearchModel = "sonar"
	ResearchSonarPro       ResearchModel = "sonar-pro"
	ResearchSonarReasoning ResearchModel = "sonar-reasoning"
)

// Valid reports whether m is a recognized research model variant.
func (m ResearchModel) Valid() bool {
	switch m {
	case ResearchSonar, ResearchSonarPro, ResearchSonarReasoning:
		return true
	}
	return false
}

// ResearchConfig holds settings for the research stage.
type ResearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the research provider authentication key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// QualityConfig holds the tunable rubric thresholds for quality checks.
// Thresholds are configuration rather than constants: deployments tune
// the word band and readability band per publication.
type QualityConfig struct {
	// MinWords is the lower bound of the acceptable word band (default 1500).
	MinWords int `json:"min_words" yaml:"min_words"`

	// MaxWords is the upper bound of the acceptable word band (default 2500).
	MaxWords int `json:"max_words" yaml:"max_words"`

	// MinFleschScore is the lowest acceptable Flesch Reading Ease score
	// (default 30, "College level" or easier).
	MinFleschScore float64 `json:"min_flesch_score" yaml:"min_flesch_score"`

	// MaxFleschScore is the highest acceptable score (default 80; higher
	// reads as too simplistic for professional content).
	MaxFleschScore float64 `json:"max_flesch_score" yaml:"max_flesch_score"`

	// MinCompleteness is the minimum completeness score out of 10 (default 7).
	MinCompleteness int `json:"min_completeness" yaml:"min_completeness"`
}

// RouterConfig holds settings for the model router.
type RouterConfig struct {
	// HighBackend is the backend id used for high-complexity tasks.
	HighBackend string `json:"high_backend" yaml:"high_backend"`

	// FastBackend is the backend id used for medium and low tiers.
	FastBackend string `json:"fast_backend" yaml:"fast_backend"`

	// ClassifierModel is the lightweight model used when keyword and
	// heuristic classification are both ambiguous.
	ClassifierModel string `json:"classifier_model" yaml:"classifier_model"`
}

// BlogStatus selects how the blog platform treats a published post.
type BlogStatus string

const (
	BlogStatusDraft   BlogStatus = "draft"
	BlogStatusPublish BlogStatus = "publish"
)

// Valid reports whether s is a recognized blog post status.
func (s BlogStatus) Valid() bool {
	return s == BlogStatusDraft || s == BlogStatusPublish
}

// PublishConfig holds settings for the publishing targets.
type PublishConfig struct {
	HTTPConfig `yaml:",inline"`

	// BlogBaseURL is the WordPress site REST root (e.g. "https://example.com").
	BlogBaseURL string `json:"blog_base_url" yaml:"blog_base_url"`

	// BlogUser is the WordPress application-password user.
	BlogUser string `json:"blog_user" yaml:"blog_user"`

	// BlogAppPassword is the WordPress application password.
	BlogAppPassword string `json:"blog_app_password,omitempty" yaml:"blog_app_password,omitempty"`

	// SocialAccessToken is the LinkedIn access token.
	SocialAccessToken string `json:"social_access_token,omitempty" yaml:"social_access_token,omitempty"`

	// SocialAuthorURN is the LinkedIn author URN the post is attributed to.
	SocialAuthorURN string `json:"social_author_urn,omitempty" yaml:"social_author_urn,omitempty"`

	// MaxRetries is the number of retry attempts for failed publish calls.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineDefaults holds default start options applied when a request
// leaves them unset.
type PipelineDefaults struct {
	// MaxRevisionCycles bounds the quality revision loop (1-3, default 2).
	MaxRevisionCycles int `json:"max_revision_cycles" yaml:"max_revision_cycles"`

	// EnableWebResearch controls whether the research stage calls the
	// research provider or drafts from the topic alone.
	EnableWebResearch bool `json:"enable_web_research" yaml:"enable_web_research"`

	// ResearchModel is the default research model variant.
	ResearchModel ResearchModel `json:"research_model" yaml:"research_model"`

	// BlogStatus is the default WordPress post status.
	BlogStatus BlogStatus `json:"blog_status" yaml:"blog_status"`

	// PostToSocial controls whether a social share is posted after the
	// blog publish succeeds.
	PostToSocial bool `json:"post_to_social" yaml:"post_to_social"`
}

// StartOptions tune one pipeline run. Zero values fall back to the
// configured defaults. The normalized options are persisted on the
// item at creation so advancement after a restart or an approval
// honors what the caller asked for, not whatever the defaults say by
// then.
type StartOptions struct {
	// MaxRevisionCycles bounds the quality-check revision loop (1-3).
	MaxRevisionCycles int `json:"max_revision_cycles,omitempty" yaml:"max_revision_cycles,omitempty"`

	// SkipResearch drafts directly from the topic without the web
	// research stage.
	SkipResearch bool `json:"skip_research,omitempty" yaml:"skip_research,omitempty"`

	// ResearchModel selects the research model variant.
	ResearchModel ResearchModel `json:"research_model,omitempty" yaml:"research_model,omitempty"`

	// BlogStatus selects whether the blog post goes live or lands as a
	// platform draft.
	BlogStatus BlogStatus `json:"blog_status,omitempty" yaml:"blog_status,omitempty"`

	// SkipSocial suppresses the social share after publishing.
	SkipSocial bool `json:"skip_social,omitempty" yaml:"skip_social,omitempty"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Store      StoreConfig      `json:"store" yaml:"store"`
	Research   ResearchConfig   `json:"research" yaml:"research"`
	Generation AIConfig         `json:"generation" yaml:"generation"`
	Quality    QualityConfig    `json:"quality" yaml:"quality"`
	Router     RouterConfig     `json:"router" yaml:"router"`
	Publish    PublishConfig    `json:"publish" yaml:"publish"`
	Defaults   PipelineDefaults `json:"defaults" yaml:"defaults"`
}
