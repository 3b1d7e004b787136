// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/content-pipeline/internal/generate"
	"github.com/pdiddy/content-pipeline/internal/pipeline"
	"github.com/pdiddy/content-pipeline/internal/publish"
	"github.com/pdiddy/content-pipeline/internal/quality"
	"github.com/pdiddy/content-pipeline/internal/research"
	"github.com/pdiddy/content-pipeline/internal/router"
	"github.com/pdiddy/content-pipeline/internal/secrets"
	"github.com/pdiddy/content-pipeline/internal/store"
	"github.com/pdiddy/content-pipeline/pkg/types"
)

const defaultUserAgent = "content-pipeline/0.1"

func loadPipelineConfig() types.PipelineConfig {
	viper.SetDefault("store.data_dir", "data")
	viper.SetDefault("research.timeout", 120*time.Second)
	viper.SetDefault("generation.model", "gpt-4o")
	viper.SetDefault("quality.min_words", 1500)
	viper.SetDefault("quality.max_words", 2500)
	viper.SetDefault("quality.min_flesch_score", 30.0)
	viper.SetDefault("quality.max_flesch_score", 80.0)
	viper.SetDefault("quality.min_completeness", 7)
	viper.SetDefault("router.high_backend", "gpt-4o")
	viper.SetDefault("router.fast_backend", "gpt-4o-mini")
	viper.SetDefault("router.classifier_model", "gpt-4o-mini")
	viper.SetDefault("publish.timeout", 60*time.Second)
	viper.SetDefault("defaults.max_revision_cycles", 2)
	viper.SetDefault("defaults.enable_web_research", true)
	viper.SetDefault("defaults.research_model", string(types.ResearchSonar))
	viper.SetDefault("defaults.blog_status", string(types.BlogStatusDraft))
	viper.SetDefault("defaults.post_to_social", false)

	return types.PipelineConfig{
		Store: types.StoreConfig{
			DataDir: viper.GetString("store.data_dir"),
		},
		Research: types.ResearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("research.timeout"),
				UserAgent: defaultUserAgent,
			},
			APIKey:     secretValue("perplexity-api-key", "PERPLEXITY_API_KEY"),
			BaseURL:    viper.GetString("research.base_url"),
			MaxRetries: viper.GetInt("research.max_retries"),
		},
		Generation: types.AIConfig{
			Model:      viper.GetString("generation.model"),
			APIKey:     secretValue("openai-api-key", "OPENAI_API_KEY"),
			BaseURL:    viper.GetString("generation.base_url"),
			MaxRetries: viper.GetInt("generation.max_retries"),
		},
		Quality: types.QualityConfig{
			MinWords:        viper.GetInt("quality.min_words"),
			MaxWords:        viper.GetInt("quality.max_words"),
			MinFleschScore:  viper.GetFloat64("quality.min_flesch_score"),
			MaxFleschScore:  viper.GetFloat64("quality.max_flesch_score"),
			MinCompleteness: viper.GetInt("quality.min_completeness"),
		},
		Router: types.RouterConfig{
			HighBackend:     viper.GetString("router.high_backend"),
			FastBackend:     viper.GetString("router.fast_backend"),
			ClassifierModel: viper.GetString("router.classifier_model"),
		},
		Publish: types.PublishConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("publish.timeout"),
				UserAgent: defaultUserAgent,
			},
			BlogBaseURL:       viper.GetString("publish.blog_base_url"),
			BlogUser:          viper.GetString("publish.blog_user"),
			BlogAppPassword:   secretValue("wordpress-app-password", "WORDPRESS_APP_PASSWORD"),
			SocialAccessToken: secretValue("linkedin-access-token", "LINKEDIN_ACCESS_TOKEN"),
			SocialAuthorURN:   viper.GetString("publish.social_author_urn"),
			MaxRetries:        viper.GetInt("publish.max_retries"),
		},
		Defaults: types.PipelineDefaults{
			MaxRevisionCycles: viper.GetInt("defaults.max_revision_cycles"),
			EnableWebResearch: viper.GetBool("defaults.enable_web_research"),
			ResearchModel:     types.ResearchModel(viper.GetString("defaults.research_model")),
			BlogStatus:        types.BlogStatus(viper.GetString("defaults.blog_status")),
			PostToSocial:      viper.GetBool("defaults.post_to_social"),
		},
	}
}

func secretValue(key, envKey string) string {
	return secrets.Get(loadedSecrets, key, envKey)
}

// buildOrchestrator wires every configured component. Collaborators
// whose credentials are absent stay nil; the pipeline fails an item
// only when it actually reaches the stage that needs them.
func buildOrchestrator(progress io.Writer) (*pipeline.Orchestrator, func() error, error) {
	cfg := loadPipelineConfig()

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	if cfg.Generation.APIKey == "" {
		st.Close()
		return nil, nil, fmt.Errorf("no OpenAI API key: add .secrets/openai-api-key or set OPENAI_API_KEY")
	}
	completer, err := generate.NewOpenAIClient(cfg.Generation)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	gen := generate.NewGenerator(completer, cfg.Router.ClassifierModel,
		cfg.Quality.MinWords, cfg.Quality.MaxWords)

	var researcher pipeline.Researcher
	if cfg.Research.APIKey != "" {
		researcher = research.New(cfg.Research)
	}

	var blog pipeline.BlogPublisher
	if cfg.Publish.BlogBaseURL != "" {
		wp, err := publish.NewWordPressClient(cfg.Publish)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		blog = wp
	}

	var social pipeline.SocialPublisher
	if cfg.Publish.SocialAccessToken != "" && cfg.Publish.SocialAuthorURN != "" {
		li, err := publish.NewLinkedInClient(cfg.Publish)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		social = li
	}

	orch := pipeline.New(st, researcher, gen, quality.NewController(cfg.Quality),
		router.New(cfg.Router, gen), blog, social, cfg.Defaults)
	orch.Progress = progress
	return orch, st.Close, nil
}
