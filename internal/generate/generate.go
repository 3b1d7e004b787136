// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns topics and research into drafts, titles, meta
// descriptions, and social posts by prompting chat completion models.
package generate

import (
	"context"
	"fmt"
	"strings"
)

const (
	maxTitleLength = 120
	maxMetaLength  = 155
)

// Generator wraps a Completer with the pipeline's prompt vocabulary.
// The model for each call is chosen by the caller, which lets the
// router send cheap tasks to cheap models.
type Generator struct {
	completer       Completer
	classifierModel string
	minWords        int
	maxWords        int
}

// NewGenerator builds a Generator. classifierModel is the model used
// for tier classification when keyword and heuristic passes are not
// confident.
func NewGenerator(completer Completer, classifierModel string, minWords, maxWords int) *Generator {
	if minWords <= 0 {
		minWords = 1500
	}
	if maxWords <= minWords {
		maxWords = 2500
	}
	return &Generator{
		completer:       completer,
		classifierModel: classifierModel,
		minWords:        minWords,
		maxWords:        maxWords,
	}
}

// Draft writes a first draft of an article about the topic, grounded
// in the research summary when one is available.
func (g *Generator) Draft(ctx context.Context, model, topic, research string) (Completion, error) {
	c, err := g.completer.Complete(ctx, model, writerSystem, draftPrompt(topic, research, g.minWords, g.maxWords))
	if err != nil {
		return Completion{}, fmt.Errorf("drafting %q: %w", topic, err)
	}
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return Completion{}, fmt.Errorf("drafting %q: model returned empty draft", topic)
	}
	return c, nil
}

// Revise regenerates the draft with the quality issues folded into the
// prompt as explicit instructions.
func (g *Generator) Revise(ctx context.Context, model, topic, previous string, issues []string) (Completion, error) {
	c, err := g.completer.Complete(ctx, model, writerSystem, revisionPrompt(topic, previous, issues, g.minWords, g.maxWords))
	if err != nil {
		return Completion{}, fmt.Errorf("revising %q: %w", topic, err)
	}
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return Completion{}, fmt.Errorf("revising %q: model returned empty draft", topic)
	}
	return c, nil
}

// Title generates a headline from the finished article content. It is
// called once, after the quality loop settles, so the title always
// reflects what the draft actually became.
func (g *Generator) Title(ctx context.Context, model, content string) (Completion, error) {
	c, err := g.completer.Complete(ctx, model, editorSystem, titlePrompt(content))
	if err != nil {
		return Completion{}, fmt.Errorf("generating title: %w", err)
	}
	c.Text = sanitizeLine(c.Text, maxTitleLength)
	if c.Text == "" {
		return Completion{}, fmt.Errorf("generating title: model returned empty title")
	}
	return c, nil
}

// MetaDescription generates the short description used by the blog
// platform for search snippets.
func (g *Generator) MetaDescription(ctx context.Context, model, title, content string) (Completion, error) {
	c, err := g.completer.Complete(ctx, model, editorSystem, metaDescriptionPrompt(title, content))
	if err != nil {
		return Completion{}, fmt.Errorf("generating meta description: %w", err)
	}
	c.Text = sanitizeLine(c.Text, maxMetaLength)
	return c, nil
}

// SocialPost generates the announcement text posted after publishing.
func (g *Generator) SocialPost(ctx context.Context, model, title, url string) (Completion, error) {
	c, err := g.completer.Complete(ctx, model, editorSystem, socialPostPrompt(title, url))
	if err != nil {
		return Completion{}, fmt.Errorf("generating social post: %w", err)
	}
	c.Text = strings.TrimSpace(c.Text)
	return c, nil
}

// ClassifyTier asks the classifier model to grade a task's complexity.
// It satisfies the router's Classifier interface.
func (g *Generator) ClassifyTier(ctx context.Context, task string) (string, error) {
	c, err := g.completer.Complete(ctx, g.classifierModel, classifierSystem, classifierPrompt(task))
	if err != nil {
		return "", fmt.Errorf("classifying task: %w", err)
	}
	word := strings.ToUpper(strings.TrimSpace(c.Text))
	// Models sometimes answer in a sentence; take the first recognized word.
	for _, tier := range []string{"HIGH", "MEDIUM", "LOW"} {
		if strings.Contains(word, tier) {
			return tier, nil
		}
	}
	return "", fmt.Errorf("classifying task: unrecognized answer %q", c.Text)
}

// sanitizeLine reduces a model answer to a single plain line: no
// surrounding quotes, no Markdown heading markers, no label prefix,
// truncated at max runes.
func sanitizeLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimLeft(s, "# ")
	for _, prefix := range []string{"Title:", "Headline:", "Description:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > max {
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}
