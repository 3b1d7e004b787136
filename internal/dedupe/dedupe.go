// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe normalizes topics into fingerprints and detects
// in-flight pipelines for the same topic.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// Fingerprint normalizes a topic string into its duplicate-detection
// form: lowercase, trimmed, punctuation stripped, runs of whitespace
// collapsed to a single space. Equality is exact on the result; there
// is no fuzzy or semantic matching.
func Fingerprint(topic string) string {
	var b strings.Builder
	b.Grow(len(topic))

	for _, r := range strings.ToLower(topic) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation and symbols are dropped.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Lookup is the store surface the checker needs: find the one
// non-terminal item carrying a fingerprint, if any.
type Lookup interface {
	FindActiveByFingerprint(ctx context.Context, fingerprint string) (*types.ContentItem, error)
}

// Checker answers whether a topic may start a new pipeline.
type Checker struct {
	store Lookup
}

// NewChecker returns a Checker backed by the given store.
func NewChecker(store Lookup) *Checker {
	return &Checker{store: store}
}

// Check returns a reference to the existing non-terminal item for the
// topic's fingerprint, or nil if the topic is unique and a new item may
// be created. Published and Failed items never block a new start.
func (c *Checker) Check(ctx context.Context, topic string) (*types.ItemRef, error) {
	fp := Fingerprint(topic)
	if fp == "" {
		return nil, fmt.Errorf("topic %q normalizes to an empty fingerprint", topic)
	}

	existing, err := c.store.FindActiveByFingerprint(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("fingerprint lookup: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	return &types.ItemRef{
		ID:    existing.ID,
		Stage: existing.Stage,
		Title: existing.Title,
	}, nil
}
