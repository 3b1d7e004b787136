// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"context"
	"testing"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{"lowercases", "Zero Trust Architecture", "zero trust architecture"},
		{"trims and collapses whitespace", "  zero   trust\tarchitecture \n", "zero trust architecture"},
		{"strips punctuation", "Zero-Trust: Architecture, Explained!", "zerotrust architecture explained"},
		{"keeps digits", "Top 10 CVEs of 2026", "top 10 cves of 2026"},
		{"empty input", "", ""},
		{"punctuation only", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.topic); got != tt.want {
				t.Errorf("Fingerprint(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}

func TestFingerprintEquivalentTopics(t *testing.T) {
	// Topics that differ only in case, whitespace, and punctuation must
	// collide so the second pipeline start is rejected.
	a := Fingerprint("Zero Trust Architecture")
	b := Fingerprint("  zero trust architecture?  ")
	if a != b {
		t.Errorf("fingerprints differ: %q vs %q", a, b)
	}
}

// fakeLookup returns a canned item for one fingerprint.
type fakeLookup struct {
	fingerprint string
	item        *types.ContentItem
}

func (f *fakeLookup) FindActiveByFingerprint(_ context.Context, fp string) (*types.ContentItem, error) {
	if f.item != nil && fp == f.fingerprint {
		return f.item, nil
	}
	return nil, nil
}

func TestCheckReturnsExistingRef(t *testing.T) {
	existing := &types.ContentItem{
		ID:          "item-1",
		Fingerprint: "zero trust architecture",
		Stage:       types.StageDrafting,
		Title:       "",
	}
	checker := NewChecker(&fakeLookup{fingerprint: existing.Fingerprint, item: existing})

	ref, err := checker.Check(context.Background(), "Zero Trust Architecture!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref == nil {
		t.Fatal("expected a duplicate reference, got nil")
	}
	if ref.ID != "item-1" {
		t.Errorf("ref.ID = %q, want %q", ref.ID, "item-1")
	}
	if ref.Stage != types.StageDrafting {
		t.Errorf("ref.Stage = %q, want %q", ref.Stage, types.StageDrafting)
	}
}

func TestCheckUniqueTopic(t *testing.T) {
	checker := NewChecker(&fakeLookup{})

	ref, err := checker.Check(context.Background(), "Supply Chain Security")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil ref for unique topic, got %+v", ref)
	}
}

func TestCheckEmptyFingerprint(t *testing.T) {
	checker := NewChecker(&fakeLookup{})

	if _, err := checker.Check(context.Background(), "?!"); err == nil {
		t.Error("expected error for topic that normalizes to empty fingerprint")
	}
}
