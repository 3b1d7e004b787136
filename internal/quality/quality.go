// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality scores drafts against a fixed structural rubric and a
// configurable readability band, and produces the targeted issue list
// that drives the revision loop.
package quality

import (
	"fmt"
	"strings"

	"github.com/pdiddy/content-pipeline/pkg/types"
)

// wordsPerMinute is the reading-speed assumption for the reading-time
// estimate.
const wordsPerMinute = 200

// minIntroWords is the minimum length of the text before the first
// section heading for the draft to count as having an introduction.
const minIntroWords = 40

// minBodySections is the number of H2 sections (excluding the
// conclusion) a complete draft must have.
const minBodySections = 3

// placeholderMarkers are substrings that indicate unfinished content.
// Matching is case-insensitive.
var placeholderMarkers = []string{
	"lorem ipsum",
	"[insert",
	"[placeholder",
	"[todo",
	"tbd]",
	"xxx",
	"to be written",
}

// Controller evaluates drafts against the rubric.
type Controller struct {
	cfg types.QualityConfig
}

// NewController returns a Controller with defaults applied for any
// unset thresholds: word band 1500-2500, Flesch band 30-80,
// completeness minimum 7/10.
func NewController(cfg types.QualityConfig) *Controller {
	if cfg.MinWords <= 0 {
		cfg.MinWords = 1500
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 2500
	}
	if cfg.MinFleschScore <= 0 {
		cfg.MinFleschScore = 30
	}
	if cfg.MaxFleschScore <= 0 {
		cfg.MaxFleschScore = 80
	}
	if cfg.MinCompleteness <= 0 {
		cfg.MinCompleteness = 7
	}
	return &Controller{cfg: cfg}
}

// Evaluate scores content against the rubric. It returns the metrics
// snapshot, whether the draft passed, and the targeted issue list for
// revision guidance. passed is true only if every rubric check succeeds
// and the readability score is within the configured band.
func (c *Controller) Evaluate(content string) (types.QualityMetrics, bool, []string) {
	var issues []string

	wordCount := len(strings.Fields(content))
	flesch, sentences := fleschScore(content)

	// Rubric element 1: word band.
	wordBandOK := true
	if wordCount < c.cfg.MinWords {
		wordBandOK = false
		issues = append(issues, fmt.Sprintf("word count %d below minimum %d", wordCount, c.cfg.MinWords))
	} else if wordCount > c.cfg.MaxWords {
		wordBandOK = false
		issues = append(issues, fmt.Sprintf("word count %d above maximum %d", wordCount, c.cfg.MaxWords))
	}

	// Rubric element 2: introduction before the first section heading.
	hasIntro := introWordCount(content) >= minIntroWords
	if !hasIntro {
		issues = append(issues, "missing introduction before the first section heading")
	}

	// Rubric elements 3 and 4: body sections and conclusion.
	body, hasConclusion := sectionShape(content)
	if body < minBodySections {
		issues = append(issues, fmt.Sprintf("only %d body sections, need at least %d", body, minBodySections))
	}
	if !hasConclusion {
		issues = append(issues, "missing conclusion section")
	}

	// Rubric element 5: no placeholder text.
	noPlaceholder := true
	if marker := findPlaceholder(content); marker != "" {
		noPlaceholder = false
		issues = append(issues, fmt.Sprintf("placeholder text present: %q", marker))
	}

	// Readability band is checked alongside the rubric but does not
	// feed the completeness score.
	if flesch < c.cfg.MinFleschScore || flesch > c.cfg.MaxFleschScore {
		issues = append(issues, fmt.Sprintf("readability score %.1f outside acceptable band [%.0f, %.0f]",
			flesch, c.cfg.MinFleschScore, c.cfg.MaxFleschScore))
	}

	// Completeness: five rubric elements, two points each.
	completeness := 0
	for _, ok := range []bool{wordBandOK, hasIntro, body >= minBodySections, hasConclusion, noPlaceholder} {
		if ok {
			completeness += 2
		}
	}

	metrics := types.QualityMetrics{
		WordCount:          wordCount,
		ReadingTimeMinutes: readingTime(wordCount),
		FleschScore:        flesch,
		GradeLevel:         gradeLevel(flesch),
		CompletenessScore:  completeness,
		SentenceCount:      sentences,
	}

	passed := len(issues) == 0 && completeness >= c.cfg.MinCompleteness
	return metrics, passed, issues
}

func readingTime(wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	minutes := wordCount / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// introWordCount counts the words before the first H2 heading.
func introWordCount(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "## ") {
			break
		}
		n += len(strings.Fields(line))
	}
	return n
}

// sectionShape counts H2 body sections and reports whether a conclusion
// section is present. A section whose heading contains "conclusion"
// (case-insensitive) counts as the conclusion, not as a body section.
func sectionShape(content string) (body int, hasConclusion bool) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "## ") {
			continue
		}
		heading := strings.ToLower(strings.TrimPrefix(trimmed, "## "))
		if strings.Contains(heading, "conclusion") {
			hasConclusion = true
			continue
		}
		body++
	}
	return body, hasConclusion
}

// findPlaceholder returns the first placeholder marker found in the
// content, or "" if none is present.
func findPlaceholder(content string) string {
	lower := strings.ToLower(content)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}
